// Package transport also provides the connection pool settings (PoolConfig).
//
// Pooling is delegated to net/http: one *http.Transport keeps idle keep-alive
// connections per host and reuses them across calls, the HTTP equivalent of a
// borrow/return pool of TCP connections.
package transport

import (
	"net"
	"net/http"
	"time"
)

// PoolConfig bounds the connections a client keeps towards its endpoints.
type PoolConfig struct {
	MaxConnsPerHost     int           // 0 means unlimited
	MaxIdleConnsPerHost int           // idle connections kept for reuse
	IdleConnTimeout     time.Duration // how long an idle connection stays pooled
	DialTimeout         time.Duration // TCP connect timeout
}

// DefaultPoolConfig keeps a small pool of warm connections per endpoint.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConnsPerHost:     0,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         10 * time.Second,
	}
}

// newRoundTripper builds the pooled *http.Transport for cfg.
func newRoundTripper(cfg PoolConfig) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		MaxIdleConns:        cfg.MaxIdleConnsPerHost * 4,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}
}
