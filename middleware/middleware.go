// Package middleware wraps the server's per-request dispatch in composable layers.
package middleware

import (
	"context"
	"httprpc/resolver"
)

// Request is one dispatched call as seen by the handler chain.
type Request struct {
	RequestID  string
	ServiceKey string            // registration key the path matched
	Service    *resolver.Service // service registered under ServiceKey
	Body       []byte            // serialized call descriptor
}

// HandlerFunc resolves a request. A nil result with a nil error means "no body".
type HandlerFunc func(ctx context.Context, req *Request) ([]byte, error)

type Middleware func(next HandlerFunc) HandlerFunc

// Chain 将多个中间件组合成一个中间件
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
