// Package client implements the RPC client: it turns a method identity plus ordered
// arguments into one POST and the HTTP answer into a return value or a tagged
// failure.
//
// Call pipeline:
//
//	Call → CreateCall (codec) → [retry] → pick endpoint (balancer) → POST (transport)
//	  → Interpret status (200 / 204 / other) → decode reply
package client

import (
	"context"
	"fmt"
	"httprpc/codec"
	"httprpc/loadbalance"
	"httprpc/message"
	"httprpc/protocol"
	"httprpc/rpcerr"
	"httprpc/rpclog"
	"httprpc/transport"
	"net/http"
	"time"

	"github.com/op/go-logging"
	uuid "github.com/satori/go.uuid"
)

// Config is the client's endpoint and failure policy.
type Config struct {
	Endpoint   string        // URL calls are POSTed to, e.g. http://127.0.0.1:8080/arith/
	Timeout    time.Duration // end-to-end bound on one attempt, 0 disables it
	Retries    int           // extra attempts after a communication failure
	RetryDelay time.Duration // backoff before the first retry, doubled on each next one
}

func DefaultConfig(endpoint string) Config {
	return Config{
		Endpoint:   endpoint,
		Timeout:    30 * time.Second,
		Retries:    0,
		RetryDelay: 100 * time.Millisecond,
	}
}

type Option func(*Client)

func WithLogger(log *logging.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithBalancer spreads calls over endpoints instead of Config.Endpoint.
func WithBalancer(b loadbalance.Balancer, endpoints ...loadbalance.Endpoint) Option {
	return func(c *Client) {
		c.balancer = b
		c.endpoints = endpoints
	}
}

func WithPool(pool transport.PoolConfig) Option {
	return func(c *Client) { c.pool = pool }
}

func WithCodec(cc *codec.CallCodec) Option {
	return func(c *Client) { c.codec = cc }
}

// Client is safe for concurrent use. Calls share one connection pool.
type Client struct {
	cfg       Config
	log       *logging.Logger
	codec     *codec.CallCodec
	pool      transport.PoolConfig
	balancer  loadbalance.Balancer
	endpoints []loadbalance.Endpoint
	transport *transport.HTTPTransport
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	c := &Client{cfg: cfg, pool: transport.DefaultPoolConfig()}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = rpclog.Discard("client")
	}
	if c.codec == nil {
		c.codec = codec.Default
	}
	if c.balancer == nil {
		if cfg.Endpoint == "" {
			return nil, rpcerr.ErrNoEndpoint
		}
		c.balancer = &loadbalance.RoundRobinBalancer{}
		c.endpoints = []loadbalance.Endpoint{{URL: cfg.Endpoint}}
	}
	if len(c.endpoints) == 0 {
		return nil, rpcerr.ErrNoEndpoint
	}
	c.transport = transport.NewHTTPTransport(cfg.Timeout, c.pool, c.codec.ContentType())
	return c, nil
}

// Call invokes m with args and decodes the result into reply, which must be a
// non-nil pointer. Only a 200 answer is a success.
func (c *Client) Call(ctx context.Context, m message.Method, reply any, args ...any) error {
	body, err := c.roundTrip(ctx, m, protocol.StatusResult, args)
	if err != nil {
		return err
	}
	if err := c.codec.DeserializeInto(string(body), reply); err != nil {
		return rpcerr.Server(http.StatusOK, fmt.Sprintf("%d %s: undecodable result of %s: %v",
			http.StatusOK, http.StatusText(http.StatusOK), m.Name, err))
	}
	return nil
}

// CallVoid invokes m with args, which must answer 204 with no body.
func (c *Client) CallVoid(ctx context.Context, m message.Method, args ...any) error {
	_, err := c.roundTrip(ctx, m, protocol.StatusVoid, args)
	return err
}

// Call is one asynchronous invocation. Done receives the Call itself once Error and
// Reply are final.
type Call struct {
	Method message.Method
	Args   []any
	Reply  any
	Error  error
	Done   chan *Call
}

func (call *Call) done() {
	call.Done <- call
}

// Go starts Call in the background.
func (c *Client) Go(ctx context.Context, m message.Method, reply any, args ...any) *Call {
	call := &Call{Method: m, Args: args, Reply: reply, Done: make(chan *Call, 1)}
	go func() {
		call.Error = c.Call(ctx, m, reply, args...)
		call.done()
	}()
	return call
}

// GoVoid starts CallVoid in the background.
func (c *Client) GoVoid(ctx context.Context, m message.Method, args ...any) *Call {
	call := &Call{Method: m, Args: args, Done: make(chan *Call, 1)}
	go func() {
		call.Error = c.CallVoid(ctx, m, args...)
		call.done()
	}()
	return call
}

// Invoke is Call with the result type as a type parameter.
func Invoke[R any](ctx context.Context, c *Client, m message.Method, args ...any) (R, error) {
	var r R
	err := c.Call(ctx, m, &r, args...)
	return r, err
}

// Close drops idle pooled connections.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}

func (c *Client) roundTrip(ctx context.Context, m message.Method, want int, args []any) ([]byte, error) {
	body, err := c.codec.CreateCall(m, args...)
	if err != nil {
		if rpcerr.IsApplication(err) {
			return nil, err
		}
		return nil, rpcerr.Communication(err, "encode call %s", m.Name)
	}

	requestID := uuid.NewV4().String()
	var result []byte
	err = retry(ctx, c.log, c.cfg.Retries, c.cfg.RetryDelay, m.Name, func() error {
		ep, err := c.balancer.Pick(c.endpoints, m.Name)
		if err != nil {
			return rpcerr.Communication(err, "pick endpoint with %s", c.balancer.Name())
		}

		start := time.Now()
		resp, err := c.transport.Post(ctx, ep.URL, requestID, body)
		if err != nil {
			return err
		}
		c.log.Debugf("request %s: %s on %s answered %d in %v", requestID, m.Name, ep.URL, resp.StatusCode, time.Since(start))

		result, err = protocol.Interpret(resp, want)
		return err
	})
	if err != nil {
		c.log.Warningf("request %s: %s failed: %v", requestID, m.Name, err)
		return nil, err
	}
	return result, nil
}
