package middleware

import (
	"context"
	"httprpc/rpcerr"
	"net/http"
	"time"
)

// TimeOutMiddleware answers 504 when next takes longer than timeout. The handler
// keeps running to completion in the background; only its answer is dropped.
func TimeOutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) ([]byte, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type result struct {
				body []byte
				err  error
			}
			done := make(chan result, 1)
			go func() {
				body, err := next(ctx, req)
				done <- result{body, err}
			}()

			select {
			case r := <-done:
				return r.body, r.err
			case <-ctx.Done():
				return nil, rpcerr.WithStatus(
					rpcerr.Application(rpcerr.ErrHandlerTimeout, "service %s after %s", req.ServiceKey, timeout),
					http.StatusGatewayTimeout)
			}
		}
	}
}
