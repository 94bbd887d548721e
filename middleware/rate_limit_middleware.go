package middleware

import (
	"context"
	"httprpc/rpcerr"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware 创建一个基于令牌桶算法的限流中间件
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) ([]byte, error) {
			if !limiter.Allow() {
				return nil, rpcerr.WithStatus(
					rpcerr.Application(rpcerr.ErrRateLimited, "service %s", req.ServiceKey),
					http.StatusTooManyRequests)
			}
			return next(ctx, req)
		}
	}
}
