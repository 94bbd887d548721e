package middleware

import (
	"context"
	"time"

	"github.com/op/go-logging"
)

func LoggingMiddleware(log *logging.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) ([]byte, error) {
			start := time.Now()
			body, err := next(ctx, req)
			// Print the service, the request id, the time taken and the error if any
			duration := time.Since(start)
			if err != nil {
				log.Warningf("Service: %s, Request: %s, Duration: %s, Error: %v", req.ServiceKey, req.RequestID, duration, err)
				return body, err
			}
			log.Infof("Service: %s, Request: %s, Duration: %s", req.ServiceKey, req.RequestID, duration)
			return body, nil
		}
	}
}
