package middleware

import (
	"context"
	"httprpc/rpcerr"
	"httprpc/rpclog"
	"net/http"
	"testing"
	"time"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

// 模拟一个简单的 handler：直接返回成功响应
func echoHandler(ctx context.Context, req *Request) ([]byte, error) {
	return []byte("ok"), nil
}

// 模拟一个慢 handler：睡 200ms
func slowHandler(ctx context.Context, req *Request) ([]byte, error) {
	time.Sleep(200 * time.Millisecond)
	return []byte("ok"), nil
}

func failingHandler(ctx context.Context, req *Request) ([]byte, error) {
	return nil, errors.New("boom")
}

func newRequest() *Request {
	return &Request{RequestID: "req-1", ServiceKey: "svc", Body: []byte(`{"methodName":"add"}`)}
}

func TestLogging(t *testing.T) {
	log, mem := rpclog.NewMemory("test", 16)
	handler := LoggingMiddleware(log)(echoHandler)

	body, err := handler(context.Background(), newRequest())
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "ok" {
		t.Fatalf("expect payload 'ok', got '%s'", string(body))
	}
	if len(rpclog.Records(mem, logging.INFO)) != 1 {
		t.Fatal("expect one INFO record")
	}

	_, err = LoggingMiddleware(log)(failingHandler)(context.Background(), newRequest())
	if err == nil {
		t.Fatal("expect error to pass through")
	}
	if len(rpclog.Records(mem, logging.WARNING)) != 1 {
		t.Fatal("expect one WARNING record for the failure")
	}
}

func TestTimeoutPass(t *testing.T) {
	// 超时 500ms，handler 很快，应该正常返回
	handler := TimeOutMiddleware(500 * time.Millisecond)(echoHandler)

	if _, err := handler(context.Background(), newRequest()); err != nil {
		t.Fatalf("expect no error, got '%v'", err)
	}
}

func TestTimeoutExceeded(t *testing.T) {
	// 超时 50ms，handler 需要 200ms，应该超时
	handler := TimeOutMiddleware(50 * time.Millisecond)(slowHandler)

	_, err := handler(context.Background(), newRequest())
	if !errors.Is(err, rpcerr.ErrHandlerTimeout) {
		t.Fatalf("expect timeout error, got '%v'", err)
	}
	if rpcerr.HTTPStatus(err) != http.StatusGatewayTimeout {
		t.Fatalf("expect 504, got %d", rpcerr.HTTPStatus(err))
	}
}

func TestRateLimit(t *testing.T) {
	// rate=1 per second, burst=2 → 前 2 个立刻放行，第 3 个被拒
	handler := RateLimitMiddleware(1, 2)(echoHandler)

	// 前 2 个应该通过（burst=2）
	for i := 0; i < 2; i++ {
		if _, err := handler(context.Background(), newRequest()); err != nil {
			t.Fatalf("request %d should pass, got error: %v", i, err)
		}
	}

	// 第 3 个应该被限流
	_, err := handler(context.Background(), newRequest())
	if !errors.Is(err, rpcerr.ErrRateLimited) {
		t.Fatalf("request 3 should be rate limited, got: '%v'", err)
	}
	if rpcerr.HTTPStatus(err) != http.StatusTooManyRequests {
		t.Fatalf("expect 429, got %d", rpcerr.HTTPStatus(err))
	}
}

func TestChain(t *testing.T) {
	// 用 Chain 组合 Logging + Timeout，验证请求能正常穿过
	chained := Chain(LoggingMiddleware(rpclog.Discard("test")), TimeOutMiddleware(500*time.Millisecond))
	handler := chained(echoHandler)

	body, err := handler(context.Background(), newRequest())
	if err != nil {
		t.Fatalf("expect no error, got '%v'", err)
	}
	if string(body) != "ok" {
		t.Fatalf("expect ok, got %q", body)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req *Request) ([]byte, error) {
				order = append(order, name+".before")
				body, err := next(ctx, req)
				order = append(order, name+".after")
				return body, err
			}
		}
	}

	Chain(mark("A"), mark("B"))(echoHandler)(context.Background(), newRequest())

	want := []string{"A.before", "B.before", "B.after", "A.after"}
	if len(order) != len(want) {
		t.Fatalf("expect %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expect %v, got %v", want, order)
		}
	}
}
