// Package demo holds the reference services served by `httprpc serve` and used by
// the end-to-end tests.
package demo

import (
	"context"
	"httprpc/message"
	"httprpc/resolver"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Service keys the demo services are registered under.
const (
	ArithKey = "arith"
	StoreKey = "store"
)

// Methods of the arithmetic service.
var (
	Add = message.NewMethod("add", "a", "b")
	Div = message.NewMethod("div", "a", "b")
	FMA = message.NewMethod("fma", "a", "b", "c")
)

// Methods of the settable-string service.
var (
	SetValue = message.NewMethod("setValue", "value")
	GetValue = message.NewMethod("getValue")
	Sleep    = message.NewMethod("sleep", "millis")
	Fail     = message.NewMethod("fail", "message")
)

var ErrDivideByZero = errors.New("divide by zero")

type Arith struct{}

func (Arith) Add(_ context.Context, a, b int) (int, error) {
	return a + b, nil
}

func (Arith) Div(_ context.Context, a, b float64) (float64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return a / b, nil
}

func (Arith) FMA(_ context.Context, a, b, c float64) (float64, error) {
	return a*b + c, nil
}

// Store keeps one string value.
type Store struct {
	mu    sync.Mutex
	value string
}

func (s *Store) SetValue(_ context.Context, v string) error {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
	return nil
}

func (s *Store) GetValue(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}

// Sleep blocks for millis milliseconds, or until the request is abandoned.
func (s *Store) Sleep(ctx context.Context, millis int) error {
	select {
	case <-time.After(time.Duration(millis) * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) Fail(_ context.Context, msg string) error {
	return errors.New(msg)
}

// NewArithService builds the method table of a.
func NewArithService(a Arith) *resolver.Service {
	return resolver.NewService("Arith").
		MustRegister(Add, resolver.Func2(a.Add)).
		MustRegister(Div, resolver.Func2(a.Div)).
		MustRegister(FMA, resolver.Func3(a.FMA))
}

// NewStoreService builds the method table of s.
func NewStoreService(s *Store) *resolver.Service {
	return resolver.NewService("Store").
		MustRegister(SetValue, resolver.Proc1(s.SetValue)).
		MustRegister(GetValue, resolver.Func0(s.GetValue)).
		MustRegister(Sleep, resolver.Proc1(s.Sleep)).
		MustRegister(Fail, resolver.Proc1(s.Fail))
}

// Services returns both demo services keyed for server.Start; the map literal type
// converts to server.Registration.
func Services() map[string]*resolver.Service {
	return map[string]*resolver.Service{
		ArithKey: NewArithService(Arith{}),
		StoreKey: NewStoreService(&Store{}),
	}
}
