package resolver

import (
	"context"
	"httprpc/codec"
	"strings"

	"github.com/pkg/errors"
)

// Arg is one bound parameter: its declared name and serialized text.
type Arg struct {
	Name string
	Text string
}

// Handler decodes its own typed parameters and invokes the service function. Build
// one with FuncN (methods returning a value) or ProcN (methods returning nothing).
type Handler struct {
	arity int
	void  bool
	fn    func(ctx context.Context, cc *codec.CallCodec, args []Arg) (any, error)
}

// Arity is the number of parameters the handler binds.
func (h Handler) Arity() int { return h.arity }

// Void reports whether the method returns no value.
func (h Handler) Void() bool { return h.void }

func decodeArg[T any](cc *codec.CallCodec, a Arg) (T, error) {
	v, err := codec.Deserialize[T](cc, a.Text)
	if err != nil {
		return v, errors.Wrapf(err, "parameter %q", a.Name)
	}
	return v, nil
}

func foldName(name string) string {
	return strings.ToLower(name)
}

func Func0[R any](fn func(context.Context) (R, error)) Handler {
	return Handler{arity: 0, fn: func(ctx context.Context, cc *codec.CallCodec, args []Arg) (any, error) {
		r, err := fn(ctx)
		return r, err
	}}
}

func Func1[A, R any](fn func(context.Context, A) (R, error)) Handler {
	return Handler{arity: 1, fn: func(ctx context.Context, cc *codec.CallCodec, args []Arg) (any, error) {
		a, err := decodeArg[A](cc, args[0])
		if err != nil {
			return nil, err
		}
		r, err := fn(ctx, a)
		return r, err
	}}
}

func Func2[A, B, R any](fn func(context.Context, A, B) (R, error)) Handler {
	return Handler{arity: 2, fn: func(ctx context.Context, cc *codec.CallCodec, args []Arg) (any, error) {
		a, err := decodeArg[A](cc, args[0])
		if err != nil {
			return nil, err
		}
		b, err := decodeArg[B](cc, args[1])
		if err != nil {
			return nil, err
		}
		r, err := fn(ctx, a, b)
		return r, err
	}}
}

func Func3[A, B, C, R any](fn func(context.Context, A, B, C) (R, error)) Handler {
	return Handler{arity: 3, fn: func(ctx context.Context, cc *codec.CallCodec, args []Arg) (any, error) {
		a, err := decodeArg[A](cc, args[0])
		if err != nil {
			return nil, err
		}
		b, err := decodeArg[B](cc, args[1])
		if err != nil {
			return nil, err
		}
		c, err := decodeArg[C](cc, args[2])
		if err != nil {
			return nil, err
		}
		r, err := fn(ctx, a, b, c)
		return r, err
	}}
}

func Proc0(fn func(context.Context) error) Handler {
	return Handler{arity: 0, void: true, fn: func(ctx context.Context, cc *codec.CallCodec, args []Arg) (any, error) {
		return nil, fn(ctx)
	}}
}

func Proc1[A any](fn func(context.Context, A) error) Handler {
	return Handler{arity: 1, void: true, fn: func(ctx context.Context, cc *codec.CallCodec, args []Arg) (any, error) {
		a, err := decodeArg[A](cc, args[0])
		if err != nil {
			return nil, err
		}
		return nil, fn(ctx, a)
	}}
}

func Proc2[A, B any](fn func(context.Context, A, B) error) Handler {
	return Handler{arity: 2, void: true, fn: func(ctx context.Context, cc *codec.CallCodec, args []Arg) (any, error) {
		a, err := decodeArg[A](cc, args[0])
		if err != nil {
			return nil, err
		}
		b, err := decodeArg[B](cc, args[1])
		if err != nil {
			return nil, err
		}
		return nil, fn(ctx, a, b)
	}}
}

func Proc3[A, B, C any](fn func(context.Context, A, B, C) error) Handler {
	return Handler{arity: 3, void: true, fn: func(ctx context.Context, cc *codec.CallCodec, args []Arg) (any, error) {
		a, err := decodeArg[A](cc, args[0])
		if err != nil {
			return nil, err
		}
		b, err := decodeArg[B](cc, args[1])
		if err != nil {
			return nil, err
		}
		c, err := decodeArg[C](cc, args[2])
		if err != nil {
			return nil, err
		}
		return nil, fn(ctx, a, b, c)
	}}
}
