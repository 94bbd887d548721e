// Package resolver turns a call descriptor plus a target service into a method
// invocation and a serialized result.
//
// Flow: parse descriptor → exact method lookup → bind parameters by name
// (case-insensitive) → typed decode inside the handler → invoke → serialize result.
package resolver

import (
	"context"
	"fmt"
	"httprpc/codec"
	"httprpc/message"
	"httprpc/rpcerr"
	"httprpc/rpclog"
	"runtime/debug"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

// Resolver is stateless apart from its codec and logger and safe for concurrent use.
// It never snapshots service state: whatever the invoked handler mutates stays mutated.
type Resolver struct {
	codec *codec.CallCodec
	log   *logging.Logger
}

// New returns a resolver. A nil codec selects codec.Default, a nil logger discards.
func New(cc *codec.CallCodec, log *logging.Logger) *Resolver {
	if cc == nil {
		cc = codec.Default
	}
	if log == nil {
		log = rpclog.Discard("resolver")
	}
	return &Resolver{codec: cc, log: log}
}

// ResolveCall decodes requestText and invokes it against svc. A nil body with a nil
// error means the method returns no value.
func (r *Resolver) ResolveCall(ctx context.Context, requestText []byte, svc *Service) ([]byte, error) {
	call, err := r.codec.ParseCall(requestText)
	if err != nil {
		r.log.Errorf("resolve on %s: %v", svc.Name(), err)
		return nil, err
	}
	return r.Invoke(ctx, call, svc)
}

// Invoke runs an already decoded call against svc.
func (r *Resolver) Invoke(ctx context.Context, call *message.CallDescriptor, svc *Service) ([]byte, error) {
	body, err := r.invoke(ctx, call, svc)
	if err != nil {
		r.log.Errorf("resolve %s.%s: %v", svc.Name(), call.MethodName, err)
		return nil, err
	}
	return body, nil
}

func (r *Resolver) invoke(ctx context.Context, call *message.CallDescriptor, svc *Service) ([]byte, error) {
	mt, ok := svc.lookup(call.MethodName)
	if !ok {
		return nil, rpcerr.Application(rpcerr.ErrNoMatchingMethod, "method %q on service %q", call.MethodName, svc.Name())
	}

	args, err := bind(mt.method, call.Parameters)
	if err != nil {
		return nil, err
	}

	result, err := r.call(ctx, mt, args)
	if err != nil {
		if rpcerr.KindOf(err) != rpcerr.KindUnknown {
			return nil, err
		}
		return nil, rpcerr.Application(err, "method %q", call.MethodName)
	}
	if mt.handler.void {
		return nil, nil
	}

	text, err := r.codec.Serialize(result)
	if err != nil {
		return nil, errors.Wrapf(err, "result of %q", call.MethodName)
	}
	return []byte(text), nil
}

// bind looks up every declared parameter by name, in declaration order.
func bind(m message.Method, params map[string]string) ([]Arg, error) {
	folded := make(map[string]string, len(params))
	for name, text := range params {
		folded[foldName(name)] = text
	}

	args := make([]Arg, len(m.Params))
	for i, name := range m.Params {
		text, ok := folded[foldName(name)]
		if !ok {
			return nil, rpcerr.Application(rpcerr.ErrMissingParameter, "method %q: parameter %q", m.Name, name)
		}
		args[i] = Arg{Name: name, Text: text}
	}
	return args, nil
}

// call recovers a panicking handler into an application failure.
func (r *Resolver) call(ctx context.Context, mt *methodType, args []Arg) (result any, err error) {
	defer func() {
		if x := recover(); x != nil {
			r.log.Error(fmt.Sprintf("run time panic in %s: %v", mt.method.Name, x))
			r.log.Error(string(debug.Stack()))
			err = rpcerr.Application(fmt.Errorf("panic: %v", x), "method %q", mt.method.Name)
		}
	}()
	return mt.handler.fn(ctx, r.codec, args)
}
