// Package rpcerr defines the failure taxonomy shared by client, resolver and server.
//
// Callers of the client see exactly one of: a decoded result, a Communication
// failure, a Server failure, or a Canceled condition. Application and Decoding
// failures are produced server-side and travel to the client only as a status code.
package rpcerr

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind tags which side of the translation boundary a failure belongs to.
type Kind int

// KindCommunication: the request never reached the server or the transport failed.
// KindServer: the server answered with an unexpected status.
// KindApplication: resolution or the invoked method failed (server side).
// KindDecoding: malformed text at a serialize/deserialize boundary.
// KindCanceled: the caller cancelled before a response was obtained.
const (
	KindUnknown Kind = iota
	KindCommunication
	KindServer
	KindApplication
	KindDecoding
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindCommunication:
		return "communication failure"
	case KindServer:
		return "server failure"
	case KindApplication:
		return "application failure"
	case KindDecoding:
		return "decoding failure"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown failure"
	}
}

// Resolver and server sentinels. Match them with errors.Is.
var (
	ErrNoMatchingMethod = errors.New("no matching method")
	ErrMissingParameter = errors.New("missing parameter")
	ErrArityMismatch    = errors.New("argument count does not match declared parameters")
	ErrDuplicateMethod  = errors.New("method already registered")
	ErrAlreadyStarted   = errors.New("server already active")
	ErrNotStarted       = errors.New("server not active")
	ErrOverlappingKeys  = errors.New("service keys overlap")
	ErrNoServices       = errors.New("no services registered")
	ErrShutdownTimeout  = errors.New("timeout waiting for in-flight dispatches")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrHandlerTimeout   = errors.New("request timed out")
	ErrNoEndpoint       = errors.New("no endpoint available")
)

// Error is a tagged failure. StatusCode is the HTTP status for Server failures, and
// an optional override of the wire status for Application failures.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	cause      error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
}

// Cause returns the wrapped error, compatible with errors.Cause.
func (e *Error) Cause() error { return e.cause }

func (e *Error) Unwrap() error { return e.cause }

// Communication wraps a transport-level cause.
func Communication(cause error, format string, args ...any) error {
	return &Error{Kind: KindCommunication, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Server reports a well-formed but unsuccessful HTTP response.
func Server(code int, reason string) error {
	return &Error{Kind: KindServer, Message: reason, StatusCode: code}
}

// Application wraps a failure raised while resolving or invoking a call.
func Application(cause error, format string, args ...any) error {
	return &Error{Kind: KindApplication, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Decoding wraps a codec failure.
func Decoding(cause error, format string, args ...any) error {
	return &Error{Kind: KindDecoding, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Canceled wraps the context error of a call abandoned by its caller.
func Canceled(cause error) error {
	return &Error{Kind: KindCanceled, Message: "call canceled", cause: cause}
}

// WithStatus marks an application-side failure with the status the server should
// answer with instead of 500.
func WithStatus(err error, code int) error {
	var e *Error
	if errors.As(err, &e) {
		cp := *e
		cp.StatusCode = code
		return &cp
	}
	return &Error{Kind: KindApplication, Message: "request failed", StatusCode: code, cause: err}
}

// KindOf returns the outermost taxonomy kind found in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsCommunication(err error) bool { return KindOf(err) == KindCommunication }

func IsServer(err error) bool { return KindOf(err) == KindServer }

func IsApplication(err error) bool { return KindOf(err) == KindApplication }

func IsDecoding(err error) bool { return KindOf(err) == KindDecoding }

// IsCanceled also matches bare context errors.
func IsCanceled(err error) bool {
	return KindOf(err) == KindCanceled || errors.Is(err, context.Canceled)
}

// HTTPStatus is the status the server writes for a failed request.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) && e.StatusCode != 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}
