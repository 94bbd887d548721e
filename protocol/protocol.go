// Package protocol implements the HTTP wire contract between client and server.
//
// One call is one POST. The body is the serialized call descriptor; the status code
// alone tells the client how to read the answer:
//
//	status │ body                        │ meaning
//	───────┼─────────────────────────────┼──────────────────────────────
//	200    │ serialized return value     │ success, method returns a value
//	204    │ empty                       │ success, method returns nothing
//	other  │ failure message (text/plain)│ server failure
//
// net/http cannot send a custom reason phrase, so the failure message travels in
// the body rather than in the status line.
package protocol

import (
	"fmt"
	"httprpc/rpcerr"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const (
	// ContentTypeJSON marks a success body.
	ContentTypeJSON = "application/json"
	// ContentTypeText marks a failure body.
	ContentTypeText = "text/plain; charset=utf-8"
	// HeaderRequestID correlates client and server log lines for one call.
	HeaderRequestID = "X-Request-Id"
	// StatusResult and StatusVoid are the only success statuses.
	StatusResult = http.StatusOK
	StatusVoid   = http.StatusNoContent
	// MaxReasonLen bounds how much of a failure body ends up in a client error.
	MaxReasonLen = 512
)

// WriteResult answers a call whose method returned a value.
func WriteResult(w http.ResponseWriter, body []byte) error {
	h := w.Header()
	h.Set("Content-Type", ContentTypeJSON)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(StatusResult)
	_, err := w.Write(body)
	return err
}

// WriteVoid answers a call whose method returns nothing.
func WriteVoid(w http.ResponseWriter) {
	w.WriteHeader(StatusVoid)
}

// WriteFailure answers a failed call with the status carried by err (500 unless
// tagged otherwise) and err's message as body.
func WriteFailure(w http.ResponseWriter, err error) {
	WriteStatus(w, rpcerr.HTTPStatus(err), err.Error())
}

// WriteStatus answers with code and a one-line text message.
func WriteStatus(w http.ResponseWriter, code int, msg string) {
	line := msg + "\n"
	h := w.Header()
	h.Set("Content-Type", ContentTypeText)
	h.Set("Content-Length", strconv.Itoa(len(line)))
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	io.WriteString(w, line)
}

// Response is what the client transport read off the wire.
type Response struct {
	StatusCode int
	Body       []byte
}

// Interpret checks resp against the success status the caller expects (StatusResult
// or StatusVoid) and returns the body, or a Server failure naming the status and the
// server's message.
func Interpret(resp *Response, want int) ([]byte, error) {
	if resp.StatusCode == want {
		return resp.Body, nil
	}
	return nil, rpcerr.Server(resp.StatusCode, Reason(resp))
}

// Reason renders "<code> <status text>: <message>" for a failed response.
func Reason(resp *Response) string {
	reason := fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	msg := strings.TrimSpace(string(resp.Body))
	if len(msg) > MaxReasonLen {
		msg = msg[:MaxReasonLen] + "..."
	}
	if msg != "" {
		reason += ": " + msg
	}
	return reason
}

// ReadResponse drains and closes an *http.Response into a Response.
func ReadResponse(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
