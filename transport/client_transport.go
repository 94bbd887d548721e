// Package transport implements the client-side HTTP transport.
//
// HTTPTransport owns a pooled *http.Client and performs one POST per call. It is the
// only place that sees net/http errors: every failure leaves this package either as
// a Communication failure (wrapping the transport cause) or as a Canceled condition
// when the caller's context ended first.
package transport

import (
	"bytes"
	"context"
	"httprpc/protocol"
	"httprpc/rpcerr"
	"net/http"
	"time"
)

// HTTPTransport is safe for concurrent use; calls share its connection pool.
type HTTPTransport struct {
	client      *http.Client
	contentType string
}

// NewHTTPTransport returns a transport whose calls are bounded end to end by
// timeout (0 disables the bound).
func NewHTTPTransport(timeout time.Duration, pool PoolConfig, contentType string) *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{
			Transport: newRoundTripper(pool),
			Timeout:   timeout,
		},
		contentType: contentType,
	}
}

// Post sends body to url and reads the complete response.
//
// Cancellation of ctx before or during the POST abandons it and returns a Canceled
// error; any other failure (refused connection, DNS, timeout, broken stream while
// reading the body) is a Communication failure.
func (t *HTTPTransport) Post(ctx context.Context, url, requestID string, body []byte) (*protocol.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, rpcerr.Canceled(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, rpcerr.Communication(err, "build request for %s", url)
	}
	req.Header.Set("Content-Type", t.contentType)
	if requestID != "" {
		req.Header.Set(protocol.HeaderRequestID, requestID)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, t.wrap(ctx, err, "post %s", url)
	}

	r, err := protocol.ReadResponse(resp)
	if err != nil {
		return nil, t.wrap(ctx, err, "read response from %s", url)
	}
	return r, nil
}

// CloseIdleConnections drops pooled connections.
func (t *HTTPTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

func (t *HTTPTransport) wrap(ctx context.Context, err error, format string, args ...any) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return rpcerr.Canceled(ctxErr)
	}
	return rpcerr.Communication(err, format, args...)
}
