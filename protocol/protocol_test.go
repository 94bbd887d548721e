package protocol

import (
	"httprpc/rpcerr"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestWriteResult(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteResult(rec, []byte("12")); err != nil {
		t.Fatal(err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expect 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != ContentTypeJSON {
		t.Fatalf("expect %s, got %s", ContentTypeJSON, ct)
	}
	if rec.Body.String() != "12" {
		t.Fatalf("expect body 12, got %q", rec.Body.String())
	}
}

func TestWriteVoid(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteVoid(rec)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expect 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expect empty body, got %q", rec.Body.String())
	}
}

func TestWriteFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"plain", errors.New("divide by zero"), http.StatusInternalServerError},
		{"application", rpcerr.Application(rpcerr.ErrNoMatchingMethod, "method %q", "nope"), http.StatusInternalServerError},
		{"rate limited", rpcerr.WithStatus(rpcerr.ErrRateLimited, http.StatusTooManyRequests), http.StatusTooManyRequests},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteFailure(rec, tc.err)

			if rec.Code != tc.code {
				t.Fatalf("expect %d, got %d", tc.code, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.err.Error()) {
				t.Fatalf("expect failure message in body, got %q", rec.Body.String())
			}
		})
	}
}

func TestInterpret(t *testing.T) {
	body, err := Interpret(&Response{StatusCode: http.StatusOK, Body: []byte("11")}, StatusResult)
	if err != nil || string(body) != "11" {
		t.Fatalf("expect body 11, got %q, %v", body, err)
	}

	if _, err := Interpret(&Response{StatusCode: http.StatusNoContent}, StatusVoid); err != nil {
		t.Fatalf("expect 204 to satisfy a void call, got %v", err)
	}

	// A value call answered with 204 and a void call answered with 200 are both
	// server failures.
	_, err = Interpret(&Response{StatusCode: http.StatusNoContent}, StatusResult)
	if !rpcerr.IsServer(err) {
		t.Fatalf("expect server failure, got %v", err)
	}
	_, err = Interpret(&Response{StatusCode: http.StatusOK}, StatusVoid)
	if !rpcerr.IsServer(err) {
		t.Fatalf("expect server failure, got %v", err)
	}

	_, err = Interpret(&Response{StatusCode: 500, Body: []byte("boom\n")}, StatusResult)
	var rerr *rpcerr.Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expect *rpcerr.Error, got %T", err)
	}
	if rerr.StatusCode != 500 || rerr.Message != "500 Internal Server Error: boom" {
		t.Fatalf("unexpected failure: %d %q", rerr.StatusCode, rerr.Message)
	}
}

func TestReasonTruncates(t *testing.T) {
	long := strings.Repeat("x", MaxReasonLen+100)
	reason := Reason(&Response{StatusCode: 500, Body: []byte(long)})
	if !strings.HasSuffix(reason, "...") || len(reason) > MaxReasonLen+64 {
		t.Fatalf("expect truncated reason, got %d bytes", len(reason))
	}
}

func TestReadResponse(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`"X"`)),
	}
	got, err := ReadResponse(resp)
	if err != nil {
		t.Fatal(err)
	}
	if got.StatusCode != http.StatusOK || string(got.Body) != `"X"` {
		t.Fatalf("unexpected response %+v", got)
	}
}
