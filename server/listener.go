package server

import (
	"context"
	"net"
	"time"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

const (
	acceptBackoffMin = 5 * time.Millisecond
	acceptBackoffMax = time.Second
)

// acceptListener is the accept loop's view of the socket. It tells shutdown-induced
// failures (listener closed after the run's context was cancelled) apart from real
// ones: the former end the loop quietly, transient ones are logged and retried so a
// single bad connection never kills the loop.
type acceptListener struct {
	net.Listener
	ctx context.Context
	log *logging.Logger
}

func newAcceptListener(ctx context.Context, ln net.Listener, log *logging.Logger) *acceptListener {
	return &acceptListener{Listener: ln, ctx: ctx, log: log}
}

func (l *acceptListener) Accept() (net.Conn, error) {
	var delay time.Duration
	for {
		conn, err := l.Listener.Accept()
		if err == nil {
			return conn, nil
		}

		// During shutdown, Close() makes Accept fail; that is the expected way out.
		if l.ctx.Err() != nil {
			l.log.Debugf("accept loop stopping: %v", err)
			return nil, net.ErrClosed
		}
		if errors.Is(err, net.ErrClosed) {
			l.log.Errorf("listener %s closed outside shutdown: %v", l.Addr(), err)
			return nil, err
		}

		if delay == 0 {
			delay = acceptBackoffMin
		} else if delay *= 2; delay > acceptBackoffMax {
			delay = acceptBackoffMax
		}
		l.log.Errorf("accept on %s: %v; retrying in %v", l.Addr(), err, delay)

		select {
		case <-time.After(delay):
		case <-l.ctx.Done():
			return nil, net.ErrClosed
		}
	}
}
