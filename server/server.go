// Package server implements the RPC server: a listener bound to one path prefix per
// registered service, concurrent dispatch of every request to the resolver, and a
// bounded, best-effort shutdown.
//
// Request processing pipeline:
//
//	Accept conn → net/http connection goroutine
//	  → mux prefix route → serveCall (tracked dispatch) → match path suffix → read body
//	    → Middleware Chain → Resolver.ResolveCall → 200 result / 204 void / failure status
//
// Lifecycle: Created → Started (accepting + dispatching) → Stopping → Stopped, and
// a stopped server may be started again.
package server

import (
	"context"
	"httprpc/codec"
	"httprpc/middleware"
	"httprpc/protocol"
	"httprpc/resolver"
	"httprpc/rpcerr"
	"httprpc/rpclog"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// shutdownGrace extends every shutdown wait so dispatches finishing right at the
// deadline are still counted as done.
const shutdownGrace = 500 * time.Millisecond

// Config holds the server's tunables.
type Config struct {
	ShutdownTimeout   time.Duration // used by Stop when called with a timeout <= 0
	MaxRequestBytes   int64         // call descriptors larger than this are refused with 413
	ReadHeaderTimeout time.Duration // bound on reading request headers
	MatchCacheSize    int           // path → service match cache entries (0: twice the services)
}

func DefaultConfig() Config {
	return Config{
		ShutdownTimeout:   5 * time.Second,
		MaxRequestBytes:   4 << 20,
		ReadHeaderTimeout: 10 * time.Second,
		MatchCacheSize:    256,
	}
}

type Option func(*Server)

func WithConfig(cfg Config) Option {
	return func(s *Server) { s.cfg = cfg }
}

func WithLogger(log *logging.Logger) Option {
	return func(s *Server) { s.log = log }
}

func WithCodec(cc *codec.CallCodec) Option {
	return func(s *Server) { s.codec = cc }
}

type state int

const (
	stateCreated state = iota
	stateStarted
	stateStopping
	stateStopped
)

// Server is the RPC server. Services are registered per Start, not on the server.
type Server struct {
	cfg         Config
	log         *logging.Logger
	codec       *codec.CallCodec
	middlewares []middleware.Middleware

	mu      sync.Mutex
	state   state
	current *run
	last    *tracker
}

// run is everything that lives from one Start to the matching Stop.
type run struct {
	ctx        context.Context
	cancel     context.CancelFunc
	routes     *routeTable
	handler    middleware.HandlerFunc
	tracker    *tracker
	listener   *acceptListener
	httpServer *http.Server
	maxBytes   int64
	log        *logging.Logger
}

// NewServer creates a server in the Created state.
func NewServer(opts ...Option) *Server {
	s := &Server{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = rpclog.Discard("server")
	}
	if s.codec == nil {
		s.codec = codec.Default
	}
	return s
}

// Use registers a middleware. Middlewares are applied in the order they are added
// and take effect at the next Start.
func (s *Server) Use(mw middleware.Middleware) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middlewares = append(s.middlewares, mw)
}

// Start binds baseAddress (e.g. "http://127.0.0.1:8080/api/") and serves every
// service of reg under baseAddress joined with its key. Port 0 picks a free port,
// see Addr.
func (s *Server) Start(baseAddress string, reg Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateStarted || s.state == stateStopping {
		return rpcerr.ErrAlreadyStarted
	}

	base, err := url.Parse(baseAddress)
	if err != nil {
		return errors.Wrapf(err, "rpc: base address %q", baseAddress)
	}
	if base.Scheme != "http" || base.Host == "" {
		return errors.Errorf("rpc: base address %q must be http://host:port/[path]", baseAddress)
	}

	routes, err := newRouteTable(base.Path, reg, s.cfg.MatchCacheSize)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", base.Host)
	if err != nil {
		return errors.Wrapf(err, "rpc: listen on %s", base.Host)
	}

	ctx, cancel := context.WithCancel(context.Background())
	rn := &run{
		ctx:      ctx,
		cancel:   cancel,
		routes:   routes,
		tracker:  newTracker(),
		listener: newAcceptListener(ctx, ln, s.log),
		maxBytes: s.cfg.MaxRequestBytes,
		log:      s.log,
	}

	// Build the middleware chain once per run (not per-request)
	res := resolver.New(s.codec, s.log)
	rn.handler = middleware.Chain(s.middlewares...)(func(ctx context.Context, req *middleware.Request) ([]byte, error) {
		return res.ResolveCall(ctx, req.Body, req.Service)
	})

	router := mux.NewRouter()
	for _, key := range routes.keys {
		prefix := routes.prefix(key)
		router.PathPrefix(prefix).Methods(http.MethodPost).HandlerFunc(rn.serveCall)
		router.Path(strings.TrimSuffix(prefix, "/")).Methods(http.MethodPost).HandlerFunc(rn.serveCall)
		s.log.Infof("serving %s (%s) at %s%s", key, routes.services[key].Name(), ln.Addr(), prefix)
	}
	router.NotFoundHandler = http.HandlerFunc(rn.notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(rn.methodNotAllowed)

	rn.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	// The accept loop is itself a tracked dispatch, so Stop waits for it too.
	loop, _ := rn.tracker.begin()
	go rn.acceptLoop(loop)

	s.current = rn
	s.last = rn.tracker
	s.state = stateStarted
	return nil
}

// Stop signals shutdown, closes the listener and waits up to timeout (plus a small
// grace period) for in-flight dispatches. Work still running after that is
// abandoned: the condition is logged at CRITICAL and ErrShutdownTimeout returned,
// but the server is stopped either way and may be started again.
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if s.state != stateStarted {
		s.mu.Unlock()
		return rpcerr.ErrNotStarted
	}
	rn := s.current
	s.state = stateStopping
	s.mu.Unlock()

	if timeout <= 0 {
		timeout = s.cfg.ShutdownTimeout
	}

	// Signal first, then close the socket: an Accept failing in between is then
	// always recognised as shutdown-induced.
	rn.cancel()
	rn.tracker.close()
	rn.httpServer.SetKeepAlivesEnabled(false)
	if err := rn.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Warningf("close listener: %v", err)
	}

	finished := rn.tracker.wait(timeout + shutdownGrace)
	if !finished {
		s.log.Criticalf("stop: %d dispatches still running after %v, abandoning them (possible resource leak or lost work)",
			rn.tracker.stats().InFlight, timeout+shutdownGrace)
	}
	// Drops every remaining connection, abandoned handlers included.
	rn.httpServer.Close()

	s.mu.Lock()
	s.current = nil
	s.state = stateStopped
	s.mu.Unlock()

	if !finished {
		return rpcerr.ErrShutdownTimeout
	}
	s.log.Info("stopped")
	return nil
}

// Addr is the bound address while started, nil otherwise.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.listener.Addr()
}

// Stats reports the dispatch counters of the current run, or of the last one after
// Stop.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Stats{}
	}
	return s.last.stats()
}

func (rn *run) acceptLoop(loop *dispatch) {
	err := rn.httpServer.Serve(rn.listener)
	switch {
	case rn.ctx.Err() != nil || errors.Is(err, http.ErrServerClosed):
		rn.log.Debugf("accept loop finished: %v", err)
		loop.finish(outcomeCompleted)
	default:
		rn.log.Criticalf("accept loop died: %v", err)
		loop.finish(outcomeFaulted)
	}
}

// serveCall handles one request; net/http runs it on the connection's goroutine, so
// requests are dispatched fully concurrently.
func (rn *run) serveCall(w http.ResponseWriter, r *http.Request) {
	d, ok := rn.tracker.begin()
	if !ok {
		protocol.WriteStatus(w, http.StatusServiceUnavailable, "server shutting down")
		return
	}
	result := outcomeFaulted
	defer func() {
		// Push the answer out before the dispatch counts as done: Stop closes every
		// connection once the last dispatch finished.
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		if r.Context().Err() != nil && result == outcomeFaulted {
			result = outcomeCanceled
		}
		d.finish(result)
	}()

	requestID := r.Header.Get(protocol.HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewV4().String()
	}
	w.Header().Set(protocol.HeaderRequestID, requestID)

	key, svc, ok := rn.routes.match(r.URL.Path)
	if !ok {
		rn.log.Warningf("no service matches %s (request %s)", r.URL.Path, requestID)
		protocol.WriteStatus(w, http.StatusNotFound, "no service at "+r.URL.Path)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, rn.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = rpcerr.WithStatus(rpcerr.Application(err, "call descriptor"), http.StatusRequestEntityTooLarge)
		} else {
			err = rpcerr.Application(err, "read request body")
		}
		rn.fail(w, requestID, key, err)
		return
	}

	reply, err := rn.handler(r.Context(), &middleware.Request{
		RequestID:  requestID,
		ServiceKey: key,
		Service:    svc,
		Body:       body,
	})
	if err != nil {
		rn.fail(w, requestID, key, err)
		return
	}

	if reply == nil {
		protocol.WriteVoid(w)
	} else if err := protocol.WriteResult(w, reply); err != nil {
		rn.log.Warningf("request %s on %s: write result: %v", requestID, key, err)
		return
	}
	result = outcomeCompleted
}

// fail writes the failure response and logs it.
func (rn *run) fail(w http.ResponseWriter, requestID, key string, err error) {
	protocol.WriteFailure(w, err)
	rn.log.Errorf("request %s on %s failed with %d: %v", requestID, key, rpcerr.HTTPStatus(err), err)
}

func (rn *run) notFound(w http.ResponseWriter, r *http.Request) {
	rn.log.Warningf("no service matches %s %s", r.Method, r.URL.Path)
	protocol.WriteStatus(w, http.StatusNotFound, "no service at "+r.URL.Path)
}

func (rn *run) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	protocol.WriteStatus(w, http.StatusMethodNotAllowed, "calls must be POSTed")
}
