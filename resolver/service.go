package resolver

import (
	"httprpc/message"
	"httprpc/rpcerr"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

type methodType struct {
	method  message.Method
	handler Handler
}

// Service is the explicit dispatch table of one service instance: method name to
// the typed handler serving it. Tables are filled at startup and read-only once the
// server serves them.
type Service struct {
	name   string
	mu     sync.RWMutex
	method map[string]*methodType
}

// NewService creates an empty table. name is used in diagnostics only, the server
// routes by registration key.
func NewService(name string) *Service {
	return &Service{
		name:   name,
		method: make(map[string]*methodType),
	}
}

func (s *Service) Name() string {
	return s.name
}

// Register binds m to h. The handler's arity must equal the number of parameters
// m declares, and each method name may be bound once.
func (s *Service) Register(m message.Method, h Handler) error {
	if m.Name == "" {
		return errors.New("rpc: method name must not be empty")
	}
	if h.fn == nil {
		return errors.Errorf("rpc: nil handler for method %q", m.Name)
	}
	if h.arity != m.Arity() {
		return errors.Wrapf(rpcerr.ErrArityMismatch, "rpc: method %q declares %d parameters, handler takes %d",
			m.Name, m.Arity(), h.arity)
	}
	seen := make(map[string]bool, m.Arity())
	for _, p := range m.Params {
		key := foldName(p)
		if p == "" || seen[key] {
			return errors.Errorf("rpc: method %q has an empty or duplicate parameter name %q", m.Name, p)
		}
		seen[key] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.method[m.Name]; ok {
		return errors.Wrapf(rpcerr.ErrDuplicateMethod, "rpc: %s.%s", s.name, m.Name)
	}
	s.method[m.Name] = &methodType{method: m, handler: h}
	return nil
}

// MustRegister is Register for static tables built in init code.
func (s *Service) MustRegister(m message.Method, h Handler) *Service {
	if err := s.Register(m, h); err != nil {
		panic(err)
	}
	return s
}

// Methods lists the registered method names, sorted.
func (s *Service) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.method))
	for name := range s.method {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookup matches name exactly.
func (s *Service) lookup(name string) (*methodType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mt, ok := s.method[name]
	return mt, ok
}
