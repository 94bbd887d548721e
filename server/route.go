package server

import (
	"httprpc/resolver"
	"httprpc/rpcerr"
	"path"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// Registration maps a path key (e.g. "arith" or "v1/store") to the service served
// under it. Keys must be unique and no key may be a suffix of another.
type Registration map[string]*resolver.Service

// routeTable is the read-only view of a Registration for one server run.
type routeTable struct {
	basePath string
	// trimmed keys, sorted
	keys     []string
	services map[string]*resolver.Service
	// trimmed request path → key
	matches *lru.Cache
}

func newRouteTable(basePath string, reg Registration, cacheSize int) (*routeTable, error) {
	if len(reg) == 0 {
		return nil, rpcerr.ErrNoServices
	}

	t := &routeTable{
		basePath: "/" + strings.Trim(basePath, "/"),
		services: make(map[string]*resolver.Service, len(reg)),
	}
	for raw, svc := range reg {
		key := strings.Trim(raw, "/")
		if key == "" {
			return nil, errors.Errorf("rpc: empty service key %q", raw)
		}
		if svc == nil {
			return nil, errors.Errorf("rpc: nil service for key %q", raw)
		}
		if _, dup := t.services[key]; dup {
			return nil, errors.Wrapf(rpcerr.ErrOverlappingKeys, "rpc: key %q registered twice", key)
		}
		t.services[key] = svc
		t.keys = append(t.keys, key)
	}
	sort.Strings(t.keys)

	for _, a := range t.keys {
		for _, b := range t.keys {
			if a != b && strings.HasSuffix(a, b) {
				return nil, errors.Wrapf(rpcerr.ErrOverlappingKeys, "rpc: %q ends with %q", a, b)
			}
		}
	}

	if cacheSize <= 0 {
		cacheSize = len(t.keys) * 2
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "rpc: match cache")
	}
	t.matches = cache
	return t, nil
}

// prefix is the listener prefix derived for key, with a trailing separator.
func (t *routeTable) prefix(key string) string {
	return path.Join(t.basePath, key) + "/"
}

// match compares the trimmed request path against every key by suffix; the first
// match wins. Keys never overlap, so at most one can match.
func (t *routeTable) match(requestPath string) (string, *resolver.Service, bool) {
	p := strings.Trim(requestPath, "/")
	if v, ok := t.matches.Get(p); ok {
		key := v.(string)
		return key, t.services[key], true
	}
	for _, key := range t.keys {
		if strings.HasSuffix(p, key) {
			t.matches.Add(p, key)
			return key, t.services[key], true
		}
	}
	return "", nil, false
}
