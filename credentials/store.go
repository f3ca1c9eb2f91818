package credentials

import (
	"maps"
	nethttp "net/http"
	"strings"
	"sync"
)

const (
	// HeaderAuthorization is the header carrying the access token
	HeaderAuthorization = "Authorization"

	bearerPrefix = "Bearer "
)

// Store is a concurrency-safe set of credential headers.
type Store struct {
	mu      sync.RWMutex
	headers map[string]string
	version uint64
}

// NewStore creates a store seeded with initial headers.
func NewStore(initial map[string]string) *Store {
	s := &Store{headers: make(map[string]string, len(initial))}
	for k, v := range initial {
		if v == "" {
			continue
		}
		s.headers[nethttp.CanonicalHeaderKey(k)] = v
	}
	return s
}

// Merge writes every entry of headers over the stored set in one step.
// An empty value removes the header. Readers never observe a partial merge.
func (s *Store) Merge(headers map[string]string) {
	if len(headers) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range headers {
		key := nethttp.CanonicalHeaderKey(k)
		if v == "" {
			delete(s.headers, key)
			continue
		}
		s.headers[key] = v
	}
	s.version++
}

// Set stores a single header.
func (s *Store) Set(name, value string) {
	s.Merge(map[string]string{name: value})
}

// SetBearer stores an Authorization header of the form "Bearer <token>".
func (s *Store) SetBearer(token string) {
	if token == "" {
		s.Delete(HeaderAuthorization)
		return
	}
	s.Set(HeaderAuthorization, bearerPrefix+token)
}

// Delete removes a header.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := nethttp.CanonicalHeaderKey(name)
	if _, ok := s.headers[key]; !ok {
		return
	}
	delete(s.headers, key)
	s.version++
}

// Clear drops every stored header, e.g. on logout.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.headers) == 0 {
		return
	}
	s.headers = make(map[string]string)
	s.version++
}

// Get returns a single header value.
func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.headers[nethttp.CanonicalHeaderKey(name)]
	return v, ok
}

// Snapshot returns a copy of the stored headers.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.headers)
}

// Version increments on every mutation that changed the store.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// ApplyTo sets every stored header on h, overwriting existing values.
func (s *Store) ApplyTo(h nethttp.Header) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.headers {
		h.Set(k, v)
	}
}

// BearerToken returns the raw token of a "Bearer" Authorization header.
func (s *Store) BearerToken() (string, bool) {
	v, ok := s.Get(HeaderAuthorization)
	if !ok {
		return "", false
	}
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(v[len(bearerPrefix):])
	return token, token != ""
}
