package adapter

import (
	"errors"
	"io"
	"sort"
	"sync"

	apperrors "conduit/pkg/errors"
)

// Set maps protocol tags to adapters. A tag may be bound only once.
type Set struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewSet fails with ADAPTER_CONFLICT when two adapters share a tag.
func NewSet(adapters ...Adapter) (*Set, error) {
	s := &Set{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if err := s.Register(a); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) Register(a Adapter) error {
	if a == nil || a.Protocol() == "" {
		return apperrors.NewValidation("adapter", "adapter must declare a protocol")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.adapters[a.Protocol()]; exists {
		return apperrors.NewAdapterConflict(a.Protocol())
	}
	s.adapters[a.Protocol()] = a
	return nil
}

func (s *Set) Get(protocol string) (Adapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.adapters[protocol]
	if !ok {
		return nil, apperrors.NewAdapterUnavailable(protocol)
	}
	return a, nil
}

func (s *Set) Protocols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.adapters))
	for p := range s.adapters {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// EndpointReleaser is implemented by adapters that keep per-endpoint state.
type EndpointReleaser interface {
	ReleaseEndpoint(endpointID string)
}

func releaseEndpoint(a Adapter, endpointID string) {
	if r, ok := a.(EndpointReleaser); ok {
		r.ReleaseEndpoint(endpointID)
	}
}

// ReleaseEndpoint lets the adapter bound to protocol forget an endpoint.
func (s *Set) ReleaseEndpoint(protocol, endpointID string) {
	s.mu.RLock()
	a, ok := s.adapters[protocol]
	s.mu.RUnlock()
	if ok {
		releaseEndpoint(a, endpointID)
	}
}

// Close releases the connections held by adapters that own any.
func (s *Set) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs []error
	for _, a := range s.adapters {
		if c, ok := a.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
