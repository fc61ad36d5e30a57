package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "conduit/pkg/errors"
	"conduit/pkg/models"
)

// Store persists endpoint definitions. The registry keeps the working set in
// memory and writes through to the store.
type Store interface {
	Create(ctx context.Context, endpoint *models.Endpoint) error
	Update(ctx context.Context, endpoint *models.Endpoint) error
	// UpdateHealth writes only the probe result, leaving the definition
	// and the enabled flag untouched.
	UpdateHealth(ctx context.Context, id string, status models.HealthStatus, checkedAt time.Time) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Endpoint, error)
}

type MemoryStore struct {
	mu        sync.RWMutex
	endpoints map[string]models.Endpoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{endpoints: make(map[string]models.Endpoint)}
}

func (s *MemoryStore) Create(_ context.Context, endpoint *models.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.endpoints[endpoint.ID]; exists {
		return apperrors.NewDuplicate("endpoint", endpoint.ID)
	}
	s.endpoints[endpoint.ID] = endpoint.Clone()
	return nil
}

func (s *MemoryStore) Update(_ context.Context, endpoint *models.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.endpoints[endpoint.ID]; !exists {
		return apperrors.NewNotFound("endpoint", endpoint.ID)
	}
	s.endpoints[endpoint.ID] = endpoint.Clone()
	return nil
}

func (s *MemoryStore) UpdateHealth(_ context.Context, id string, status models.HealthStatus, checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ep, exists := s.endpoints[id]
	if !exists {
		return apperrors.NewNotFound("endpoint", id)
	}
	ep.Health = status
	ep.LastCheckedAt = &checkedAt
	s.endpoints[id] = ep
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.endpoints[id]; !exists {
		return apperrors.NewNotFound("endpoint", id)
	}
	delete(s.endpoints, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Endpoint, 0, len(s.endpoints))
	for _, ep := range s.endpoints {
		out = append(out, ep.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
