package memory

import (
	"context"
	"sync"

	"github.com/artpar/envspec/domain/prefix"
	"github.com/artpar/envspec/pkg/ordered"
)

// HistoryStore is an in-memory implementation of ports.HistoryStore.
type HistoryStore struct {
	mu       sync.RWMutex
	requests map[string]*ordered.Map[prefix.RequestedSpec] // prefix -> name -> latest
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		requests: make(map[string]*ordered.Map[prefix.RequestedSpec]),
	}
}

// RequestedSpecs returns the latest request per package, in first-request order.
func (s *HistoryStore) RequestedSpecs(ctx context.Context, prefixPath string) ([]prefix.RequestedSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.requests[prefixPath]
	if !ok {
		return nil, nil
	}
	result := make([]prefix.RequestedSpec, 0, m.Len())
	m.Range(func(_ string, spec prefix.RequestedSpec) bool {
		result = append(result, spec)
		return true
	})
	return result, nil
}

// RecordRequest appends a request.
func (s *HistoryStore) RecordRequest(ctx context.Context, prefixPath string, spec prefix.RequestedSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.requests[prefixPath]
	if !ok {
		m = ordered.New[prefix.RequestedSpec]()
		s.requests[prefixPath] = m
	}
	m.Set(spec.Name, spec)
	return nil
}
