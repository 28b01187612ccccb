// Package memory provides in-memory implementations for testing.
package memory

import (
	"context"
	"sync"

	"github.com/artpar/envspec/domain/prefix"
	"github.com/artpar/envspec/pkg/ordered"
)

type prefixData struct {
	records *ordered.Map[prefix.Record] // by package name
	envVars *ordered.Map[string]
}

// PrefixStore is an in-memory implementation of ports.PrefixStore.
type PrefixStore struct {
	mu       sync.RWMutex
	prefixes map[string]*prefixData
}

// NewPrefixStore creates a new in-memory prefix store.
func NewPrefixStore() *PrefixStore {
	return &PrefixStore{
		prefixes: make(map[string]*prefixData),
	}
}

func (s *PrefixStore) data(prefixPath string) *prefixData {
	d, ok := s.prefixes[prefixPath]
	if !ok {
		d = &prefixData{records: ordered.New[prefix.Record](), envVars: ordered.New[string]()}
		s.prefixes[prefixPath] = d
	}
	return d
}

// Records returns the package records of a prefix in insertion order.
func (s *PrefixStore) Records(ctx context.Context, prefixPath string) ([]prefix.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.prefixes[prefixPath]
	if !ok {
		return nil, nil
	}
	result := make([]prefix.Record, 0, d.records.Len())
	d.records.Range(func(_ string, r prefix.Record) bool {
		result = append(result, r)
		return true
	})
	return result, nil
}

// EnvVars returns a copy of the prefix's environment variables.
func (s *PrefixStore) EnvVars(ctx context.Context, prefixPath string) (*ordered.Map[string], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.prefixes[prefixPath]
	if !ok {
		return ordered.New[string](), nil
	}
	return d.envVars.Clone(), nil
}

// PutRecord stores a record, replacing any record with the same name.
func (s *PrefixStore) PutRecord(ctx context.Context, prefixPath string, r prefix.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data(prefixPath).records.Set(r.Name, r)
	return nil
}

// SetEnvVar stores an environment variable.
func (s *PrefixStore) SetEnvVar(ctx context.Context, prefixPath, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data(prefixPath).envVars.Set(key, value)
	return nil
}
