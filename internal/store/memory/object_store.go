// Package memory stores partition fragments in-memory for tests and
// development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ObjectStore keeps fragments in a map and returns pseudo URIs.
type ObjectStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailPuts forces Put errors, for exercising storage failure paths.
	FailPuts bool
}

// New creates a new in-memory object store.
func New() *ObjectStore {
	return &ObjectStore{data: make(map[string][]byte)}
}

// Put persists a copy of the content and returns a memory:// URI.
func (s *ObjectStore) Put(_ context.Context, path string, _ string, data []byte) (string, error) {
	if s.FailPuts {
		return "", fmt.Errorf("put %s: store unavailable", path)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", path), nil
}

// Get returns a copy of the content at path.
func (s *ObjectStore) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[path]
	if !ok {
		return nil, fmt.Errorf("object %s not found", path)
	}
	return append([]byte(nil), data...), nil
}

// List returns the sorted paths under prefix.
func (s *ObjectStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for path := range s.data {
		if strings.HasPrefix(path, prefix) {
			names = append(names, path)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Len reports the number of stored objects.
func (s *ObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
