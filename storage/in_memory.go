package storage

import (
	"context"
	"sync"

	"github.com/dealdesk/docgen/core"
)

// InMemoryStore is a trivial in-process DocumentStore implementation useful
// for tests, examples and single-process prototypes. It keeps tenant
// ownership and materialized resources in maps guarded by an RWMutex. Specs
// are cloned on save and retrieval to avoid accidental external mutation.
//
// Layout: parentID -> resourceID -> spec
type InMemoryStore struct {
	mu        sync.RWMutex
	owners    map[string]string                    // documentID -> tenantID
	resources map[string]map[string]core.TableSpec // parentID -> resourceID -> spec
}

// NewInMemoryStore returns an empty in-memory document store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		owners:    make(map[string]string),
		resources: make(map[string]map[string]core.TableSpec),
	}
}

// RegisterDocument records tenant ownership for a document id.
func (s *InMemoryStore) RegisterDocument(documentID, tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[documentID] = tenantID
}

// ValidateOwnership implements core.DocumentStore.
func (s *InMemoryStore) ValidateOwnership(_ context.Context, targetID, tenantID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.owners[targetID]
	return ok && owner == tenantID, nil
}

// MaterializeSecondaryResource implements core.DocumentStore. The spec is
// copied before storage and a fresh resource id is returned.
func (s *InMemoryStore) MaterializeSecondaryResource(_ context.Context, spec core.TableSpec, parentID, tenantID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.owners[parentID]
	if !ok || owner != tenantID {
		return "", ErrNotFound
	}
	if _, exists := s.resources[parentID]; !exists {
		s.resources[parentID] = make(map[string]core.TableSpec)
	}
	id := core.NewID()
	s.resources[parentID][id] = *spec.Clone()
	return id, nil
}

// Resource returns a copy of a materialized resource or ErrNotFound.
func (s *InMemoryStore) Resource(parentID, resourceID string) (core.TableSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.resources[parentID]
	if !ok {
		return core.TableSpec{}, ErrNotFound
	}
	spec, ok := m[resourceID]
	if !ok {
		return core.TableSpec{}, ErrNotFound
	}
	return *spec.Clone(), nil
}

// Resources returns the resource ids materialized under a parent document.
// The slice is a snapshot and safe for caller mutation.
func (s *InMemoryStore) Resources(parentID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.resources[parentID]
	if !ok {
		return []string{}
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids
}
