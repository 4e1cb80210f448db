// Package memory provides in-memory adapters for tests and local runs.
//
// All adapters are safe for concurrent use. Data is lost on process restart.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
	"github.com/archon-research/alchemist-indexer/internal/ports/outbound"
)

// Compile-time check that EntityStore implements outbound.EntityStore
var _ outbound.EntityStore = (*EntityStore)(nil)

type storeKey struct {
	kind entity.Kind
	id   string
}

// EntityStore keeps JSON-encoded entities in a map. Callers always receive
// independent copies, matching what a database-backed store returns.
type EntityStore struct {
	mu      sync.RWMutex
	records map[storeKey][]byte
	saveErr error
	saves   int
}

// NewEntityStore creates an empty store.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		records: make(map[storeKey][]byte),
	}
}

// Load returns a copy of the entity stored under (kind, id), or nil, nil.
func (s *EntityStore) Load(ctx context.Context, kind entity.Kind, id string) (entity.Entity, error) {
	s.mu.RLock()
	data, ok := s.records[storeKey{kind: kind, id: id}]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	e, err := entity.NewEmpty(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("failed to decode %s %s: %w", kind, id, err)
	}
	return e, nil
}

// SaveAll encodes every entity before taking the lock, so a bad entity leaves
// the store untouched.
func (s *EntityStore) SaveAll(ctx context.Context, entities []entity.Entity) error {
	encoded := make(map[storeKey][]byte, len(entities))
	for _, e := range entities {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s: %w", e.EntityKind(), e.EntityID(), err)
		}
		encoded[storeKey{kind: e.EntityKind(), id: e.EntityID()}] = data
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	for k, data := range encoded {
		s.records[k] = data
	}
	s.saves++
	return nil
}

// FailSaves makes every later SaveAll return err. A nil err restores normal
// behavior.
func (s *EntityStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// Saves returns the number of successful SaveAll calls.
func (s *EntityStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Count returns the number of stored entities of kind.
func (s *EntityStore) Count(kind entity.Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.records {
		if k.kind == kind {
			n++
		}
	}
	return n
}

// IDs returns the sorted IDs stored under kind.
func (s *EntityStore) IDs(kind entity.Kind) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for k := range s.records {
		if k.kind == kind {
			ids = append(ids, k.id)
		}
	}
	sort.Strings(ids)
	return ids
}
