// Package memory provides an in-process scenario store used when no
// database is configured and in tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
)

// record keeps the serialized scenario plus the fields List filters and
// sorts on.
type record struct {
	seq       uint64
	data      []byte
	owner     *string
	createdAt time.Time
}

// Store keeps scenarios as serialized JSON so callers never share state
// with the stored copy.
type Store struct {
	mu      sync.RWMutex
	records map[string]record
	seq     uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]record)}
}

// Save upserts a scenario. An existing id keeps its list position.
func (s *Store) Save(_ context.Context, sc domain.Scenario) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode scenario %s: %w", sc.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sc.ID]
	if !ok {
		s.seq++
		rec.seq = s.seq
	}
	rec.data = data
	rec.owner = nil
	if sc.OwnerID != nil {
		o := *sc.OwnerID
		rec.owner = &o
	}
	rec.createdAt = sc.CreatedAt
	s.records[sc.ID] = rec
	return nil
}

// Get returns a private copy of the scenario.
func (s *Store) Get(_ context.Context, id string) (domain.Scenario, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return domain.Scenario{}, fmt.Errorf("%w: scenario %s", domain.ErrNotFound, id)
	}
	return decode(rec.data)
}

// List returns up to limit scenarios, newest first. A nil owner lists all.
func (s *Store) List(_ context.Context, owner *string, limit int) ([]domain.Scenario, error) {
	s.mu.RLock()
	matched := make([]record, 0, len(s.records))
	for _, rec := range s.records {
		if owner != nil && (rec.owner == nil || *rec.owner != *owner) {
			continue
		}
		matched = append(matched, rec)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].createdAt, matched[j].createdAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return matched[i].seq > matched[j].seq
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]domain.Scenario, 0, len(matched))
	for _, rec := range matched {
		sc, err := decode(rec.data)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// Delete removes a scenario.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: scenario %s", domain.ErrNotFound, id)
	}
	delete(s.records, id)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Len returns the number of stored scenarios.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func decode(data []byte) (domain.Scenario, error) {
	var sc domain.Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return domain.Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	return sc, nil
}
