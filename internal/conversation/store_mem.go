package conversation

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a thread-safe, process-lifetime Store. It is the fallback
// used when no persistent store is configured: contents are lost on restart
// and the owner supplied by the caller is trusted as-is.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record

	// now and newID are injectable for deterministic tests.
	now   func() time.Time
	newID func() string
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*Record),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Compile-time interface checks.
var (
	_ Store  = (*InMemoryStore)(nil)
	_ Pruner = (*InMemoryStore)(nil)
)

// Get returns a copy of the conversation if it exists and belongs to owner.
func (s *InMemoryStore) Get(_ context.Context, id, owner string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok || rec.Owner != owner {
		return Record{}, ErrNotFound
	}
	return rec.Clone(), nil
}

// Create registers an empty conversation under a fresh UUID.
func (s *InMemoryStore) Create(_ context.Context, owner string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := &Record{
		ID:        s.newID(),
		Owner:     owner,
		History:   History{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.records[rec.ID] = rec
	return rec.Clone(), nil
}

// Save replaces the stored history of rec.ID, inserting the record if it
// does not exist yet.
func (s *InMemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, ok := s.records[rec.ID]
	if ok {
		if existing.Owner != rec.Owner {
			return ErrNotFound
		}
		existing.History = rec.History.Clone()
		existing.UpdatedAt = now
		return nil
	}

	stored := rec.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.records[rec.ID] = &stored
	return nil
}

// List returns copies of all conversations of owner, newest update first.
func (s *InMemoryStore) List(_ context.Context, owner string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0)
	for _, rec := range s.records {
		if rec.Owner == owner {
			out = append(out, rec.Clone())
		}
	}
	slices.SortFunc(out, func(a, b Record) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Delete removes the conversation if it belongs to owner.
func (s *InMemoryStore) Delete(_ context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.Owner != owner {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// Prune removes conversations last updated before olderThan.
func (s *InMemoryStore) Prune(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, rec := range s.records {
		if rec.UpdatedAt.Before(olderThan) {
			delete(s.records, id)
			pruned++
		}
	}
	return pruned, nil
}

// Len returns the number of stored conversations across all owners.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
