package conversation

import (
	"context"
	"time"
)

// Service keys under which the store and the manager are published.
const (
	StoreService   = "conversation.store"
	ManagerService = "conversation.manager"
)

// Store persists conversation records.
// Implementations must be safe for concurrent use, must scope Get, List and
// Delete to the owner at the storage level, and must return copies so callers
// can never mutate stored history in place.
type Store interface {
	// Get returns the conversation with the given ID owned by owner,
	// or ErrNotFound.
	Get(ctx context.Context, id, owner string) (Record, error)

	// Create registers a new, empty conversation for owner with a fresh ID.
	Create(ctx context.Context, owner string) (Record, error)

	// Save upserts rec keyed by rec.ID, replacing its history wholesale and
	// refreshing UpdatedAt. A record owned by someone else is left untouched
	// and ErrNotFound is returned.
	Save(ctx context.Context, rec Record) error

	// List returns all conversations of owner, most recently updated first.
	List(ctx context.Context, owner string) ([]Record, error)

	// Delete removes the conversation with the given ID owned by owner,
	// or returns ErrNotFound.
	Delete(ctx context.Context, id, owner string) error
}

// Pruner is implemented by stores that can drop stale conversations.
type Pruner interface {
	// Prune deletes every conversation last updated before olderThan and
	// returns how many were removed.
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}
