package conversation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/earmeout/earmeout/internal/conversation"
)

func TestInMemoryStore_CreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := conversation.NewInMemoryStore()
	rec, err := store.Create(ctx, "alice")
	if err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("Create: empty ID")
	}
	if rec.History == nil || len(rec.History) != 0 {
		t.Errorf("Create: history = %v, want empty non-nil", rec.History)
	}

	got, err := store.Get(ctx, rec.ID, "alice")
	if err != nil {
		t.Fatalf("Get: unexpected error: %v", err)
	}
	if got.ID != rec.ID || got.Owner != "alice" {
		t.Errorf("Get = %+v, want id %s owner alice", got, rec.ID)
	}
}

func TestInMemoryStore_CreateGeneratesDistinctIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := conversation.NewInMemoryStore()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		rec, err := store.Create(ctx, "alice")
		if err != nil {
			t.Fatalf("Create: unexpected error: %v", err)
		}
		if seen[rec.ID] {
			t.Fatalf("duplicate ID %s", rec.ID)
		}
		seen[rec.ID] = true
	}
}

func TestInMemoryStore_OwnerIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := conversation.NewInMemoryStore()
	rec, _ := store.Create(ctx, "alice")

	if _, err := store.Get(ctx, rec.ID, "bob"); !errors.Is(err, conversation.ErrNotFound) {
		t.Errorf("Get as bob: err = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, rec.ID, "bob"); !errors.Is(err, conversation.ErrNotFound) {
		t.Errorf("Delete as bob: err = %v, want ErrNotFound", err)
	}

	foreign := rec
	foreign.Owner = "bob"
	foreign.History = conversation.History{{Role: conversation.RoleUser, Content: "hijack"}}
	if err := store.Save(ctx, foreign); !errors.Is(err, conversation.ErrNotFound) {
		t.Errorf("Save as bob: err = %v, want ErrNotFound", err)
	}

	got, err := store.Get(ctx, rec.ID, "alice")
	if err != nil {
		t.Fatalf("Get as alice: unexpected error: %v", err)
	}
	if len(got.History) != 0 {
		t.Errorf("history = %v, want untouched", got.History)
	}

	list, _ := store.List(ctx, "bob")
	if len(list) != 0 {
		t.Errorf("List(bob) = %d records, want 0", len(list))
	}
}

func TestInMemoryStore_SaveReplacesHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := conversation.NewInMemoryStore()
	rec, _ := store.Create(ctx, "alice")

	rec.History = numbered(4)
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: unexpected error: %v", err)
	}
	rec.History = numbered(2)
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: unexpected error: %v", err)
	}

	got, _ := store.Get(ctx, rec.ID, "alice")
	if len(got.History) != 2 {
		t.Errorf("len(history) = %d, want 2", len(got.History))
	}
}

func TestInMemoryStore_SaveInsertsUnknown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := conversation.NewInMemoryStore()
	rec := conversation.Record{ID: "c-1", Owner: "alice", History: numbered(2)}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: unexpected error: %v", err)
	}

	got, err := store.Get(ctx, "c-1", "alice")
	if err != nil {
		t.Fatalf("Get: unexpected error: %v", err)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Errorf("timestamps not set: %+v", got)
	}
}

func TestInMemoryStore_ReadsAreCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := conversation.NewInMemoryStore()
	rec, _ := store.Create(ctx, "alice")
	rec.History = numbered(2)
	_ = store.Save(ctx, rec)

	// Mutating the saved slice must not reach the store.
	rec.History[0].Content = "mutated"

	got, _ := store.Get(ctx, rec.ID, "alice")
	got.History[1].Content = "mutated too"

	again, _ := store.Get(ctx, rec.ID, "alice")
	if again.History[0].Content != "m1" || again.History[1].Content != "m2" {
		t.Errorf("history = %v, want [m1 m2]", again.History)
	}
}

func TestInMemoryStore_ListNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := conversation.NewInMemoryStore()
	var ids []string
	for i := 0; i < 3; i++ {
		rec, _ := store.Create(ctx, "alice")
		ids = append(ids, rec.ID)
		time.Sleep(2 * time.Millisecond)
	}
	_, _ = store.Create(ctx, "bob")

	// Touch the first one so it becomes the most recent.
	first, _ := store.Get(ctx, ids[0], "alice")
	first.History = numbered(1)
	_ = store.Save(ctx, first)

	list, err := store.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: unexpected error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	want := []string{ids[0], ids[2], ids[1]}
	for i, rec := range list {
		if rec.ID != want[i] {
			t.Errorf("list[%d] = %s, want %s", i, rec.ID, want[i])
		}
	}
}

func TestInMemoryStore_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := conversation.NewInMemoryStore()
	rec, _ := store.Create(ctx, "alice")

	if err := store.Delete(ctx, rec.ID, "alice"); err != nil {
		t.Fatalf("Delete: unexpected error: %v", err)
	}
	if _, err := store.Get(ctx, rec.ID, "alice"); !errors.Is(err, conversation.ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, rec.ID, "alice"); !errors.Is(err, conversation.ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestInMemoryStore_Prune(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := conversation.NewInMemoryStore()
	old, _ := store.Create(ctx, "alice")
	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	fresh, _ := store.Create(ctx, "alice")

	n, err := store.Prune(ctx, cutoff)
	if err != nil {
		t.Fatalf("Prune: unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}
	if _, err := store.Get(ctx, old.ID, "alice"); !errors.Is(err, conversation.ErrNotFound) {
		t.Errorf("old still present: err = %v", err)
	}
	if _, err := store.Get(ctx, fresh.ID, "alice"); err != nil {
		t.Errorf("fresh removed: %v", err)
	}
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := conversation.NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			owner := fmt.Sprintf("user-%d", i%4)
			rec, err := store.Create(ctx, owner)
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			rec.History = numbered(i%5 + 1)
			if err := store.Save(ctx, rec); err != nil {
				t.Errorf("Save: %v", err)
			}
			if _, err := store.List(ctx, owner); err != nil {
				t.Errorf("List: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if store.Len() != 20 {
		t.Errorf("Len = %d, want 20", store.Len())
	}
}
