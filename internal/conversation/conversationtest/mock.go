// Package conversationtest provides test helpers for the conversation package.
package conversationtest

import (
	"context"
	"sync"
	"time"

	"github.com/earmeout/earmeout/internal/conversation"
)

// MockStore wraps an in-memory store with injectable errors and call
// counters. Zero value is not usable; create with NewMockStore.
type MockStore struct {
	inner *conversation.InMemoryStore

	mu        sync.Mutex
	GetErr    error
	CreateErr error
	SaveErr   error
	ListErr   error
	DeleteErr error

	GetCalls    int
	CreateCalls int
	SaveCalls   int
	ListCalls   int
	DeleteCalls int
}

// NewMockStore returns an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{inner: conversation.NewInMemoryStore()}
}

// Get implements conversation.Store.
func (m *MockStore) Get(ctx context.Context, id, owner string) (conversation.Record, error) {
	m.mu.Lock()
	m.GetCalls++
	err := m.GetErr
	m.mu.Unlock()
	if err != nil {
		return conversation.Record{}, err
	}
	return m.inner.Get(ctx, id, owner)
}

// Create implements conversation.Store.
func (m *MockStore) Create(ctx context.Context, owner string) (conversation.Record, error) {
	m.mu.Lock()
	m.CreateCalls++
	err := m.CreateErr
	m.mu.Unlock()
	if err != nil {
		return conversation.Record{}, err
	}
	return m.inner.Create(ctx, owner)
}

// Save implements conversation.Store.
func (m *MockStore) Save(ctx context.Context, rec conversation.Record) error {
	m.mu.Lock()
	m.SaveCalls++
	err := m.SaveErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.inner.Save(ctx, rec)
}

// List implements conversation.Store.
func (m *MockStore) List(ctx context.Context, owner string) ([]conversation.Record, error) {
	m.mu.Lock()
	m.ListCalls++
	err := m.ListErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.inner.List(ctx, owner)
}

// Delete implements conversation.Store.
func (m *MockStore) Delete(ctx context.Context, id, owner string) error {
	m.mu.Lock()
	m.DeleteCalls++
	err := m.DeleteErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.inner.Delete(ctx, id, owner)
}

// Prune implements conversation.Pruner.
func (m *MockStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	return m.inner.Prune(ctx, olderThan)
}

// Calls returns the total number of Store method calls.
func (m *MockStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GetCalls + m.CreateCalls + m.SaveCalls + m.ListCalls + m.DeleteCalls
}

// Interface guards.
var (
	_ conversation.Store  = (*MockStore)(nil)
	_ conversation.Pruner = (*MockStore)(nil)
)
