package blob

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/prepdeck/backend/internal/apperr"
	"github.com/prepdeck/backend/internal/model"
)

// MemStore is an in-memory Store for tests and for running the server
// without object storage credentials.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string]model.Question
}

// NewMemStore creates an empty in-memory blob store.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string]model.Question)}
}

// Put stores the question under id.
func (m *MemStore) Put(_ context.Context, id string, q model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[id] = q
	return nil
}

// Get returns the question stored under id.
func (m *MemStore) Get(_ context.Context, id string) (model.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.objects[id]
	if !ok {
		return model.Question{}, &apperr.NotFoundError{Kind: "question", ID: id}
	}
	return q, nil
}

// GetMany returns the stored questions for ids, omitting missing ones.
func (m *MemStore) GetMany(_ context.Context, ids []string) ([]model.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := m.objects[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// List returns all stored IDs matching the prefix, sorted.
func (m *MemStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id := range m.objects {
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Len returns the number of stored objects.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
