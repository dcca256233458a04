package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/vector"
)

// MockStore is a test double for vector.Store.
// It allows custom behavior injection via function fields and keeps an
// in-memory point map as the default behavior.
type MockStore struct {
	// EnsureCollectionFunc is called by EnsureCollection if set.
	EnsureCollectionFunc func(ctx context.Context, kbId core.ID, dimensions int) error

	// UpsertFunc is called by Upsert if set.
	UpsertFunc func(ctx context.Context, kbId core.ID, points []vector.Point) error

	// DeleteFunc is called by Delete if set.
	DeleteFunc func(ctx context.Context, kbId core.ID, ids []string) error

	// SearchFunc is called by Search if set.
	SearchFunc func(ctx context.Context, kbId core.ID, query []float32, filter map[string]string, limit int) ([]vector.Match, error)

	mu          sync.Mutex
	collections map[string]map[string]vector.Point
	callCount   int
}

// NewMockStore creates a mock store with an empty in-memory index.
func NewMockStore() *MockStore {
	return &MockStore{collections: map[string]map[string]vector.Point{}}
}

// EnsureCollection creates the in-memory collection.
func (m *MockStore) EnsureCollection(ctx context.Context, kbId core.ID, dimensions int) error {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.EnsureCollectionFunc != nil {
		return m.EnsureCollectionFunc(ctx, kbId, dimensions)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	name := vector.CollectionName(kbId)
	if m.collections[name] == nil {
		m.collections[name] = map[string]vector.Point{}
	}
	return nil
}

// Upsert stores points in the in-memory collection.
func (m *MockStore) Upsert(ctx context.Context, kbId core.ID, points []vector.Point) error {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, kbId, points)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	name := vector.CollectionName(kbId)
	if m.collections[name] == nil {
		m.collections[name] = map[string]vector.Point{}
	}
	for _, p := range points {
		m.collections[name][p.ID] = p
	}
	return nil
}

// Delete removes points from the in-memory collection.
func (m *MockStore) Delete(ctx context.Context, kbId core.ID, ids []string) error {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, kbId, ids)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	name := vector.CollectionName(kbId)
	for _, id := range ids {
		delete(m.collections[name], id)
	}
	return nil
}

// Search ranks in-memory points by dot product against the query,
// skipping points whose payload does not match the filter.
func (m *MockStore) Search(ctx context.Context, kbId core.ID, query []float32, filter map[string]string, limit int) ([]vector.Match, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, kbId, query, filter, limit)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var matches []vector.Match
	for _, p := range m.collections[vector.CollectionName(kbId)] {
		if !payloadMatches(p.Payload, filter) {
			continue
		}
		var score float32
		for i := 0; i < len(query) && i < len(p.Vector); i++ {
			score += query[i] * p.Vector[i]
		}
		matches = append(matches, vector.Match{ID: p.ID, Score: score, Payload: p.Payload})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Count returns the number of points in the in-memory collection.
func (m *MockStore) Count(ctx context.Context, kbId core.ID) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	return uint64(len(m.collections[vector.CollectionName(kbId)])), nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// Points returns a copy of the stored points for a knowledge base, for
// test assertions.
func (m *MockStore) Points(kbId core.ID) map[string]vector.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]vector.Point{}
	for id, p := range m.collections[vector.CollectionName(kbId)] {
		out[id] = p
	}
	return out
}

// CallCount returns the number of times any method was called.
func (m *MockStore) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func payloadMatches(payload map[string]any, filter map[string]string) bool {
	for field, want := range filter {
		got, ok := payload[field]
		if !ok || fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}
