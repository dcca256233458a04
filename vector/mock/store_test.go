package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/vector"
)

func TestSearchFiltersByPayload(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()
	kbId := core.IDFromContent("kb")

	require.NoError(t, store.EnsureCollection(ctx, kbId, 2))
	require.NoError(t, store.Upsert(ctx, kbId, []vector.Point{
		{ID: "a", Vector: []float32{1, 0}, Payload: map[string]any{"document_id": "1"}},
		{ID: "b", Vector: []float32{0.9, 0}, Payload: map[string]any{"document_id": "1"}},
		{ID: "c", Vector: []float32{0.8, 0}, Payload: map[string]any{"document_id": "2"}},
	}))

	matches, err := store.Search(ctx, kbId, []float32{1, 0}, nil, 10)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	// best first
	assert.Equal(t, "a", matches[0].ID)

	matches, err = store.Search(ctx, kbId, []float32{1, 0}, map[string]string{"document_id": "2"}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "c", matches[0].ID)

	matches, err = store.Search(ctx, kbId, []float32{1, 0}, map[string]string{"document_id": "missing"}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = store.Search(ctx, kbId, []float32{1, 0}, map[string]string{"document_id": "1"}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ID)
}
