package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/substrate/core"
)

func TestDraftRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	draft := &core.Draft{
		Id:          "draft-1",
		Type:        core.DraftTypeKnowledgeBase,
		WorkspaceId: "ws-1",
		CreatedBy:   "user-1",
		Status:      "draft",
		Data: core.DraftData{
			Name: "Docs KB",
			Sources: []core.Source{
				{Id: "src-1", Type: core.SourceTypeWeb, Location: "https://example.com"},
			},
			Embedding: &core.EmbeddingConfig{Host: "http://localhost:11434/v1", Model: "embeddinggemma", BatchSize: 32},
			Chunking:  &core.ChunkingConfig{Strategy: "recursive", MaxSize: 500, Overlap: 100},
		},
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
		LastSavedAt: now,
	}

	data, err := MarshalDraft(draft)
	require.NoError(t, err)

	got, err := UnmarshalDraft(data)
	require.NoError(t, err)
	assert.Equal(t, draft, got)
}

func TestExecutionRoundTrip(t *testing.T) {
	execution := &core.Execution{
		Id:              "exec-1",
		KnowledgeBaseId: core.IDFromContent("kb"),
		Status:          core.ExecutionStatusRunning,
		Stats: core.ExecutionStats{
			PagesDiscovered: 4,
			PagesScraped:    3,
			PagesFailed:     1,
			ChunksCreated:   17,
		},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	execution.AppendLog("info", "started")

	data, err := MarshalExecution(execution)
	require.NoError(t, err)

	got, err := UnmarshalExecution(data)
	require.NoError(t, err)
	assert.Equal(t, execution.Id, got.Id)
	assert.Equal(t, execution.Status, got.Status)
	assert.Equal(t, execution.Stats, got.Stats)
	require.Len(t, got.Log, 1)
	assert.Equal(t, "started", got.Log[0].Message)
}

func TestUnmarshalDraftCorrupt(t *testing.T) {
	_, err := UnmarshalDraft([]byte("{not json"))
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
