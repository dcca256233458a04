// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/pipeline"
	"github.com/poiesic/substrate/storage"
	"github.com/poiesic/substrate/vector"
)

// ingestOneDocument runs a single text source to completion and returns
// the resulting document.
func ingestOneDocument(t *testing.T, env *testEnv, kb *core.KnowledgeBase) *core.Document {
	t.Helper()

	require.NoError(t, env.db.KnowledgeBases().AddKnowledgeBase(context.Background(), kb))

	source := core.Source{Id: "notes", Type: core.SourceTypeText, Text: pageContent("original")}
	executionId, err := env.orchestrator.Enqueue(context.Background(), kb, []core.Source{source})
	require.NoError(t, err)
	execution := waitTerminal(t, env, executionId)
	require.Equal(t, core.ExecutionStatusCompleted, execution.Status)

	docs, err := env.db.Documents().ListDocuments(context.Background(), kb.Id)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	return docs[0]
}

func chunkUIDs(t *testing.T, env *testEnv, documentId core.ID) []string {
	t.Helper()
	rows, err := env.db.Chunks().GetChunksByDocument(context.Background(), documentId)
	require.NoError(t, err)
	uids := make([]string, len(rows))
	for i, row := range rows {
		uids[i] = row.UID
	}
	return uids
}

func TestReprocessReplacesChunksAndVectors(t *testing.T) {
	env := newTestEnv(t)
	kb := testKB()
	doc := ingestOneDocument(t, env, kb)

	oldUIDs := chunkUIDs(t, env, doc.Id)
	require.NotEmpty(t, oldUIDs)

	err := env.orchestrator.Reprocess(context.Background(), doc.Id, pageContent("rewritten"))
	require.NoError(t, err)

	newUIDs := chunkUIDs(t, env, doc.Id)
	require.NotEmpty(t, newUIDs)
	for _, old := range oldUIDs {
		assert.NotContains(t, newUIDs, old)
	}

	points := env.vectors.Points(kb.Id)
	assert.Len(t, points, len(newUIDs))
	for _, old := range oldUIDs {
		assert.NotContains(t, points, old)
	}
	for _, uid := range newUIDs {
		assert.Contains(t, points, uid)
	}

	updated, err := env.db.Documents().GetDocument(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusCompleted, updated.Status)
	assert.Equal(t, len(newUIDs), updated.ChunkCount)
}

func TestReprocessVectorDeleteFailureParksDocument(t *testing.T) {
	env := newTestEnv(t)
	kb := testKB()
	doc := ingestOneDocument(t, env, kb)

	oldUIDs := chunkUIDs(t, env, doc.Id)
	require.NotEmpty(t, oldUIDs)

	env.vectors.DeleteFunc = func(ctx context.Context, kbId core.ID, ids []string) error {
		return errors.New("qdrant unreachable")
	}

	err := env.orchestrator.Reprocess(context.Background(), doc.Id, pageContent("rewritten"))
	require.ErrorIs(t, err, pipeline.ErrVectorDeleteFailed)

	// Relational rows must be untouched so a retry can still name the
	// stale vectors.
	assert.Equal(t, oldUIDs, chunkUIDs(t, env, doc.Id))

	parked, err := env.db.Documents().GetDocument(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusPendingDeletion, parked.Status)
}

func TestReprocessRetryAfterParkedSucceeds(t *testing.T) {
	env := newTestEnv(t)
	kb := testKB()
	doc := ingestOneDocument(t, env, kb)
	oldUIDs := chunkUIDs(t, env, doc.Id)

	env.vectors.DeleteFunc = func(ctx context.Context, kbId core.ID, ids []string) error {
		return errors.New("qdrant unreachable")
	}
	err := env.orchestrator.Reprocess(context.Background(), doc.Id, pageContent("rewritten"))
	require.ErrorIs(t, err, pipeline.ErrVectorDeleteFailed)

	env.vectors.DeleteFunc = nil
	err = env.orchestrator.Reprocess(context.Background(), doc.Id, pageContent("rewritten"))
	require.NoError(t, err)

	newUIDs := chunkUIDs(t, env, doc.Id)
	require.NotEmpty(t, newUIDs)
	for _, old := range oldUIDs {
		assert.NotContains(t, newUIDs, old)
	}

	recovered, err := env.db.Documents().GetDocument(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusCompleted, recovered.Status)
}

func TestReprocessUpsertFailureRollsBackRows(t *testing.T) {
	env := newTestEnv(t)
	kb := testKB()
	doc := ingestOneDocument(t, env, kb)

	env.vectors.UpsertFunc = func(ctx context.Context, kbId core.ID, points []vector.Point) error {
		return errors.New("write refused")
	}

	err := env.orchestrator.Reprocess(context.Background(), doc.Id, pageContent("rewritten"))
	require.Error(t, err)

	// Old rows are gone and the failed attempt left nothing behind.
	assert.Empty(t, chunkUIDs(t, env, doc.Id))

	failed, err := env.db.Documents().GetDocument(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusFailed, failed.Status)
}

func TestReprocessMissingDocument(t *testing.T) {
	env := newTestEnv(t)
	err := env.orchestrator.Reprocess(context.Background(), core.ID(12345), "some content")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReprocessWithoutContentOrURL(t *testing.T) {
	env := newTestEnv(t)
	kb := testKB()
	doc := ingestOneDocument(t, env, kb)

	// Text-sourced documents have no fetchable URL.
	err := env.orchestrator.Reprocess(context.Background(), doc.Id, "")
	assert.ErrorIs(t, err, pipeline.ErrNoContent)
}
