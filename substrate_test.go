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


package substrate_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/substrate"
	"github.com/poiesic/substrate/ai"
	aimock "github.com/poiesic/substrate/ai/mock"
	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/pipeline"
	vectormock "github.com/poiesic/substrate/vector/mock"
)

func newTestSubstrate(t *testing.T) (*substrate.Substrate, *vectormock.MockStore) {
	t.Helper()

	vectors := vectormock.NewMockStore()
	embedder := aimock.NewMockEmbedder()
	factory := func(cfg core.EmbeddingConfig) (ai.Embedder, error) { return embedder, nil }

	s, err := substrate.New(t.TempDir(),
		substrate.WithVectorStore(vectors),
		substrate.WithPipelineOptions(
			pipeline.WithEmbedderFactory(factory),
			pipeline.WithRetryPolicy(1, time.Millisecond),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, vectors
}

func TestDraftToDeployedKnowledgeBase(t *testing.T) {
	s, vectors := newTestSubstrate(t)
	ctx := context.Background()

	data := core.DraftData{
		Name: "Product Docs",
		Sources: []core.Source{
			{Type: core.SourceTypeText, Text: strings.Repeat("Substrate ingests documentation into searchable chunks. ", 40)},
		},
		Embedding: &core.EmbeddingConfig{Host: "http://localhost:11434", Model: "embeddinggemma"},
		Chunking:  &core.ChunkingConfig{Strategy: "paragraph", MaxSize: 400, Overlap: 40},
	}

	created, err := s.Drafts().Create(ctx, core.DraftTypeKnowledgeBase, "ws1", "tester", data)
	require.NoError(t, err)

	result, err := s.Drafts().Deploy(ctx, created.Id)
	require.NoError(t, err)
	require.NotEmpty(t, result.ExecutionId)

	// The draft is consumed by a successful deploy.
	_, err = s.Drafts().Get(ctx, created.Id)
	assert.Error(t, err)

	var execution *core.Execution
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		execution, err = s.Executions().GetExecution(ctx, result.ExecutionId)
		require.NoError(t, err)
		if execution.Status.Terminal() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NotNil(t, execution)
	require.Equal(t, core.ExecutionStatusCompleted, execution.Status)
	assert.Positive(t, execution.Stats.ChunksCreated)

	kb, err := s.KnowledgeBases().GetKnowledgeBase(ctx, result.KnowledgeBaseId)
	require.NoError(t, err)
	assert.Equal(t, "Product Docs", kb.Name)

	count, err := s.Chunks().CountChunks(ctx, kb.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(execution.Stats.ChunksCreated), count)
	assert.Len(t, vectors.Points(kb.Id), execution.Stats.ChunksCreated)
}

func TestDeployInvalidDraftRetainsDraft(t *testing.T) {
	s, _ := newTestSubstrate(t)
	ctx := context.Background()

	created, err := s.Drafts().Create(ctx, core.DraftTypeKnowledgeBase, "ws1", "tester", core.DraftData{Name: "No sources"})
	require.NoError(t, err)

	_, err = s.Drafts().Deploy(ctx, created.Id)
	require.Error(t, err)

	// Validation failure leaves the draft editable.
	retained, getErr := s.Drafts().Get(ctx, created.Id)
	require.NoError(t, getErr)
	assert.Equal(t, created.Id, retained.Id)
}
