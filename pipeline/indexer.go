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


package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/substrate/ai"
	"github.com/poiesic/substrate/chunk"
	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/storage"
	"github.com/poiesic/substrate/vector"
)

// indexer is the chunk-embed-index path shared by ingestion and
// reprocessing. It writes relational rows before vector points so the
// vector store never references a chunk that has no durable row.
type indexer struct {
	chunks      storage.ChunkRepository
	vectors     vector.Store
	splitter    *chunk.Splitter
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// clearDocument removes a document's existing vector points and chunk
// rows, vector store first. When the vector deletion cannot be
// confirmed the rows are left untouched and the error wraps
// ErrVectorDeleteFailed, so the caller can park the document and retry
// the whole operation later.
func (ix *indexer) clearDocument(ctx context.Context, kbId, documentId core.ID) error {
	rows, err := ix.chunks.GetChunksByDocument(ctx, documentId)
	if err != nil {
		return fmt.Errorf("loading chunks for document %d: %w", documentId, err)
	}
	if len(rows) == 0 {
		return nil
	}

	uids := make([]string, len(rows))
	for i, row := range rows {
		uids[i] = row.UID
	}
	operation := func() error {
		return ix.vectors.Delete(ctx, kbId, uids)
	}
	if err := RetryWithBackoff(ctx, operation, ix.maxAttempts, ix.baseDelay); err != nil {
		return fmt.Errorf("%w: document %d: %v", ErrVectorDeleteFailed, documentId, err)
	}

	if err := ix.chunks.DeleteChunksByDocument(ctx, documentId); err != nil {
		return fmt.Errorf("deleting chunk rows for document %d: %w", documentId, err)
	}
	return nil
}

// indexDocument chunks content per the knowledge base's configuration,
// embeds the chunks, persists chunk rows and upserts the vectors. It
// returns the number of chunks created. Nothing is written when any
// stage fails; a failed vector upsert rolls the rows back.
func (ix *indexer) indexDocument(ctx context.Context, kb *core.KnowledgeBase, doc *core.Document, embedder ai.Embedder, content string) (int, error) {
	strategy, err := chunk.ParseStrategy(kb.Chunking.Strategy)
	if err != nil {
		return 0, fmt.Errorf("resolving chunking strategy: %w", err)
	}
	cfg := chunk.Config{MaxSize: kb.Chunking.MaxSize, Overlap: kb.Chunking.Overlap}

	// The semantic strategy measures similarity with the knowledge
	// base's own embedder.
	splitter := ix.splitter
	if strategy == chunk.StrategySemantic {
		splitter = chunk.NewSplitter(chunk.WithEmbedder(embedder))
	}

	pieces, err := splitter.Chunk(ctx, content, strategy, cfg)
	if err != nil {
		return 0, fmt.Errorf("chunking document %d: %w", doc.Id, err)
	}
	if len(pieces) == 0 {
		return 0, nil
	}

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Content
	}

	var result *ai.BatchResult
	operation := func() error {
		var embedErr error
		result, embedErr = ai.EmbedInBatches(ctx, embedder, texts, kb.Embedding.BatchSize)
		if embedErr != nil {
			return embedErr
		}
		if len(result.Failed) > 0 {
			return fmt.Errorf("%w: %d of %d chunks", ErrEmbeddingFailed, len(result.Failed), len(texts))
		}
		return nil
	}
	if err := RetryWithBackoff(ctx, operation, ix.maxAttempts, ix.baseDelay); err != nil {
		return 0, fmt.Errorf("embedding document %d: %w", doc.Id, err)
	}

	if err := ix.vectors.EnsureCollection(ctx, kb.Id, len(result.Vectors[0])); err != nil {
		return 0, fmt.Errorf("ensuring collection for knowledge base %d: %w", kb.Id, err)
	}

	now := time.Now().UTC()
	records := make([]*core.ChunkRecord, len(pieces))
	points := make([]vector.Point, len(pieces))
	for i, p := range pieces {
		uid := uuid.NewString()
		records[i] = &core.ChunkRecord{
			UID:             uid,
			DocumentId:      doc.Id,
			KnowledgeBaseId: kb.Id,
			ChunkIndex:      p.Index,
			Content:         p.Content,
			StartOffset:     p.Start,
			EndOffset:       p.End,
			Tokens:          p.Tokens,
			CreatedAt:       now,
		}
		points[i] = vector.Point{
			ID:     uid,
			Vector: NormalizeVector(result.Vectors[i]),
			Payload: map[string]any{
				"document_id":       fmt.Sprintf("%d", doc.Id),
				"knowledge_base_id": fmt.Sprintf("%d", kb.Id),
				"chunk_index":       p.Index,
				"content":           p.Content,
			},
		}
	}

	if err := ix.chunks.AddChunks(ctx, records); err != nil {
		return 0, fmt.Errorf("persisting chunks for document %d: %w", doc.Id, err)
	}
	if err := ix.vectors.Upsert(ctx, kb.Id, points); err != nil {
		if rbErr := ix.chunks.DeleteChunksByDocument(ctx, doc.Id); rbErr != nil {
			ix.logger.Error("failed to roll back chunk rows after vector upsert failure",
				"documentId", doc.Id, "error", rbErr)
		}
		return 0, fmt.Errorf("indexing vectors for document %d: %w", doc.Id, err)
	}

	return len(pieces), nil
}
