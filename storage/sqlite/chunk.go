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


package sqlite

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/storage"
)

// chunkInsertBatchSize bounds one INSERT statement; SQLite caps bound
// variables per statement.
const chunkInsertBatchSize = 100

// ChunkRepository implements storage.ChunkRepository on gorm/SQLite.
type ChunkRepository struct {
	db *gorm.DB
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// AddChunks persists chunk rows in one batch.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks []*core.ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, chunk := range chunks {
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}
	}
	return r.db.WithContext(ctx).CreateInBatches(chunks, chunkInsertBatchSize).Error
}

// GetChunksByDocument retrieves all chunk rows of a document, ordered by
// chunk index.
func (r *ChunkRepository) GetChunksByDocument(ctx context.Context, documentId core.ID) ([]*core.ChunkRecord, error) {
	var chunks []*core.ChunkRecord
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentId).
		Order("chunk_index").
		Find(&chunks).Error
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// DeleteChunksByDocument removes all chunk rows of a document.
func (r *ChunkRepository) DeleteChunksByDocument(ctx context.Context, documentId core.ID) error {
	return r.db.WithContext(ctx).
		Delete(&core.ChunkRecord{}, "document_id = ?", documentId).Error
}

// CountChunks returns the number of chunk rows in a knowledge base.
func (r *ChunkRepository) CountChunks(ctx context.Context, kbId core.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&core.ChunkRecord{}).
		Where("knowledge_base_id = ?", kbId).
		Count(&count).Error
	return count, err
}
