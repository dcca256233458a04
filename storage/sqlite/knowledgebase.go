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
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/storage"
)

// KnowledgeBaseRepository implements storage.KnowledgeBaseRepository on
// gorm/SQLite.
type KnowledgeBaseRepository struct {
	db *gorm.DB
}

var _ storage.KnowledgeBaseRepository = (*KnowledgeBaseRepository)(nil)

// AddKnowledgeBase persists a new knowledge base.
func (r *KnowledgeBaseRepository) AddKnowledgeBase(ctx context.Context, kb *core.KnowledgeBase) error {
	if kb.CreatedAt.IsZero() {
		kb.CreatedAt = time.Now().UTC()
	}
	kb.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(kb).Error
}

// GetKnowledgeBase retrieves a knowledge base by ID.
func (r *KnowledgeBaseRepository) GetKnowledgeBase(ctx context.Context, id core.ID) (*core.KnowledgeBase, error) {
	var kb core.KnowledgeBase
	err := r.db.WithContext(ctx).First(&kb, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &kb, nil
}

// ListKnowledgeBases retrieves all knowledge bases in a workspace.
func (r *KnowledgeBaseRepository) ListKnowledgeBases(ctx context.Context, workspaceId string) ([]*core.KnowledgeBase, error) {
	var kbs []*core.KnowledgeBase
	q := r.db.WithContext(ctx)
	if workspaceId != "" {
		q = q.Where("workspace_id = ?", workspaceId)
	}
	if err := q.Order("created_at").Find(&kbs).Error; err != nil {
		return nil, err
	}
	return kbs, nil
}

// DeleteKnowledgeBase removes a knowledge base by ID.
func (r *KnowledgeBaseRepository) DeleteKnowledgeBase(ctx context.Context, id core.ID) error {
	res := r.db.WithContext(ctx).Delete(&core.KnowledgeBase{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
