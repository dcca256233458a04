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
	"gorm.io/gorm/clause"

	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/storage"
)

// DocumentRepository implements storage.DocumentRepository on gorm/SQLite.
type DocumentRepository struct {
	db *gorm.DB
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// AddDocument persists a new document, or updates the existing row when
// a document with the same ID already exists. Document IDs are derived
// from the source locator, so a re-crawl of the same URL lands here.
func (r *DocumentRepository) AddDocument(ctx context.Context, doc *core.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(doc).Error
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc core.Document
	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// ListDocuments retrieves all documents of a knowledge base.
func (r *DocumentRepository) ListDocuments(ctx context.Context, kbId core.ID) ([]*core.Document, error) {
	var docs []*core.Document
	err := r.db.WithContext(ctx).
		Where("knowledge_base_id = ?", kbId).
		Order("created_at").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// UpdateDocumentStatus sets the document status and touches UpdatedAt.
func (r *DocumentRepository) UpdateDocumentStatus(ctx context.Context, id core.ID, status core.DocumentStatus) error {
	res := r.db.WithContext(ctx).Model(&core.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateDocument persists the full document row.
func (r *DocumentRepository) UpdateDocument(ctx context.Context, doc *core.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	// Select("*") forces zero-valued fields (cleared counts, reset
	// status) to be written as well.
	res := r.db.WithContext(ctx).Model(&core.Document{}).
		Where("id = ?", doc.Id).
		Select("*").
		Updates(doc)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document by ID.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id core.ID) error {
	res := r.db.WithContext(ctx).Delete(&core.Document{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
