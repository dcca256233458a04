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
	"log/slog"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/poiesic/substrate/core"
)

// DB wraps a gorm connection holding the relational records: knowledge
// bases, documents and chunk rows.
type DB struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open opens (and migrates) the SQLite database at path. Use ":memory:"
// for an in-memory database in tests.
func Open(path string) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&core.KnowledgeBase{}, &core.Document{}, &core.ChunkRecord{}, &core.Chatbot{}); err != nil {
		return nil, err
	}

	return &DB{
		db:     db,
		logger: slog.Default().With("component", "sqlite"),
	}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// KnowledgeBases returns the knowledge-base repository.
func (d *DB) KnowledgeBases() *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{db: d.db}
}

// Documents returns the document repository.
func (d *DB) Documents() *DocumentRepository {
	return &DocumentRepository{db: d.db}
}

// Chunks returns the chunk repository.
func (d *DB) Chunks() *ChunkRepository {
	return &ChunkRepository{db: d.db}
}

// Chatbots returns the chatbot repository.
func (d *DB) Chatbots() *ChatbotRepository {
	return &ChatbotRepository{db: d.db}
}
