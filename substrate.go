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


// Package substrate assembles the knowledge-base ingestion system:
// relational storage, the draft staging store, the vector index, the
// draft lifecycle manager, and the ingestion pipeline.
package substrate

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/draft"
	"github.com/poiesic/substrate/pipeline"
	"github.com/poiesic/substrate/scrape"
	"github.com/poiesic/substrate/storage"
	badgerstore "github.com/poiesic/substrate/storage/badger"
	"github.com/poiesic/substrate/storage/sqlite"
	"github.com/poiesic/substrate/vector"
	"github.com/poiesic/substrate/vector/qdrant"
)

// Substrate owns every subsystem and their shutdown order.
type Substrate struct {
	db           *sqlite.DB
	backend      *badgerstore.Backend
	drafts       storage.DraftStore
	executions   storage.ExecutionStore
	vectors      vector.Store
	manager      *draft.Manager
	orchestrator *pipeline.Orchestrator
	logger       *slog.Logger
}

// Option configures a Substrate.
type Option func(*options)

type options struct {
	draftTTL           time.Duration
	executionRetention time.Duration
	qdrantConfig       *qdrant.Config
	vectors            vector.Store
	draftStore         storage.DraftStore
	pipelineOpts       []pipeline.Option
}

// WithDraftTTL overrides how long untouched drafts live.
func WithDraftTTL(ttl time.Duration) Option {
	return func(o *options) { o.draftTTL = ttl }
}

// WithExecutionRetention overrides how long finished executions are
// kept for status queries.
func WithExecutionRetention(retention time.Duration) Option {
	return func(o *options) { o.executionRetention = retention }
}

// WithQdrantConfig points the vector store at a specific qdrant
// instance.
func WithQdrantConfig(config *qdrant.Config) Option {
	return func(o *options) { o.qdrantConfig = config }
}

// WithVectorStore substitutes the vector store, bypassing qdrant.
func WithVectorStore(store vector.Store) Option {
	return func(o *options) { o.vectors = store }
}

// WithDraftStore substitutes the draft staging store, for example a
// redis-backed one shared between processes.
func WithDraftStore(store storage.DraftStore) Option {
	return func(o *options) { o.draftStore = store }
}

// WithPipelineOptions passes options through to the orchestrator.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(o *options) { o.pipelineOpts = append(o.pipelineOpts, opts...) }
}

// New opens all stores under dataDir and wires the subsystems together.
func New(dataDir string, opts ...Option) (*Substrate, error) {
	// Apply options
	options := &options{
		draftTTL: draft.DefaultTTL,
	}
	for _, opt := range opts {
		opt(options)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	// Open relational storage
	db, err := sqlite.Open(filepath.Join(dataDir, "substrate.db"))
	if err != nil {
		return nil, err
	}

	// Open the badger backend for drafts and executions
	backend, err := badgerstore.OpenBackend(filepath.Join(dataDir, "staging"), false)
	if err != nil {
		db.Close()
		return nil, err
	}

	draftStore := options.draftStore
	if draftStore == nil {
		draftStore = badgerstore.NewDraftStore(backend)
	}
	executionStore := badgerstore.NewExecutionStore(backend, options.executionRetention)

	// Connect the vector store
	vectors := options.vectors
	if vectors == nil {
		qdrantConfig := options.qdrantConfig
		if qdrantConfig == nil {
			qdrantConfig = qdrant.DefaultConfig()
		}
		vectors, err = qdrant.NewStore(qdrantConfig)
		if err != nil {
			backend.Close()
			db.Close()
			return nil, err
		}
	}

	// Build the ingestion pipeline
	orchestrator, err := pipeline.NewOrchestrator(
		db.KnowledgeBases(), db.Documents(), db.Chunks(), executionStore,
		vectors, scrape.NewWebScraper(), options.pipelineOpts...)
	if err != nil {
		vectors.Close()
		backend.Close()
		db.Close()
		return nil, err
	}

	// Build the draft lifecycle around the pipeline
	manager := draft.NewManager(draftStore,
		draft.WithTTL(options.draftTTL),
		draft.WithDeployer(core.DraftTypeKnowledgeBase, draft.NewKnowledgeBaseDeployer(db.KnowledgeBases(), orchestrator)),
		draft.WithDeployer(core.DraftTypeChatbot, draft.NewChatbotDeployer(db.Chatbots(), nil)),
	)

	return &Substrate{
		db:           db,
		backend:      backend,
		drafts:       draftStore,
		executions:   executionStore,
		vectors:      vectors,
		manager:      manager,
		orchestrator: orchestrator,
		logger:       slog.Default(),
	}, nil
}

// Close shuts the subsystems down, pipeline first so no run writes into
// a closed store.
func (s *Substrate) Close() error {
	s.orchestrator.Release()

	if err := s.vectors.Close(); err != nil {
		s.logger.Error("error closing vector store", "err", err)
	}
	if err := s.drafts.Close(); err != nil {
		s.logger.Error("error closing draft store", "err", err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing staging backend", "err", err)
		return err
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("error closing relational store", "err", err)
		return err
	}
	return nil
}

// Drafts returns the draft lifecycle manager.
func (s *Substrate) Drafts() *draft.Manager {
	return s.manager
}

// Pipeline returns the ingestion orchestrator.
func (s *Substrate) Pipeline() *pipeline.Orchestrator {
	return s.orchestrator
}

// Executions returns the execution store for status queries.
func (s *Substrate) Executions() storage.ExecutionStore {
	return s.executions
}

// KnowledgeBases returns the knowledge-base repository.
func (s *Substrate) KnowledgeBases() storage.KnowledgeBaseRepository {
	return s.db.KnowledgeBases()
}

// Documents returns the document repository.
func (s *Substrate) Documents() storage.DocumentRepository {
	return s.db.Documents()
}

// Chunks returns the chunk repository.
func (s *Substrate) Chunks() storage.ChunkRepository {
	return s.db.Chunks()
}

// Vectors returns the vector store.
func (s *Substrate) Vectors() vector.Store {
	return s.vectors
}
