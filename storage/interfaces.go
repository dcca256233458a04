package storage

import (
	"context"
	"time"

	"github.com/poiesic/substrate/core"
)

// KnowledgeBaseRepository provides operations for knowledge-base records.
// Implementations must be thread-safe and support concurrent access.
type KnowledgeBaseRepository interface {
	// AddKnowledgeBase persists a new knowledge base.
	// Sets CreatedAt if not already set.
	AddKnowledgeBase(ctx context.Context, kb *core.KnowledgeBase) error

	// GetKnowledgeBase retrieves a knowledge base by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetKnowledgeBase(ctx context.Context, id core.ID) (*core.KnowledgeBase, error)

	// ListKnowledgeBases retrieves all knowledge bases in a workspace.
	ListKnowledgeBases(ctx context.Context, workspaceId string) ([]*core.KnowledgeBase, error)

	// DeleteKnowledgeBase removes a knowledge base by ID.
	// Returns ErrNotFound if it doesn't exist.
	DeleteKnowledgeBase(ctx context.Context, id core.ID) error
}

// ChatbotRepository provides operations for chatbot records.
type ChatbotRepository interface {
	// AddChatbot persists a new chatbot.
	AddChatbot(ctx context.Context, bot *core.Chatbot) error

	// GetChatbot retrieves a chatbot by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetChatbot(ctx context.Context, id core.ID) (*core.Chatbot, error)

	// DeleteChatbot removes a chatbot by ID.
	// Returns ErrNotFound if it doesn't exist.
	DeleteChatbot(ctx context.Context, id core.ID) error
}

// DocumentRepository provides operations for document records.
type DocumentRepository interface {
	// AddDocument persists a new document, or updates the existing row
	// when a document with the same ID already exists (re-crawl of the
	// same locator).
	AddDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// ListDocuments retrieves all documents of a knowledge base.
	ListDocuments(ctx context.Context, kbId core.ID) ([]*core.Document, error)

	// UpdateDocumentStatus sets the document status and touches UpdatedAt.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocumentStatus(ctx context.Context, id core.ID, status core.DocumentStatus) error

	// UpdateDocument persists the full document row.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocument(ctx context.Context, doc *core.Document) error

	// DeleteDocument removes a document by ID.
	// Returns ErrNotFound if it doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error
}

// ChunkRepository provides operations for durable chunk rows. Rows are
// written in bulk per document and deleted by document, never mutated
// individually.
type ChunkRepository interface {
	// AddChunks persists chunk rows in one batch.
	AddChunks(ctx context.Context, chunks []*core.ChunkRecord) error

	// GetChunksByDocument retrieves all chunk rows of a document,
	// ordered by chunk index.
	GetChunksByDocument(ctx context.Context, documentId core.ID) ([]*core.ChunkRecord, error)

	// DeleteChunksByDocument removes all chunk rows of a document.
	// Deleting a document with no chunks is not an error.
	DeleteChunksByDocument(ctx context.Context, documentId core.ID) error

	// CountChunks returns the number of chunk rows in a knowledge base.
	CountChunks(ctx context.Context, kbId core.ID) (int64, error)
}

// DraftStore is the keyed TTL port backing the draft lifecycle. A draft
// that is never touched again disappears when its TTL lapses; every Set
// re-arms the clock.
type DraftStore interface {
	// SetDraft writes a draft with the given time-to-live, replacing any
	// existing entry and restarting its expiry.
	SetDraft(ctx context.Context, draft *core.Draft, ttl time.Duration) error

	// GetDraft retrieves a draft by ID.
	// Returns ErrNotFound if it doesn't exist or has expired.
	GetDraft(ctx context.Context, id string) (*core.Draft, error)

	// DeleteDraft removes a draft by ID. Deleting an absent draft
	// returns ErrNotFound.
	DeleteDraft(ctx context.Context, id string) error

	// ListDrafts retrieves all live drafts, optionally filtered by
	// workspace (empty string means all workspaces).
	ListDrafts(ctx context.Context, workspaceId string) ([]*core.Draft, error)

	// Close releases the store's resources.
	Close() error
}

// ExecutionStore persists pipeline executions for the retention window.
// Writes happen after every unit of work; reads may come from concurrent
// status pollers and must never block the writer.
type ExecutionStore interface {
	// PutExecution writes the execution state, replacing any previous
	// snapshot.
	PutExecution(ctx context.Context, execution *core.Execution) error

	// GetExecution retrieves an execution by ID.
	// Returns ErrNotFound if it doesn't exist or has aged out.
	GetExecution(ctx context.Context, id string) (*core.Execution, error)

	// ListExecutions retrieves all retained executions, optionally
	// filtered by knowledge base (zero ID means all).
	ListExecutions(ctx context.Context, kbId core.ID) ([]*core.Execution, error)

	// Close releases the store's resources.
	Close() error
}
