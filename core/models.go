package core

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// Value implements driver.Valuer. IDs are stored bit-cast as int64:
// database/sql rejects uint64 values with the high bit set, and
// content-derived IDs land in that range about half the time.
func (id ID) Value() (driver.Value, error) {
	return int64(id), nil
}

// Scan implements sql.Scanner, reversing the int64 bit-cast.
func (id *ID) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*id = 0
	case int64:
		*id = ID(uint64(v))
	case uint64:
		*id = ID(v)
	default:
		return fmt.Errorf("cannot scan %T into ID", value)
	}
	return nil
}

// IDFromContent generates a deterministic ID from text using BLAKE2b
// hashing, so that identical content produces identical IDs. Document
// IDs are derived from the source locator this way, which makes
// re-crawls of the same URL idempotent.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SourceType identifies what kind of input a source is.
type SourceType string

const (
	// SourceTypeWeb is a crawled or single-page web source.
	SourceTypeWeb SourceType = "web"
	// SourceTypeText is raw text supplied directly by the caller.
	SourceTypeText SourceType = "text"
	// SourceTypeFile is a pre-extracted file on local disk.
	SourceTypeFile SourceType = "file"
)

// WebSourceConfig controls how a web source is scraped.
type WebSourceConfig struct {
	// MaxPages bounds the number of pages a crawl may visit. 1 means
	// single-page scrape.
	MaxPages int `json:"max_pages"`

	// MaxDepth bounds link-following depth from the start URL.
	MaxDepth int `json:"max_depth"`

	// IncludePatterns, when non-empty, restricts crawling to URLs
	// matching at least one of the patterns.
	IncludePatterns []string `json:"include_patterns,omitempty"`

	// ExcludePatterns skips URLs matching any of the patterns.
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`

	// Delay is the politeness delay between page fetches.
	Delay time.Duration `json:"delay"`
}

// Source is one input to a knowledge base. It is owned by exactly one
// draft until deployment, after which its content is materialized into
// documents.
type Source struct {
	Id       string           `json:"id"`
	Type     SourceType       `json:"type"`
	Location string           `json:"location"` // URL or file path; empty for text sources
	Text     string           `json:"text,omitempty"`
	Web      *WebSourceConfig `json:"web,omitempty"`
}

// ChunkingConfig selects and parameterizes the chunking strategy for a
// knowledge base. Strategy is kept as a string here for serialization;
// the chunk package resolves it to a closed enum and rejects unknown
// names before any pipeline work starts.
type ChunkingConfig struct {
	Strategy string `json:"strategy"`
	MaxSize  int    `json:"max_size"`
	Overlap  int    `json:"overlap"`
}

// EmbeddingConfig identifies the embedding backend for a knowledge base.
type EmbeddingConfig struct {
	Host      string `json:"host"`
	Model     string `json:"model"`
	BatchSize int    `json:"batch_size"`
}

// KnowledgeBase is the durable record a knowledge-base draft deploys
// into. Its ID doubles as the vector store collection key.
type KnowledgeBase struct {
	Id          ID             `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	WorkspaceId string         `json:"workspace_id" gorm:"index"`
	CreatedBy   string         `json:"created_by"`
	Embedding   EmbeddingConfig `json:"embedding" gorm:"embedded;embeddedPrefix:embedding_"`
	Chunking    ChunkingConfig  `json:"chunking" gorm:"embedded;embeddedPrefix:chunking_"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DocumentStatus tracks a document through ingestion and reprocessing.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"

	// DocumentStatusPendingDeletion marks a document whose vector-store
	// deletion failed during reprocessing. Its relational chunk rows are
	// intact and a retry of the same reprocess operation is safe.
	DocumentStatusPendingDeletion DocumentStatus = "pending_deletion"
)

// Document is one scraped page or supplied text materialized under a
// knowledge base. Its ID is derived from the source locator so that
// re-crawling the same URL hits the same document.
type Document struct {
	Id              ID             `json:"id" gorm:"primaryKey"`
	KnowledgeBaseId ID             `json:"knowledge_base_id" gorm:"index"`
	SourceId        string         `json:"source_id"`
	URL             string         `json:"url"`
	Title           string         `json:"title"`
	Status          DocumentStatus `json:"status"`
	CharCount       int            `json:"char_count"`
	ChunkCount      int            `json:"chunk_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Chunk is the chunking engine's output unit: a bounded slice of a
// document's text plus positional metadata. Chunks are produced fresh on
// every chunking invocation and never mutated; re-chunking yields a new
// ordered list.
type Chunk struct {
	// Content is the chunk text.
	Content string

	// Index is the zero-based position within the source document.
	Index int

	// Start and End are byte offsets of the chunk within the original
	// text. For strategies that synthesize content (overlap carry-over,
	// merged sections) the span covers the region the content was drawn
	// from.
	Start int
	End   int

	// Tokens is the estimated token count, used for downstream batching.
	Tokens int
}

// ChunkRecord is the durable counterpart of a Chunk. It exists in two
// systems at once: this relational row and a vector store point sharing
// the same UID. The reprocessing protocol keeps the two 1:1.
type ChunkRecord struct {
	// UID is the stable external identifier shared with the vector
	// store entry. Deletion is keyed on it, never on ChunkIndex, so
	// re-chunking that reorders chunks cannot collide with stale
	// vectors.
	UID string `json:"uid" gorm:"primaryKey;size:36"`

	DocumentId      ID     `json:"document_id" gorm:"uniqueIndex:idx_doc_chunk,priority:1"`
	KnowledgeBaseId ID     `json:"knowledge_base_id" gorm:"index"`
	ChunkIndex      int    `json:"chunk_index" gorm:"uniqueIndex:idx_doc_chunk,priority:2"`
	Content         string `json:"content"`
	StartOffset     int    `json:"start_offset"`
	EndOffset       int    `json:"end_offset"`
	Tokens          int    `json:"tokens"`
	CreatedAt       time.Time `json:"created_at"`
}

// Chatbot is the durable record a chatbot draft deploys into. Channel
// registration happens as best-effort side effects after the record is
// written; ChannelsJSON holds the configured channels as JSON.
type Chatbot struct {
	Id           ID        `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	WorkspaceId  string    `json:"workspace_id" gorm:"index"`
	CreatedBy    string    `json:"created_by"`
	ChannelsJSON string    `json:"channels_json"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DraftType declares what kind of entity a draft will deploy into.
type DraftType string

const (
	DraftTypeKnowledgeBase DraftType = "knowledge_base"
	DraftTypeChatbot       DraftType = "chatbot"
)

// ChannelConfig describes one delivery channel of a chatbot draft.
type ChannelConfig struct {
	Type     string            `json:"type"`
	Enabled  bool              `json:"enabled"`
	Settings map[string]string `json:"settings,omitempty"`
}

// DraftData is the mutable payload of a draft: everything the caller is
// still assembling before deployment.
type DraftData struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Sources     []Source         `json:"sources,omitempty"`
	Embedding   *EmbeddingConfig `json:"embedding,omitempty"`
	Chunking    *ChunkingConfig  `json:"chunking,omitempty"`
	Channels    []ChannelConfig  `json:"channels,omitempty"`
}

// Draft is a staged, TTL-bound definition of an entity prior to commit.
// A draft whose TTL entry has expired is indistinguishable from one that
// never existed.
type Draft struct {
	Id          string         `json:"id"`
	Type        DraftType      `json:"type"`
	WorkspaceId string         `json:"workspace_id"`
	CreatedBy   string         `json:"created_by"`
	Status      string         `json:"status"` // always "draft" while staged
	Data        DraftData      `json:"data"`
	Preview     map[string]any `json:"preview,omitempty"` // derived, non-authoritative
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
	LastSavedAt time.Time      `json:"last_saved_at"`
}

// ExecutionStatus is the pipeline execution state machine. Transitions
// are monotone forward; see CanTransition.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"

	// ExecutionStatusCompletedWithWarnings is the distinct terminal
	// state for runs where some units of work failed but others
	// succeeded.
	ExecutionStatusCompletedWithWarnings ExecutionStatus = "completed_with_warnings"

	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status is a terminal state.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusCompletedWithWarnings,
		ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal forward
// transition. Terminal states accept no transitions and no state ever
// returns to pending.
func (s ExecutionStatus) CanTransition(next ExecutionStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case ExecutionStatusPending:
		return next == ExecutionStatusRunning || next.Terminal()
	case ExecutionStatusRunning:
		return next.Terminal()
	}
	return false
}

// ExecutionStats is the statistics block of one pipeline run.
type ExecutionStats struct {
	PagesDiscovered     int `json:"pages_discovered"`
	PagesScraped        int `json:"pages_scraped"`
	PagesFailed         int `json:"pages_failed"`
	ChunksCreated       int `json:"chunks_created"`
	EmbeddingsGenerated int `json:"embeddings_generated"`
	VectorsIndexed      int `json:"vectors_indexed"`
}

// LogEntry is one line of an execution's append-only log.
type LogEntry struct {
	At      time.Time `json:"at"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// MaxExecutionLogEntries caps the execution log; older entries are
// dropped from the front once the cap is reached.
const MaxExecutionLogEntries = 200

// Execution is one run of the ingestion pipeline against one knowledge
// base. It is created when a draft deploys, mutated only by the
// orchestrator and explicit cancellation, and retained for a bounded
// window before being purged.
type Execution struct {
	Id              string          `json:"id"`
	KnowledgeBaseId ID              `json:"knowledge_base_id"`
	Status          ExecutionStatus `json:"status"`
	Stats           ExecutionStats  `json:"stats"`
	Log             []LogEntry      `json:"log,omitempty"`
	Error           string          `json:"error,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       time.Time       `json:"started_at,omitzero"`
	FinishedAt      time.Time       `json:"finished_at,omitzero"`
}

// AppendLog adds an entry to the execution log, enforcing the size cap.
func (e *Execution) AppendLog(level, message string) {
	e.Log = append(e.Log, LogEntry{At: time.Now().UTC(), Level: level, Message: message})
	if over := len(e.Log) - MaxExecutionLogEntries; over > 0 {
		e.Log = e.Log[over:]
	}
}

// Progress returns a completion percentage derived from the stats block.
// It is a read-only projection for status pollers.
func (e *Execution) Progress() float64 {
	if e.Status.Terminal() {
		return 100
	}
	total := e.Stats.PagesDiscovered
	if total == 0 {
		return 0
	}
	done := e.Stats.PagesScraped + e.Stats.PagesFailed
	if done > total {
		done = total
	}
	return float64(done) / float64(total) * 100
}
