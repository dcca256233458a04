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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/substrate/ai"
	"github.com/poiesic/substrate/ai/openai"
	"github.com/poiesic/substrate/chunk"
	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/scrape"
	"github.com/poiesic/substrate/storage"
	"github.com/poiesic/substrate/vector"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 500 * time.Millisecond
)

// EmbedderFactory builds an embedder for a knowledge base's embedding
// configuration. Each execution gets its own embedder because different
// knowledge bases may point at different hosts and models.
type EmbedderFactory func(cfg core.EmbeddingConfig) (ai.Embedder, error)

func defaultEmbedderFactory(cfg core.EmbeddingConfig) (ai.Embedder, error) {
	opts := []ai.ConfigOption{}
	if cfg.Host != "" {
		opts = append(opts, ai.WithHost(cfg.Host))
	}
	if cfg.Model != "" {
		opts = append(opts, ai.WithModel(cfg.Model))
	}
	if cfg.BatchSize > 0 {
		opts = append(opts, ai.WithBatchSize(cfg.BatchSize))
	}
	return openai.NewEmbedder(ai.NewConfig(opts...))
}

// Orchestrator runs ingestion executions on a background worker pool,
// tracking per-execution progress and supporting cooperative
// cancellation. Enqueue returns as soon as the execution is staged;
// progress is observed through the execution store.
type Orchestrator struct {
	kbs        storage.KnowledgeBaseRepository
	documents  storage.DocumentRepository
	executions storage.ExecutionStore
	scraper    scrape.Scraper
	factory    EmbedderFactory
	indexer    *indexer
	pool       *ants.Pool
	logger     *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithPoolSize sets the worker pool size for background executions.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		pool, err := ants.NewPool(size)
		if err != nil {
			return fmt.Errorf("failed to create worker pool: %w", err)
		}
		if o.pool != nil {
			o.pool.Release()
		}
		o.pool = pool
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		o.logger = logger
		return nil
	}
}

// WithEmbedderFactory overrides how embedders are constructed.
func WithEmbedderFactory(factory EmbedderFactory) Option {
	return func(o *Orchestrator) error {
		o.factory = factory
		return nil
	}
}

// WithSplitter sets the chunking splitter.
func WithSplitter(splitter *chunk.Splitter) Option {
	return func(o *Orchestrator) error {
		o.indexer.splitter = splitter
		return nil
	}
}

// WithRetryPolicy sets the retry bounds for embedding and vector store
// calls.
func WithRetryPolicy(maxAttempts int, baseDelay time.Duration) Option {
	return func(o *Orchestrator) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		o.indexer.maxAttempts = maxAttempts
		o.indexer.baseDelay = baseDelay
		return nil
	}
}

// NewOrchestrator creates an orchestrator over the given stores. The
// default pool sizes to half the CPU count.
func NewOrchestrator(
	kbs storage.KnowledgeBaseRepository,
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	executions storage.ExecutionStore,
	vectors vector.Store,
	scraper scrape.Scraper,
	opts ...Option,
) (*Orchestrator, error) {
	if kbs == nil {
		return nil, ErrKnowledgeBaseRepositoryRequired
	}
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if executions == nil {
		return nil, ErrExecutionStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if scraper == nil {
		return nil, ErrScraperRequired
	}

	logger := slog.Default().With("component", "pipeline")
	o := &Orchestrator{
		kbs:        kbs,
		documents:  documents,
		executions: executions,
		scraper:    scraper,
		factory:    defaultEmbedderFactory,
		logger:     logger,
		cancels:    make(map[string]context.CancelFunc),
		indexer: &indexer{
			chunks:      chunks,
			vectors:     vectors,
			splitter:    chunk.NewSplitter(),
			maxAttempts: defaultRetryAttempts,
			baseDelay:   defaultRetryDelay,
			logger:      logger,
		},
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	o.pool = pool

	for _, opt := range opts {
		if err := opt(o); err != nil {
			o.pool.Release()
			return nil, err
		}
	}
	o.indexer.logger = o.logger
	return o, nil
}

// Release shuts down the worker pool. In-flight executions keep their
// goroutines; new Enqueue calls will fail.
func (o *Orchestrator) Release() {
	o.pool.Release()
}

// Enqueue stages an execution for the knowledge base and returns its ID
// immediately. The run proceeds on the worker pool with a context
// detached from the caller's; cancellation goes through Cancel.
func (o *Orchestrator) Enqueue(ctx context.Context, kb *core.KnowledgeBase, sources []core.Source) (string, error) {
	execution := &core.Execution{
		Id:              uuid.NewString(),
		KnowledgeBaseId: kb.Id,
		Status:          core.ExecutionStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := o.executions.PutExecution(ctx, execution); err != nil {
		return "", fmt.Errorf("staging execution: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.cancels[execution.Id] = cancel
	o.mu.Unlock()

	kbCopy := *kb
	submitErr := o.pool.Submit(func() {
		defer o.forget(execution.Id)
		o.run(runCtx, execution, &kbCopy, sources)
	})
	if submitErr != nil {
		o.forget(execution.Id)
		execution.Status = core.ExecutionStatusFailed
		execution.Error = submitErr.Error()
		if err := o.executions.PutExecution(ctx, execution); err != nil {
			o.logger.Warn("failed to persist execution state", "executionId", execution.Id, "error", err)
		}
		return "", fmt.Errorf("submitting execution: %w", submitErr)
	}

	o.logger.Info("execution enqueued", "executionId", execution.Id, "knowledgeBaseId", kb.Id, "sources", len(sources))
	return execution.Id, nil
}

// Cancel requests cooperative cancellation of a running execution. The
// run finishes its current page and stops at the next boundary.
func (o *Orchestrator) Cancel(executionId string) error {
	o.mu.Lock()
	cancel, ok := o.cancels[executionId]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutionNotRunning, executionId)
	}
	cancel()
	return nil
}

// Status returns the latest persisted snapshot of an execution.
func (o *Orchestrator) Status(ctx context.Context, executionId string) (*core.Execution, error) {
	return o.executions.GetExecution(ctx, executionId)
}

func (o *Orchestrator) forget(executionId string) {
	o.mu.Lock()
	cancel, ok := o.cancels[executionId]
	delete(o.cancels, executionId)
	o.mu.Unlock()
	if ok {
		cancel()
	}
}

// run drives one execution to a terminal state. Every page outcome is
// persisted before the next page starts.
func (o *Orchestrator) run(ctx context.Context, execution *core.Execution, kb *core.KnowledgeBase, sources []core.Source) {
	tracker := NewTracker(o.executions, execution, o.logger)

	if ctx.Err() != nil {
		tracker.Update(func(e *core.Execution) {
			e.Status = core.ExecutionStatusCancelled
			e.FinishedAt = time.Now().UTC()
			e.AppendLog("info", "execution cancelled before it started")
		})
		return
	}

	tracker.Update(func(e *core.Execution) {
		e.Status = core.ExecutionStatusRunning
		e.StartedAt = time.Now().UTC()
	})

	embedder, err := o.factory(kb.Embedding)
	if err != nil {
		o.finishFailed(tracker, fmt.Sprintf("building embedder: %v", err))
		return
	}

	for _, source := range sources {
		if ctx.Err() != nil {
			o.finishCancelled(tracker)
			return
		}
		if cancelled := o.processSource(ctx, tracker, kb, embedder, source); cancelled {
			o.finishCancelled(tracker)
			return
		}
	}

	o.finish(tracker)
}

// processSource expands one source into pages and ingests them. It
// reports whether the run was cancelled mid-source.
func (o *Orchestrator) processSource(ctx context.Context, tracker *Tracker, kb *core.KnowledgeBase, embedder ai.Embedder, source core.Source) bool {
	results, err := o.collect(ctx, source)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		tracker.Update(func(e *core.Execution) {
			e.Stats.PagesDiscovered++
			e.Stats.PagesFailed++
			e.AppendLog("error", fmt.Sprintf("source %s: %v", source.Id, err))
		})
		return false
	}

	tracker.Update(func(e *core.Execution) {
		e.Stats.PagesDiscovered += len(results)
	})

	for _, result := range results {
		if ctx.Err() != nil {
			return true
		}
		if result.Err != nil {
			tracker.Update(func(e *core.Execution) {
				e.Stats.PagesFailed++
				e.AppendLog("error", fmt.Sprintf("page %s: %v", result.URL, result.Err))
			})
			continue
		}
		// The page in flight runs to completion; cancellation takes
		// effect at the next page boundary.
		o.processPage(context.WithoutCancel(ctx), tracker, kb, embedder, source, result.Page)
	}
	return false
}

// collect turns a source into scrape results. Text and file sources
// yield exactly one page.
func (o *Orchestrator) collect(ctx context.Context, source core.Source) ([]scrape.Result, error) {
	switch source.Type {
	case core.SourceTypeWeb:
		cfg := scrapeConfig(source.Web)
		if cfg.MaxPages <= 1 {
			page, err := o.scraper.ScrapeSingle(ctx, source.Location, cfg)
			if err != nil {
				return []scrape.Result{{URL: source.Location, Err: err}}, nil
			}
			return []scrape.Result{{URL: source.Location, Page: page}}, nil
		}
		return o.scraper.Crawl(ctx, source.Location, cfg)

	case core.SourceTypeText:
		if strings.TrimSpace(source.Text) == "" {
			return nil, ErrNoContent
		}
		return []scrape.Result{{
			URL: "text:" + source.Id,
			Page: &scrape.Page{
				URL:     "text:" + source.Id,
				Title:   firstLine(source.Text),
				Content: source.Text,
			},
		}}, nil

	case core.SourceTypeFile:
		data, err := os.ReadFile(source.Location)
		if err != nil {
			return []scrape.Result{{URL: source.Location, Err: err}}, nil
		}
		if len(data) == 0 {
			return []scrape.Result{{URL: source.Location, Err: ErrNoContent}}, nil
		}
		return []scrape.Result{{
			URL: source.Location,
			Page: &scrape.Page{
				URL:     source.Location,
				Title:   filepath.Base(source.Location),
				Content: string(data),
			},
		}}, nil
	}
	return nil, fmt.Errorf("unknown source type %q", source.Type)
}

// processPage materializes one page as a document and indexes it. Page
// failures are recorded and do not stop the run.
func (o *Orchestrator) processPage(ctx context.Context, tracker *Tracker, kb *core.KnowledgeBase, embedder ai.Embedder, source core.Source, page *scrape.Page) {
	doc := &core.Document{
		Id:              core.IDFromContent(page.URL),
		KnowledgeBaseId: kb.Id,
		SourceId:        source.Id,
		URL:             page.URL,
		Title:           page.Title,
		Status:          core.DocumentStatusProcessing,
		CharCount:       len(page.Content),
	}
	if err := o.documents.AddDocument(ctx, doc); err != nil {
		o.pageFailed(tracker, page.URL, fmt.Errorf("persisting document: %w", err))
		return
	}

	// A re-crawled document may still carry rows and vectors from a
	// previous execution.
	if err := o.indexer.clearDocument(ctx, kb.Id, doc.Id); err != nil {
		o.parkOrFail(ctx, tracker, doc, err)
		return
	}

	count, err := o.indexer.indexDocument(ctx, kb, doc, embedder, page.Content)
	if err != nil {
		if statusErr := o.documents.UpdateDocumentStatus(ctx, doc.Id, core.DocumentStatusFailed); statusErr != nil {
			o.logger.Warn("failed to mark document failed", "documentId", doc.Id, "error", statusErr)
		}
		o.pageFailed(tracker, page.URL, err)
		return
	}

	doc.Status = core.DocumentStatusCompleted
	doc.ChunkCount = count
	if err := o.documents.UpdateDocument(ctx, doc); err != nil {
		o.pageFailed(tracker, page.URL, fmt.Errorf("finalizing document: %w", err))
		return
	}

	tracker.Update(func(e *core.Execution) {
		e.Stats.PagesScraped++
		e.Stats.ChunksCreated += count
		e.Stats.EmbeddingsGenerated += count
		e.Stats.VectorsIndexed += count
	})
}

func (o *Orchestrator) pageFailed(tracker *Tracker, url string, err error) {
	tracker.Update(func(e *core.Execution) {
		e.Stats.PagesFailed++
		e.AppendLog("error", fmt.Sprintf("page %s: %v", url, err))
	})
}

// parkOrFail handles a failed clear of a previously indexed document. An
// unconfirmed vector deletion parks the document in pending_deletion so
// nothing new gets written over possibly live vectors.
func (o *Orchestrator) parkOrFail(ctx context.Context, tracker *Tracker, doc *core.Document, err error) {
	status := core.DocumentStatusFailed
	if errors.Is(err, ErrVectorDeleteFailed) {
		status = core.DocumentStatusPendingDeletion
	}
	if statusErr := o.documents.UpdateDocumentStatus(ctx, doc.Id, status); statusErr != nil {
		o.logger.Warn("failed to update document status", "documentId", doc.Id, "error", statusErr)
	}
	o.pageFailed(tracker, doc.URL, err)
}

// finish resolves the terminal state from the stats: all failed means
// failed, some failed means completed with warnings.
func (o *Orchestrator) finish(tracker *Tracker) {
	tracker.Update(func(e *core.Execution) {
		stats := e.Stats
		switch {
		case stats.PagesDiscovered == 0:
			e.Status = core.ExecutionStatusCompleted
			e.AppendLog("warn", "no pages discovered")
		case stats.PagesFailed > 0 && stats.PagesScraped == 0:
			e.Status = core.ExecutionStatusFailed
			e.Error = fmt.Sprintf("all %d pages failed", stats.PagesFailed)
		case stats.PagesFailed > 0:
			e.Status = core.ExecutionStatusCompletedWithWarnings
		default:
			e.Status = core.ExecutionStatusCompleted
		}
		e.FinishedAt = time.Now().UTC()
	})
	snapshot := tracker.Snapshot()
	o.logger.Info("execution finished",
		"executionId", snapshot.Id,
		"status", snapshot.Status,
		"pagesScraped", snapshot.Stats.PagesScraped,
		"pagesFailed", snapshot.Stats.PagesFailed)
}

func (o *Orchestrator) finishCancelled(tracker *Tracker) {
	tracker.Update(func(e *core.Execution) {
		e.Status = core.ExecutionStatusCancelled
		e.FinishedAt = time.Now().UTC()
		e.AppendLog("info", "execution cancelled")
	})
	o.logger.Info("execution cancelled", "executionId", tracker.Snapshot().Id)
}

func (o *Orchestrator) finishFailed(tracker *Tracker, message string) {
	tracker.Update(func(e *core.Execution) {
		e.Status = core.ExecutionStatusFailed
		e.Error = message
		e.FinishedAt = time.Now().UTC()
		e.AppendLog("error", message)
	})
	o.logger.Error("execution failed", "executionId", tracker.Snapshot().Id, "error", message)
}

// scrapeConfig maps a source's web configuration onto crawl bounds,
// falling back to package defaults for unset fields.
func scrapeConfig(web *core.WebSourceConfig) *scrape.Config {
	cfg := scrape.DefaultConfig()
	cfg.MaxPages = 1
	if web == nil {
		return cfg
	}
	if web.MaxPages > 0 {
		cfg.MaxPages = web.MaxPages
	}
	if web.MaxDepth > 0 {
		cfg.MaxDepth = web.MaxDepth
	}
	if web.Delay > 0 {
		cfg.Delay = web.Delay
	}
	cfg.IncludePatterns = web.IncludePatterns
	cfg.ExcludePatterns = web.ExcludePatterns
	return cfg
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 80 {
			line = line[:80]
		}
		return line
	}
	return ""
}
