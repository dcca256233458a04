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


package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/substrate/ai"
	aimock "github.com/poiesic/substrate/ai/mock"
	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/pipeline"
	"github.com/poiesic/substrate/scrape"
	scrapemock "github.com/poiesic/substrate/scrape/mock"
	badgerstore "github.com/poiesic/substrate/storage/badger"
	"github.com/poiesic/substrate/storage/sqlite"
	vectormock "github.com/poiesic/substrate/vector/mock"
)

type testEnv struct {
	orchestrator *pipeline.Orchestrator
	db           *sqlite.DB
	vectors      *vectormock.MockStore
	scraper      *scrapemock.MockScraper
	embedder     *aimock.MockEmbedder
}

func newTestEnv(t *testing.T, opts ...pipeline.Option) *testEnv {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "substrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, execs, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	vectors := vectormock.NewMockStore()
	scraper := scrapemock.NewMockScraper()
	embedder := aimock.NewMockEmbedder()
	factory := func(cfg core.EmbeddingConfig) (ai.Embedder, error) {
		return embedder, nil
	}

	defaults := []pipeline.Option{
		pipeline.WithEmbedderFactory(factory),
		pipeline.WithRetryPolicy(1, time.Millisecond),
	}
	orchestrator, err := pipeline.NewOrchestrator(
		db.KnowledgeBases(), db.Documents(), db.Chunks(), execs, vectors, scraper,
		append(defaults, opts...)...)
	require.NoError(t, err)
	t.Cleanup(orchestrator.Release)

	return &testEnv{
		orchestrator: orchestrator,
		db:           db,
		vectors:      vectors,
		scraper:      scraper,
		embedder:     embedder,
	}
}

func testKB() *core.KnowledgeBase {
	return &core.KnowledgeBase{
		Id:          core.IDFromContent("kb:test"),
		Name:        "Test KB",
		WorkspaceId: "ws1",
		Embedding:   core.EmbeddingConfig{Host: "http://localhost:11434", Model: "embeddinggemma", BatchSize: 8},
		Chunking:    core.ChunkingConfig{Strategy: "recursive", MaxSize: 500, Overlap: 50},
	}
}

func pageContent(topic string) string {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "Paragraph %d about %s. ", i, topic)
		b.WriteString(strings.Repeat("The quick brown fox jumps over the lazy dog. ", 8))
		b.WriteString("\n\n")
	}
	return b.String()
}

func waitTerminal(t *testing.T, env *testEnv, executionId string) *core.Execution {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		execution, err := env.orchestrator.Status(context.Background(), executionId)
		require.NoError(t, err)
		if execution.Status.Terminal() {
			return execution
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("execution %s did not reach a terminal state", executionId)
	return nil
}

func TestEnqueueCleanRunCompletes(t *testing.T) {
	env := newTestEnv(t)
	kb := testKB()

	env.scraper.Pages["https://docs.example.com/"] = &scrape.Page{
		URL: "https://docs.example.com/", Title: "Home", Content: pageContent("home"),
	}
	env.scraper.Pages["https://docs.example.com/install"] = &scrape.Page{
		URL: "https://docs.example.com/install", Title: "Install", Content: pageContent("install"),
	}
	env.scraper.Pages["https://docs.example.com/usage"] = &scrape.Page{
		URL: "https://docs.example.com/usage", Title: "Usage", Content: pageContent("usage"),
	}

	source := core.Source{
		Id: "src1", Type: core.SourceTypeWeb,
		Location: "https://docs.example.com/",
		Web:      &core.WebSourceConfig{MaxPages: 10, MaxDepth: 2},
	}

	executionId, err := env.orchestrator.Enqueue(context.Background(), kb, []core.Source{source})
	require.NoError(t, err)
	require.NotEmpty(t, executionId)

	execution := waitTerminal(t, env, executionId)
	assert.Equal(t, core.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, 3, execution.Stats.PagesDiscovered)
	assert.Equal(t, 3, execution.Stats.PagesScraped)
	assert.Equal(t, 0, execution.Stats.PagesFailed)
	assert.Positive(t, execution.Stats.ChunksCreated)
	assert.Equal(t, execution.Stats.ChunksCreated, execution.Stats.VectorsIndexed)
	assert.False(t, execution.FinishedAt.IsZero())

	docs, err := env.db.Documents().ListDocuments(context.Background(), kb.Id)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for _, doc := range docs {
		assert.Equal(t, core.DocumentStatusCompleted, doc.Status)
		assert.Positive(t, doc.ChunkCount)
	}

	count, err := env.db.Chunks().CountChunks(context.Background(), kb.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(execution.Stats.ChunksCreated), count)
	assert.Len(t, env.vectors.Points(kb.Id), execution.Stats.ChunksCreated)
}

func TestEnqueuePartialFailureCompletesWithWarnings(t *testing.T) {
	env := newTestEnv(t)
	kb := testKB()

	env.scraper.CrawlFunc = func(ctx context.Context, startURL string, config *scrape.Config) ([]scrape.Result, error) {
		return []scrape.Result{
			{URL: "https://a.example.com/1", Page: &scrape.Page{URL: "https://a.example.com/1", Title: "One", Content: pageContent("one")}},
			{URL: "https://a.example.com/2", Err: errors.New("connection refused")},
			{URL: "https://a.example.com/3", Page: &scrape.Page{URL: "https://a.example.com/3", Title: "Three", Content: pageContent("three")}},
		}, nil
	}

	source := core.Source{
		Id: "src1", Type: core.SourceTypeWeb,
		Location: "https://a.example.com/",
		Web:      &core.WebSourceConfig{MaxPages: 10},
	}

	executionId, err := env.orchestrator.Enqueue(context.Background(), kb, []core.Source{source})
	require.NoError(t, err)

	execution := waitTerminal(t, env, executionId)
	assert.Equal(t, core.ExecutionStatusCompletedWithWarnings, execution.Status)
	assert.Equal(t, 2, execution.Stats.PagesScraped)
	assert.Equal(t, 1, execution.Stats.PagesFailed)

	var logged bool
	for _, entry := range execution.Log {
		if strings.Contains(entry.Message, "https://a.example.com/2") {
			logged = true
		}
	}
	assert.True(t, logged, "failed page should appear in the execution log")
}

func TestEnqueueAllPagesFailedFails(t *testing.T) {
	env := newTestEnv(t)
	kb := testKB()

	env.scraper.CrawlFunc = func(ctx context.Context, startURL string, config *scrape.Config) ([]scrape.Result, error) {
		return []scrape.Result{
			{URL: "https://b.example.com/1", Err: errors.New("timeout")},
			{URL: "https://b.example.com/2", Err: errors.New("timeout")},
		}, nil
	}

	source := core.Source{
		Id: "src1", Type: core.SourceTypeWeb,
		Location: "https://b.example.com/",
		Web:      &core.WebSourceConfig{MaxPages: 10},
	}

	executionId, err := env.orchestrator.Enqueue(context.Background(), kb, []core.Source{source})
	require.NoError(t, err)

	execution := waitTerminal(t, env, executionId)
	assert.Equal(t, core.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, 0, execution.Stats.PagesScraped)
	assert.Equal(t, 2, execution.Stats.PagesFailed)
	assert.NotEmpty(t, execution.Error)
}

func TestEnqueueTextSource(t *testing.T) {
	env := newTestEnv(t)
	kb := testKB()

	source := core.Source{Id: "notes", Type: core.SourceTypeText, Text: pageContent("notes")}

	executionId, err := env.orchestrator.Enqueue(context.Background(), kb, []core.Source{source})
	require.NoError(t, err)

	execution := waitTerminal(t, env, executionId)
	assert.Equal(t, core.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, 1, execution.Stats.PagesScraped)

	docs, err := env.db.Documents().ListDocuments(context.Background(), kb.Id)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "text:notes", docs[0].URL)
}

func TestEnqueueHighBitDocumentIDPersists(t *testing.T) {
	env := newTestEnv(t)
	kb := testKB()

	// Find a source whose derived document ID has bit 63 set; roughly
	// half of all locators do, and those rows must persist like any
	// other.
	var sourceId string
	for r := 'a'; r <= 'z'; r++ {
		if core.IDFromContent("text:"+string(r))&(1<<63) != 0 {
			sourceId = string(r)
			break
		}
	}
	require.NotEmpty(t, sourceId)

	source := core.Source{Id: sourceId, Type: core.SourceTypeText, Text: pageContent("high bit")}

	executionId, err := env.orchestrator.Enqueue(context.Background(), kb, []core.Source{source})
	require.NoError(t, err)

	execution := waitTerminal(t, env, executionId)
	assert.Equal(t, core.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, 1, execution.Stats.PagesScraped)
	assert.Zero(t, execution.Stats.PagesFailed)

	doc, err := env.db.Documents().GetDocument(context.Background(), core.IDFromContent("text:"+sourceId))
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusCompleted, doc.Status)
}

func TestEnqueueFileSource(t *testing.T) {
	env := newTestEnv(t)
	kb := testKB()

	path := filepath.Join(t.TempDir(), "handbook.txt")
	require.NoError(t, os.WriteFile(path, []byte(pageContent("handbook")), 0o644))

	source := core.Source{Id: "file1", Type: core.SourceTypeFile, Location: path}

	executionId, err := env.orchestrator.Enqueue(context.Background(), kb, []core.Source{source})
	require.NoError(t, err)

	execution := waitTerminal(t, env, executionId)
	assert.Equal(t, core.ExecutionStatusCompleted, execution.Status)

	docs, err := env.db.Documents().ListDocuments(context.Background(), kb.Id)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "handbook.txt", docs[0].Title)
}

func TestEnqueueMissingFileIsPageFailure(t *testing.T) {
	env := newTestEnv(t)
	kb := testKB()

	source := core.Source{Id: "file1", Type: core.SourceTypeFile, Location: filepath.Join(t.TempDir(), "absent.txt")}

	executionId, err := env.orchestrator.Enqueue(context.Background(), kb, []core.Source{source})
	require.NoError(t, err)

	execution := waitTerminal(t, env, executionId)
	assert.Equal(t, core.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, 1, execution.Stats.PagesFailed)
}

func TestCancelDuringScrapeCancelsWithZeroStats(t *testing.T) {
	env := newTestEnv(t)
	kb := testKB()

	started := make(chan struct{})
	release := make(chan struct{})
	env.scraper.CrawlFunc = func(ctx context.Context, startURL string, config *scrape.Config) ([]scrape.Result, error) {
		close(started)
		<-release
		return nil, ctx.Err()
	}

	source := core.Source{
		Id: "src1", Type: core.SourceTypeWeb,
		Location: "https://c.example.com/",
		Web:      &core.WebSourceConfig{MaxPages: 10},
	}

	executionId, err := env.orchestrator.Enqueue(context.Background(), kb, []core.Source{source})
	require.NoError(t, err)

	<-started
	require.NoError(t, env.orchestrator.Cancel(executionId))
	close(release)

	execution := waitTerminal(t, env, executionId)
	assert.Equal(t, core.ExecutionStatusCancelled, execution.Status)
	assert.Equal(t, 0, execution.Stats.PagesScraped)
	assert.Equal(t, 0, execution.Stats.ChunksCreated)
}

func TestCancelBetweenPagesKeepsCompletedUnits(t *testing.T) {
	env := newTestEnv(t)
	kb := testKB()

	env.scraper.CrawlFunc = func(ctx context.Context, startURL string, config *scrape.Config) ([]scrape.Result, error) {
		return []scrape.Result{
			{URL: "https://d.example.com/1", Page: &scrape.Page{URL: "https://d.example.com/1", Content: pageContent("one")}},
			{URL: "https://d.example.com/2", Page: &scrape.Page{URL: "https://d.example.com/2", Content: pageContent("two")}},
			{URL: "https://d.example.com/3", Page: &scrape.Page{URL: "https://d.example.com/3", Content: pageContent("three")}},
		}, nil
	}

	embedded := make(chan struct{})
	release := make(chan struct{})
	var embedCalls int
	env.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		embedCalls++
		if embedCalls == 2 {
			close(embedded)
			<-release
		}
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1, 0, 0}
		}
		return vectors, nil
	}

	source := core.Source{
		Id: "src1", Type: core.SourceTypeWeb,
		Location: "https://d.example.com/",
		Web:      &core.WebSourceConfig{MaxPages: 10},
	}

	executionId, err := env.orchestrator.Enqueue(context.Background(), kb, []core.Source{source})
	require.NoError(t, err)

	<-embedded
	require.NoError(t, env.orchestrator.Cancel(executionId))
	close(release)

	execution := waitTerminal(t, env, executionId)
	assert.Equal(t, core.ExecutionStatusCancelled, execution.Status)
	assert.Equal(t, 2, execution.Stats.PagesScraped)
	assert.Equal(t, 0, execution.Stats.PagesFailed)

	count, err := env.db.Chunks().CountChunks(context.Background(), kb.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(execution.Stats.ChunksCreated), count)
}

func TestCancelUnknownExecution(t *testing.T) {
	env := newTestEnv(t)
	err := env.orchestrator.Cancel("no-such-execution")
	assert.ErrorIs(t, err, pipeline.ErrExecutionNotRunning)
}

func TestEnqueueEmbeddingFailureMarksDocumentFailed(t *testing.T) {
	env := newTestEnv(t)
	kb := testKB()

	env.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("model not loaded")
	}

	source := core.Source{Id: "notes", Type: core.SourceTypeText, Text: pageContent("notes")}

	executionId, err := env.orchestrator.Enqueue(context.Background(), kb, []core.Source{source})
	require.NoError(t, err)

	execution := waitTerminal(t, env, executionId)
	assert.Equal(t, core.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, 1, execution.Stats.PagesFailed)

	docs, err := env.db.Documents().ListDocuments(context.Background(), kb.Id)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, core.DocumentStatusFailed, docs[0].Status)

	count, err := env.db.Chunks().CountChunks(context.Background(), kb.Id)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, env.vectors.Points(kb.Id))
}

func TestNewOrchestratorRequiresDependencies(t *testing.T) {
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "substrate.db"))
	require.NoError(t, err)
	defer db.Close()
	_, execs, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	vectors := vectormock.NewMockStore()
	scraper := scrapemock.NewMockScraper()

	_, err = pipeline.NewOrchestrator(nil, db.Documents(), db.Chunks(), execs, vectors, scraper)
	assert.ErrorIs(t, err, pipeline.ErrKnowledgeBaseRepositoryRequired)

	_, err = pipeline.NewOrchestrator(db.KnowledgeBases(), nil, db.Chunks(), execs, vectors, scraper)
	assert.ErrorIs(t, err, pipeline.ErrDocumentRepositoryRequired)

	_, err = pipeline.NewOrchestrator(db.KnowledgeBases(), db.Documents(), db.Chunks(), execs, nil, scraper)
	assert.ErrorIs(t, err, pipeline.ErrVectorStoreRequired)

	_, err = pipeline.NewOrchestrator(db.KnowledgeBases(), db.Documents(), db.Chunks(), execs, vectors, nil)
	assert.ErrorIs(t, err, pipeline.ErrScraperRequired)
}
