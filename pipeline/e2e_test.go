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
	"fmt"
	"net/http"
	"net/http/httptest"
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
	badgerstore "github.com/poiesic/substrate/storage/badger"
	"github.com/poiesic/substrate/storage/sqlite"
	vectormock "github.com/poiesic/substrate/vector/mock"
)

func docSitePage(title string, body string, links ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>" + title + "</title></head><body><main>")
	b.WriteString("<h1>" + title + "</h1>")
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "<p>Section %d of %s. %s</p>", i, title, body)
	}
	for _, link := range links {
		fmt.Fprintf(&b, `<p><a href=%q>%s</a></p>`, link, link)
	}
	b.WriteString("</main></body></html>")
	return b.String()
}

// TestIngestionEndToEnd drives a crawl of a real HTTP server through the
// full pipeline: scrape, chunk, embed, index.
func TestIngestionEndToEnd(t *testing.T) {
	filler := strings.Repeat("A reasonably long sentence that gives the chunker something to split on. ", 6)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, docSitePage("Home", filler, "/install", "/usage", "/missing"))
	})
	mux.HandleFunc("/install", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, docSitePage("Install", filler))
	})
	mux.HandleFunc("/usage", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, docSitePage("Usage", filler))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "substrate.db"))
	require.NoError(t, err)
	defer db.Close()

	_, execs, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	vectors := vectormock.NewMockStore()
	embedder := aimock.NewMockEmbedder()
	factory := func(cfg core.EmbeddingConfig) (ai.Embedder, error) { return embedder, nil }

	orchestrator, err := pipeline.NewOrchestrator(
		db.KnowledgeBases(), db.Documents(), db.Chunks(), execs, vectors,
		scrape.NewWebScraper(),
		pipeline.WithEmbedderFactory(factory),
		pipeline.WithRetryPolicy(1, time.Millisecond),
	)
	require.NoError(t, err)
	defer orchestrator.Release()

	kb := testKB()
	source := core.Source{
		Id: "site", Type: core.SourceTypeWeb,
		Location: server.URL + "/",
		Web: &core.WebSourceConfig{
			MaxPages: 10,
			MaxDepth: 2,
			Delay:    time.Millisecond,
		},
	}

	executionId, err := orchestrator.Enqueue(context.Background(), kb, []core.Source{source})
	require.NoError(t, err)

	var execution *core.Execution
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		execution, err = orchestrator.Status(context.Background(), executionId)
		require.NoError(t, err)
		if execution.Status.Terminal() {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NotNil(t, execution)
	require.True(t, execution.Status.Terminal(), "execution stuck in %s", execution.Status)

	// The 404 page is a page failure, not a run failure.
	assert.Equal(t, core.ExecutionStatusCompletedWithWarnings, execution.Status)
	assert.Equal(t, 4, execution.Stats.PagesDiscovered)
	assert.Equal(t, 3, execution.Stats.PagesScraped)
	assert.Equal(t, 1, execution.Stats.PagesFailed)
	assert.Positive(t, execution.Stats.ChunksCreated)
	assert.Equal(t, execution.Stats.ChunksCreated, execution.Stats.VectorsIndexed)

	docs, err := db.Documents().ListDocuments(context.Background(), kb.Id)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	titles := map[string]bool{}
	var totalChunks int
	for _, doc := range docs {
		assert.Equal(t, core.DocumentStatusCompleted, doc.Status)
		titles[doc.Title] = true
		totalChunks += doc.ChunkCount
	}
	assert.True(t, titles["Home"] && titles["Install"] && titles["Usage"])
	assert.Equal(t, execution.Stats.ChunksCreated, totalChunks)

	count, err := db.Chunks().CountChunks(context.Background(), kb.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(totalChunks), count)
	assert.Len(t, vectors.Points(kb.Id), totalChunks)

	// 100% once terminal.
	assert.Equal(t, float64(100), execution.Progress())
}
