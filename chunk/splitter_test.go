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


package chunk

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/poiesic/substrate/ai/mock"
	"github.com/poiesic/substrate/core"
)

func allStrategies() []Strategy {
	return []Strategy{
		StrategyRecursive, StrategySentence, StrategyToken,
		StrategySemantic, StrategyByHeading, StrategyBySection,
		StrategyParagraph, StrategyAdaptive, StrategyHybrid,
	}
}

// sampleMarkdown builds a document with headings and paragraphs large
// enough to force every strategy to actually split.
func sampleMarkdown() string {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "## Section %d\n\n", i)
		for j := 0; j < 4; j++ {
			fmt.Fprintf(&b, "Paragraph %d of section %d covers crawling, chunking, and indexing behavior. ", j, i)
			b.WriteString("It repeats supporting sentences so the accumulated text crosses the configured size limits.\n\n")
		}
	}
	return b.String()
}

func TestChunkEmptyInputYieldsNoChunks(t *testing.T) {
	s := NewSplitter()
	ctx := context.Background()

	for _, strategy := range allStrategies() {
		for _, text := range []string{"", "   ", "\n\t \n"} {
			chunks, err := s.Chunk(ctx, text, strategy, DefaultConfig())
			require.NoError(t, err, "strategy %s", strategy)
			assert.Empty(t, chunks, "strategy %s on %q", strategy, text)
		}
	}
}

func TestChunkRejectsInvalidConfig(t *testing.T) {
	s := NewSplitter()
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "overlap equals max size", cfg: Config{MaxSize: 100, Overlap: 100}},
		{name: "overlap exceeds max size", cfg: Config{MaxSize: 100, Overlap: 150}},
		{name: "zero max size", cfg: Config{MaxSize: 0, Overlap: 0}},
		{name: "negative overlap", cfg: Config{MaxSize: 100, Overlap: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Chunk(ctx, "some text", StrategyRecursive, tt.cfg)
			assert.ErrorIs(t, err, core.ErrInvalidChunkConfig)
		})
	}
}

func TestChunkUnknownStrategy(t *testing.T) {
	s := NewSplitter()

	_, err := s.Chunk(context.Background(), "some text", Strategy(99), DefaultConfig())
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestParseStrategyRoundTrip(t *testing.T) {
	for _, strategy := range allStrategies() {
		parsed, err := ParseStrategy(strategy.String())
		require.NoError(t, err)
		assert.Equal(t, strategy, parsed)
	}

	_, err := ParseStrategy("nope")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestChunkShortTextIsSingleChunk(t *testing.T) {
	s := NewSplitter()
	ctx := context.Background()
	text := "  Substrate ingests documentation into a knowledge base.  "

	for _, strategy := range allStrategies() {
		chunks, err := s.Chunk(ctx, text, strategy, DefaultConfig())
		require.NoError(t, err, "strategy %s", strategy)
		require.Len(t, chunks, 1, "strategy %s", strategy)
		assert.Equal(t, strings.TrimSpace(text), chunks[0].Content, "strategy %s", strategy)
		assert.Equal(t, 0, chunks[0].Index)
		assert.Positive(t, chunks[0].Tokens)
	}
}

func TestChunkDeterministic(t *testing.T) {
	s := NewSplitter()
	ctx := context.Background()
	text := sampleMarkdown()

	for _, strategy := range allStrategies() {
		first, err := s.Chunk(ctx, text, strategy, DefaultConfig())
		require.NoError(t, err, "strategy %s", strategy)
		second, err := s.Chunk(ctx, text, strategy, DefaultConfig())
		require.NoError(t, err, "strategy %s", strategy)
		assert.Equal(t, first, second, "strategy %s", strategy)
	}
}

func TestRecursiveBoundsChunkSize(t *testing.T) {
	s := NewSplitter()
	text := sampleMarkdown()
	cfg := Config{MaxSize: 300, Overlap: 50}

	chunks, err := s.Chunk(context.Background(), text, StrategyRecursive, cfg)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), cfg.MaxSize, "chunk %d", i)
		assert.Equal(t, i, c.Index)
		assert.GreaterOrEqual(t, c.Start, 0)
		assert.LessOrEqual(t, c.Start, c.End)
		assert.LessOrEqual(t, c.End, len(text))
		assert.Positive(t, c.Tokens)
	}

	// Overlap carries a tail of the previous chunk forward, so
	// consecutive spans intersect.
	for i := 1; i < len(chunks); i++ {
		assert.Less(t, chunks[i].Start, chunks[i-1].End, "chunk %d", i)
	}
}

func TestByHeadingSplitsAtHeadings(t *testing.T) {
	s := NewSplitter()
	text := sampleMarkdown()

	chunks, err := s.Chunk(context.Background(), text, StrategyByHeading, Config{MaxSize: 2000, Overlap: 100})
	require.NoError(t, err)
	require.Len(t, chunks, 6)

	for i, c := range chunks {
		assert.True(t, strings.HasPrefix(c.Content, fmt.Sprintf("## Section %d", i)), "chunk %d starts %q", i, c.Content[:20])
	}
}

func TestSemanticWithoutEmbedderFallsBackToParagraph(t *testing.T) {
	s := NewSplitter()
	ctx := context.Background()
	text := sampleMarkdown()

	semantic, err := s.Chunk(ctx, text, StrategySemantic, DefaultConfig())
	require.NoError(t, err)
	paragraph, err := s.Chunk(ctx, text, StrategyParagraph, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, paragraph, semantic)
}

func TestSemanticGroupsBySimilarity(t *testing.T) {
	pA := "The ingestion pipeline crawls documentation sites."
	pB := "Crawled pages are chunked and embedded for retrieval."
	pC := "Billing invoices are issued at the end of each month."
	text := pA + "\n\n" + pB + "\n\n" + pC

	embedder := aimock.NewMockEmbedder()
	var embedded []string
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		embedded = texts
		// The first two paragraphs share a direction; the third is
		// orthogonal and reads as a topic break.
		return [][]float32{{1, 0}, {1, 0}, {0, 1}}, nil
	}

	s := NewSplitter(WithEmbedder(embedder))
	chunks, err := s.Chunk(context.Background(), text, StrategySemantic, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, embedded, 3)

	require.Len(t, chunks, 2)
	assert.Equal(t, pA+"\n\n"+pB, chunks[0].Content)
	assert.Equal(t, pC, chunks[1].Content)
}

func TestSemanticEmbeddingFailureFallsBackToParagraph(t *testing.T) {
	embedder := aimock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, fmt.Errorf("backend unavailable")
	}

	s := NewSplitter(WithEmbedder(embedder))
	ctx := context.Background()
	text := sampleMarkdown()

	semantic, err := s.Chunk(ctx, text, StrategySemantic, DefaultConfig())
	require.NoError(t, err)
	paragraph, err := NewSplitter().Chunk(ctx, text, StrategyParagraph, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, paragraph, semantic)
}
