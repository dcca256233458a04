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
	"log/slog"
	"strings"

	"github.com/poiesic/substrate/ai"
	"github.com/poiesic/substrate/core"
)

// splitFunc is one strategy's implementation: text plus configuration in,
// ordered spans out.
type splitFunc func(ctx context.Context, text string, cfg Config) ([]span, error)

// span is a strategy's internal output unit: chunk content plus the byte
// range of the original text it was drawn from.
type span struct {
	content string
	start   int
	end     int
}

// Splitter is the chunking engine. It holds the strategy dispatch table,
// the token estimator, and the optional embedder backing the semantic
// strategy. A Splitter is safe for concurrent use; chunking holds no
// mutable state.
type Splitter struct {
	estimator TokenEstimator
	embedder  ai.Embedder
	logger    *slog.Logger
	table     map[Strategy]splitFunc
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithEstimator replaces the default character-ratio token estimator.
func WithEstimator(estimator TokenEstimator) Option {
	return func(s *Splitter) {
		if estimator != nil {
			s.estimator = estimator
		}
	}
}

// WithEmbedder supplies the embedder used by the semantic strategy.
// Without one, semantic chunking degrades to the paragraph strategy.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(s *Splitter) {
		s.embedder = embedder
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Splitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSplitter creates a chunking engine with all nine strategies
// registered.
func NewSplitter(opts ...Option) *Splitter {
	s := &Splitter{
		estimator: NewHeuristicEstimator(),
		logger:    slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.table = map[Strategy]splitFunc{
		StrategyRecursive: s.splitRecursive,
		StrategySentence:  s.splitSentence,
		StrategyToken:     s.splitToken,
		StrategySemantic:  s.splitSemantic,
		StrategyByHeading: s.splitByHeading,
		StrategyBySection: s.splitBySection,
		StrategyParagraph: s.splitParagraph,
		StrategyAdaptive:  s.splitAdaptive,
		StrategyHybrid:    s.splitHybrid,
	}
	return s
}

// Chunk splits text under the given strategy and configuration.
//
// Empty or whitespace-only text yields an empty list, not an error. An
// invalid configuration or an unregistered strategy is rejected before
// any chunk is produced.
func (s *Splitter) Chunk(ctx context.Context, text string, strategy Strategy, cfg Config) ([]core.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fn, ok := s.table[strategy]
	if !ok {
		return nil, ErrUnknownStrategy
	}

	if strings.TrimSpace(text) == "" {
		return []core.Chunk{}, nil
	}

	spans, err := fn(ctx, text, cfg.withDefaults())
	if err != nil {
		return nil, err
	}
	return s.finalize(spans), nil
}

// finalize converts spans into chunks: assigns zero-based indexes,
// trims content, drops empties, and estimates tokens.
func (s *Splitter) finalize(spans []span) []core.Chunk {
	chunks := make([]core.Chunk, 0, len(spans))
	for _, sp := range spans {
		content := strings.TrimSpace(sp.content)
		if content == "" {
			continue
		}
		chunks = append(chunks, core.Chunk{
			Content: content,
			Index:   len(chunks),
			Start:   sp.start,
			End:     sp.end,
			Tokens:  s.estimator.Estimate(content),
		})
	}
	return chunks
}

// charLen is the character count size function used by every strategy
// except token.
func charLen(text string) int {
	return len(text)
}
