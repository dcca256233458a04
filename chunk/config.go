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
	"github.com/poiesic/substrate/core"
)

// Config parameterizes a chunking invocation. MaxSize and Overlap are
// in characters for every strategy except token, where they are in
// estimated tokens.
type Config struct {
	// MaxSize is the target upper bound for one chunk.
	MaxSize int

	// Overlap is how much of a chunk's tail is carried into the next
	// chunk. Must be strictly smaller than MaxSize.
	Overlap int

	// SemanticThreshold is the cosine similarity below which the
	// semantic strategy opens a new chunk. The 0.65 default is an
	// empirical starting point, not a derived constant; tune per corpus.
	SemanticThreshold float64

	// HeadingDensity is the fraction of heading lines above which the
	// adaptive strategy picks by_heading.
	HeadingDensity float64

	// ParagraphCount is the paragraph count above which the adaptive
	// strategy picks the paragraph algorithm.
	ParagraphCount int
}

// Default thresholds. SemanticThreshold and the adaptive cutoffs carry
// no stated derivation in the corpora they were tuned on; they are
// configuration defaults, not guarantees of optimality.
const (
	DefaultMaxSize           = 1000
	DefaultOverlap           = 100
	DefaultSemanticThreshold = 0.65
	DefaultHeadingDensity    = 0.05
	DefaultParagraphCount    = 10

	// looseSizeFactor is the tolerance the semantic, by_section, and
	// hybrid strategies allow before forcing a split.
	looseSizeFactor = 1.5
)

// DefaultConfig returns a Config with the package defaults.
func DefaultConfig() Config {
	return Config{
		MaxSize:           DefaultMaxSize,
		Overlap:           DefaultOverlap,
		SemanticThreshold: DefaultSemanticThreshold,
		HeadingDensity:    DefaultHeadingDensity,
		ParagraphCount:    DefaultParagraphCount,
	}
}

// Validate rejects configurations the engine must never silently
// miscompute, in particular Overlap >= MaxSize.
func (c *Config) Validate() error {
	return core.ValidateChunkingConfig(&core.ChunkingConfig{
		MaxSize: c.MaxSize,
		Overlap: c.Overlap,
	})
}

// withDefaults fills zero-valued tuning fields so strategy code can rely
// on them being set.
func (c Config) withDefaults() Config {
	if c.SemanticThreshold == 0 {
		c.SemanticThreshold = DefaultSemanticThreshold
	}
	if c.HeadingDensity == 0 {
		c.HeadingDensity = DefaultHeadingDensity
	}
	if c.ParagraphCount == 0 {
		c.ParagraphCount = DefaultParagraphCount
	}
	return c
}

// looseMax is the relaxed ceiling used by the tolerant strategies.
func (c Config) looseMax() int {
	return int(float64(c.MaxSize) * looseSizeFactor)
}
