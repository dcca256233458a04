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
	"math"
	"strings"
)

// splitSemantic groups paragraphs by embedding similarity: a new chunk
// opens when cosine similarity between consecutive paragraphs drops
// below the threshold, or when the accumulated size would exceed the
// relaxed ceiling. If the embedder is missing or the whole embedding
// call fails, the strategy degrades to paragraph chunking instead of
// failing the document.
func (s *Splitter) splitSemantic(ctx context.Context, text string, cfg Config) ([]span, error) {
	paragraphs := paragraphSpans(text)
	if len(paragraphs) <= 1 {
		return s.splitParagraph(ctx, text, cfg)
	}

	vectors, ok := s.embedParagraphs(ctx, paragraphs)
	if !ok {
		s.logger.Warn("semantic chunking unavailable, falling back to paragraph strategy")
		return s.splitParagraph(ctx, text, cfg)
	}

	looseMax := cfg.looseMax()
	var (
		out  []span
		cur  []span
		size int
	)
	flush := func() {
		if len(cur) == 0 {
			return
		}
		parts := make([]string, len(cur))
		for i, p := range cur {
			parts[i] = p.content
		}
		out = append(out, span{
			content: strings.Join(parts, "\n\n"),
			start:   cur[0].start,
			end:     cur[len(cur)-1].end,
		})
		cur = nil
		size = 0
	}

	for i, p := range paragraphs {
		if len(cur) > 0 {
			// A paragraph that failed to embed carries a zero vector;
			// cosine against it is 0, which reads as a topic break.
			sim := cosineSimilarity(vectors[i-1], vectors[i])
			if sim < cfg.SemanticThreshold || size+len(p.content) > looseMax {
				flush()
			}
		}
		cur = append(cur, p)
		size += len(p.content) + 2
	}
	flush()

	return out, nil
}

// embedParagraphs embeds every paragraph in one batch. A total failure
// returns ok=false; a short result pads missing paragraphs with zero
// vectors rather than aborting the document.
func (s *Splitter) embedParagraphs(ctx context.Context, paragraphs []span) ([][]float32, bool) {
	if s.embedder == nil {
		return nil, false
	}

	texts := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		texts[i] = p.content
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		s.logger.Warn("paragraph embedding failed", "err", err)
		return nil, false
	}

	padded := make([][]float32, len(paragraphs))
	copy(padded, vectors)
	for i := range padded {
		if padded[i] == nil {
			padded[i] = []float32{}
		}
	}
	return padded, true
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// or 0 when either has no magnitude.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		magA += float64(v) * float64(v)
	}
	for _, v := range b {
		magB += float64(v) * float64(v)
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
