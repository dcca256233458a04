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
	"strings"
)

// splitAdaptive inspects the document's shape and dispatches to the
// strategy that fits it: heading-dense documents go to by_heading,
// paragraph-heavy ones to paragraph, lightly structured ones to hybrid,
// and unstructured text to recursive.
func (s *Splitter) splitAdaptive(ctx context.Context, text string, cfg Config) ([]span, error) {
	headings, lines := headingStats(text)
	paragraphs := len(paragraphSpans(text))

	density := 0.0
	if lines > 0 {
		density = float64(headings) / float64(lines)
	}

	switch {
	case density > cfg.HeadingDensity:
		return s.splitByHeading(ctx, text, cfg)
	case paragraphs > cfg.ParagraphCount:
		return s.splitParagraph(ctx, text, cfg)
	case headings > 0:
		return s.splitHybrid(ctx, text, cfg)
	default:
		return s.splitRecursive(ctx, text, cfg)
	}
}

// splitHybrid runs by_heading with the relaxed ceiling, then re-splits
// any oversized result with the paragraph strategy. Indexes are
// reassigned by the caller's finalize pass.
func (s *Splitter) splitHybrid(ctx context.Context, text string, cfg Config) ([]span, error) {
	sections := headingSplit(text, cfg.looseMax(), cfg.Overlap, headingBoundary)

	var out []span
	for _, sec := range sections {
		if len(sec.content) <= cfg.MaxSize {
			out = append(out, sec)
			continue
		}
		sub, err := s.splitParagraph(ctx, sec.content, cfg)
		if err != nil {
			return nil, err
		}
		for _, sp := range sub {
			out = append(out, span{content: sp.content, start: sec.start + sp.start, end: sec.start + sp.end})
		}
	}
	return out, nil
}

// headingStats counts Markdown heading lines and non-blank lines.
func headingStats(text string) (headings, lines int) {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines++
		if _, ok := headingBoundary(line); ok {
			headings++
		}
	}
	return headings, lines
}
