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

func (s *Splitter) splitParagraph(ctx context.Context, text string, cfg Config) ([]span, error) {
	if charLen(strings.TrimSpace(text)) <= cfg.MaxSize {
		return []span{{content: text, start: 0, end: len(text)}}, nil
	}

	paragraphs := paragraphSpans(text)

	// Oversized single paragraphs are handed to the sentence strategy.
	fit := make([]span, 0, len(paragraphs))
	for _, p := range paragraphs {
		if len(p.content) > cfg.MaxSize {
			sub, err := s.splitSentence(ctx, p.content, cfg)
			if err != nil {
				return nil, err
			}
			for _, sp := range sub {
				fit = append(fit, span{content: sp.content, start: p.start + sp.start, end: p.start + sp.end})
			}
		} else {
			fit = append(fit, p)
		}
	}

	return mergeSpans(fit, "\n\n", cfg.MaxSize, charLen, charTail(cfg.Overlap)), nil
}

// paragraphSpans splits text into blank-line-delimited paragraphs with
// original offsets.
func paragraphSpans(text string) []span {
	return splitSpan(span{content: text, start: 0, end: len(text)}, "\n\n")
}
