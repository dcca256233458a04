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

func (s *Splitter) splitSentence(_ context.Context, text string, cfg Config) ([]span, error) {
	if charLen(strings.TrimSpace(text)) <= cfg.MaxSize {
		return []span{{content: text, start: 0, end: len(text)}}, nil
	}

	sentences := sentenceSpans(text)

	// A single sentence beyond the limit gets character windows; there
	// is no finer natural boundary left.
	fit := make([]span, 0, len(sentences))
	for _, sent := range sentences {
		if len(sent.content) > cfg.MaxSize {
			fit = append(fit, hardSplit(sent, cfg.MaxSize, cfg.Overlap)...)
		} else {
			fit = append(fit, sent)
		}
	}

	return mergeSpans(fit, " ", cfg.MaxSize, charLen, charTail(cfg.Overlap)), nil
}

// sentenceSpans splits text at terminal punctuation followed by
// whitespace, keeping the punctuation with the sentence.
func sentenceSpans(text string) []span {
	var out []span
	start := -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		if start < 0 && !isSpaceByte(c) {
			start = i
		}
		if start < 0 {
			continue
		}
		if c == '.' || c == '!' || c == '?' {
			// consume a run of terminal punctuation
			end := i + 1
			for end < len(text) && (text[end] == '.' || text[end] == '!' || text[end] == '?') {
				end++
			}
			if end >= len(text) || isSpaceByte(text[end]) {
				out = append(out, span{content: text[start:end], start: start, end: end})
				i = end - 1
				start = -1
			}
		}
	}
	if start >= 0 && strings.TrimSpace(text[start:]) != "" {
		out = append(out, span{content: text[start:], start: start, end: len(text)})
	}
	return out
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
