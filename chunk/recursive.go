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

// recursiveSeparators is the descent order: paragraph, line, word,
// character. A finer separator is only used when a unit still exceeds
// the size limit at the current level.
var recursiveSeparators = []string{"\n\n", "\n", " ", ""}

func (s *Splitter) splitRecursive(_ context.Context, text string, cfg Config) ([]span, error) {
	root := span{content: text, start: 0, end: len(text)}
	tail := charTail(cfg.Overlap)
	return recursiveSplit(root, recursiveSeparators, cfg.MaxSize, charLen, tail, cfg.MaxSize, cfg.Overlap), nil
}

// splitToken is the recursive algorithm with sizes in estimated tokens.
// The character window used for last-resort hard splits is derived from
// the heuristic character ratio; an exact estimator still bounds chunk
// sizes through the merge pass.
func (s *Splitter) splitToken(_ context.Context, text string, cfg Config) ([]span, error) {
	root := span{content: text, start: 0, end: len(text)}
	sizeOf := s.estimator.Estimate
	tail := charTail(cfg.Overlap * DefaultCharsPerToken)
	charMax := cfg.MaxSize * DefaultCharsPerToken
	charOverlap := cfg.Overlap * DefaultCharsPerToken
	return recursiveSplit(root, recursiveSeparators, cfg.MaxSize, sizeOf, tail, charMax, charOverlap), nil
}

// recursiveSplit splits sp on the coarsest separator present, recurses
// into units that are still too large, then merges the resulting pieces
// back into chunks no larger than max, carrying overlap forward.
// charMax/charOverlap parameterize the character-window fallback when no
// separator is left.
func recursiveSplit(sp span, seps []string, max int, sizeOf func(string) int, tail tailFunc, charMax, charOverlap int) []span {
	if sizeOf(strings.TrimSpace(sp.content)) <= max {
		return []span{sp}
	}

	sep, rest := pickSeparator(sp.content, seps)
	if sep == "" {
		return hardSplit(sp, charMax, charOverlap)
	}

	units := splitSpan(sp, sep)
	fit := make([]span, 0, len(units))
	for _, u := range units {
		if sizeOf(u.content) > max {
			fit = append(fit, recursiveSplit(u, rest, max, sizeOf, tail, charMax, charOverlap)...)
		} else {
			fit = append(fit, u)
		}
	}

	return mergeSpans(fit, sep, max, sizeOf, tail)
}

// pickSeparator returns the first separator present in the text and the
// finer separators after it. The empty separator always matches.
func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" || strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

// splitSpan splits a span on sep, preserving original-text offsets.
// Empty units (consecutive separators) are dropped.
func splitSpan(sp span, sep string) []span {
	var units []span
	pos := 0
	for {
		i := strings.Index(sp.content[pos:], sep)
		if i < 0 {
			break
		}
		unit := sp.content[pos : pos+i]
		if strings.TrimSpace(unit) != "" {
			units = append(units, span{content: unit, start: sp.start + pos, end: sp.start + pos + i})
		}
		pos += i + len(sep)
	}
	if rest := sp.content[pos:]; strings.TrimSpace(rest) != "" {
		units = append(units, span{content: rest, start: sp.start + pos, end: sp.end})
	}
	return units
}

// tailFunc extracts the overlap carry-over from an emitted chunk.
type tailFunc func(content string) string

// charTail returns a tailFunc carrying the last n characters.
func charTail(n int) tailFunc {
	return func(content string) string {
		if n <= 0 {
			return ""
		}
		runes := []rune(content)
		if len(runes) <= n {
			return content
		}
		return string(runes[len(runes)-n:])
	}
}

// mergeSpans accumulates units into chunks of at most max, joining with
// the separator they were split on. When a chunk is emitted, tail
// selects the portion carried into the next chunk as overlap.
func mergeSpans(units []span, joiner string, max int, sizeOf func(string) int, tail tailFunc) []span {
	var (
		out     []span
		cur     []span
		carried string
		size    int
	)
	joinerSize := sizeOf(joiner)

	flush := func() {
		if len(cur) == 0 {
			return
		}
		parts := make([]string, len(cur))
		for i, u := range cur {
			parts[i] = u.content
		}
		content := strings.Join(parts, joiner)
		start := cur[0].start
		if carried != "" {
			content = carried + joiner + content
			start -= len(carried)
			if start < 0 {
				start = 0
			}
		}
		out = append(out, span{content: content, start: start, end: cur[len(cur)-1].end})

		carried = tail(content)
		cur = nil
		size = sizeOf(carried)
	}

	for _, u := range units {
		unitSize := sizeOf(u.content)
		add := unitSize
		if size > 0 {
			add += joinerSize
		}
		if size+add > max && len(cur) > 0 {
			flush()
			add = unitSize
			if size > 0 {
				add += joinerSize
			}
		}
		// an oversized unit swallows its overlap rather than exceeding
		// max by the carried tail as well
		if size+add > max && len(cur) == 0 && carried != "" {
			carried = ""
			size = 0
			add = unitSize
		}
		cur = append(cur, u)
		size += add
	}
	flush()

	return out
}

// hardSplit is the last resort when no separator remains: fixed
// character windows stepping by max-overlap.
func hardSplit(sp span, max, overlap int) []span {
	if max <= 0 {
		return []span{sp}
	}
	step := max - overlap
	if step < 1 {
		step = max
	}

	runes := []rune(sp.content)
	var out []span
	byteAt := 0
	runeAt := 0
	for start := 0; start < len(runes); start += step {
		end := start + max
		if end > len(runes) {
			end = len(runes)
		}
		// advance the byte cursor to the window start
		for runeAt < start {
			byteAt += len(string(runes[runeAt]))
			runeAt++
		}
		content := string(runes[start:end])
		out = append(out, span{
			content: content,
			start:   sp.start + byteAt,
			end:     sp.start + byteAt + len(content),
		})
		if end == len(runes) {
			break
		}
	}
	return out
}
