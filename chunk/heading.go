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
	"unicode"
)

func (s *Splitter) splitByHeading(_ context.Context, text string, cfg Config) ([]span, error) {
	return headingSplit(text, cfg.MaxSize, cfg.Overlap, headingBoundary), nil
}

// splitBySection is the coarser variant: all-caps lines and very short
// lines also open sections, and the size ceiling is relaxed.
func (s *Splitter) splitBySection(_ context.Context, text string, cfg Config) ([]span, error) {
	return headingSplit(text, cfg.looseMax(), cfg.Overlap, sectionBoundary), nil
}

// boundaryFunc reports whether a line opens a new section and at what
// depth. Depth orders headings: a chunk opened at depth d is closed by
// the next boundary at depth <= d. Non-heading section markers report
// depth 1 so they always close the running section.
type boundaryFunc func(line string) (depth int, isBoundary bool)

// headingBoundary recognizes Markdown ATX headings.
func headingBoundary(line string) (int, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return 0, false
	}
	depth := 0
	for depth < len(trimmed) && trimmed[depth] == '#' {
		depth++
	}
	if depth > 6 || depth >= len(trimmed) || trimmed[depth] != ' ' {
		return 0, false
	}
	return depth, true
}

// sectionBoundary additionally treats all-caps lines and very short
// lines as section openers.
func sectionBoundary(line string) (int, bool) {
	if depth, ok := headingBoundary(line); ok {
		return depth, true
	}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return 0, false
	}
	if isAllCapsLine(trimmed) {
		return 1, true
	}
	// a very short line without terminal punctuation reads as a title
	if len(trimmed) <= 40 && !strings.ContainsAny(trimmed[len(trimmed)-1:], ".!?,;:") {
		return 1, true
	}
	return 0, false
}

func isAllCapsLine(line string) bool {
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter && len(line) >= 3
}

// headingSplit walks lines, opening a chunk at every boundary of
// equal-or-shallower depth than the current section and force-splitting
// any chunk that grows past max mid-section.
func headingSplit(text string, max, overlap int, boundary boundaryFunc) []span {
	var (
		out      []span
		curStart = -1
		curEnd   int
		curDepth = 0
		curLen   int
	)

	flush := func() {
		if curStart < 0 {
			return
		}
		sp := span{content: text[curStart:curEnd], start: curStart, end: curEnd}
		if curLen > max {
			out = append(out, hardSplit(sp, max, overlap)...)
		} else {
			out = append(out, sp)
		}
		curStart = -1
		curLen = 0
	}

	pos := 0
	for pos <= len(text) {
		lineEnd := strings.IndexByte(text[pos:], '\n')
		var line string
		if lineEnd < 0 {
			line = text[pos:]
			lineEnd = len(text)
		} else {
			line = text[pos : pos+lineEnd]
			lineEnd = pos + lineEnd
		}

		if depth, ok := boundary(line); ok && (curStart < 0 || depth <= curDepth || curDepth == 0) {
			flush()
			curStart = pos
			curDepth = depth
		} else if curStart < 0 && strings.TrimSpace(line) != "" {
			// preamble before the first boundary
			curStart = pos
			curDepth = 0
		}

		if curStart >= 0 {
			curEnd = lineEnd
			curLen += len(line) + 1
		}

		if lineEnd >= len(text) {
			break
		}
		pos = lineEnd + 1
	}
	flush()

	return out
}
