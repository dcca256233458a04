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
	"github.com/pkoukk/tiktoken-go"
)

// DefaultCharsPerToken is the character-per-token ratio the heuristic
// estimator assumes. Roughly right for English prose.
const DefaultCharsPerToken = 4

// TokenEstimator estimates how many tokens a text will cost an
// embedding model. Implementations must be safe for concurrent use.
type TokenEstimator interface {
	// Estimate returns the estimated token count for the text.
	Estimate(text string) int
}

// heuristicEstimator divides character count by a fixed ratio.
type heuristicEstimator struct {
	charsPerToken int
}

// NewHeuristicEstimator returns the default fixed-ratio estimator.
func NewHeuristicEstimator() TokenEstimator {
	return &heuristicEstimator{charsPerToken: DefaultCharsPerToken}
}

func (e *heuristicEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	n := (len(text) + e.charsPerToken - 1) / e.charsPerToken
	if n < 1 {
		n = 1
	}
	return n
}

// tiktokenEstimator counts exact tokens with a tiktoken encoding.
type tiktokenEstimator struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenEstimator returns an exact estimator for the named
// encoding, e.g. "cl100k_base".
func NewTiktokenEstimator(encoding string) (TokenEstimator, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &tiktokenEstimator{encoding: enc}, nil
}

func (e *tiktokenEstimator) Estimate(text string) int {
	return len(e.encoding.Encode(text, nil, nil))
}
