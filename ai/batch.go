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


package ai

import "context"

// BatchResult carries the outcome of an EmbedInBatches call. Vectors is
// indexed parallel to the input texts; entries for failed inputs are nil.
// Failed maps the index of each input that could not be embedded to the
// error from its batch.
type BatchResult struct {
	Vectors [][]float32
	Failed  map[int]error
}

// EmbedInBatches embeds texts in groups of batchSize using the provided
// embedder. A batch that fails does not abort the remaining batches: its
// inputs are recorded in the result's Failed map and processing continues.
// Only a cancelled context stops the run early, returning the context
// error alongside whatever was completed so far.
func EmbedInBatches(ctx context.Context, embedder Embedder, texts []string, batchSize int) (*BatchResult, error) {
	if batchSize < 1 {
		batchSize = 1
	}

	result := &BatchResult{
		Vectors: make([][]float32, len(texts)),
		Failed:  make(map[int]error),
	}

	for start := 0; start < len(texts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := embedder.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			for i := start; i < end; i++ {
				result.Failed[i] = err
			}
			continue
		}

		for i, vec := range vectors {
			if start+i >= end {
				break
			}
			result.Vectors[start+i] = vec
		}
	}

	return result, nil
}
