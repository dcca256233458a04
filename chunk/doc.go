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


// Package chunk converts raw text into retrieval-sized chunks.
//
// The Splitter type exposes nine interchangeable strategies behind one
// contract: text in, ordered chunk list out. Strategies are a closed
// enum resolved through a dispatch table built at construction time;
// unknown strategy names are a configuration error, never a silent
// fallback.
//
// Chunking is pure and deterministic: the same text, strategy, and
// configuration always produce identical chunk boundaries. The only
// exception is the semantic strategy, which consults an embedder for
// paragraph similarity and degrades to the paragraph strategy when the
// embedder is unavailable.
//
// Every chunk carries an estimated token count for downstream batching.
// Estimation is isolated behind the TokenEstimator interface so the
// default character-ratio heuristic can be swapped for an exact
// tokenizer without touching chunk logic.
package chunk
