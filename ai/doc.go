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


// Package ai defines the embedding port the ingestion pipeline depends
// on.
//
// The Embedder interface abstracts the embedding backend so the core
// domain and pipeline depend on the abstraction rather than a concrete
// provider. The openai subpackage implements it against any
// OpenAI-compatible API; the mock subpackage provides deterministic
// test doubles.
//
// EmbedInBatches is the batching layer: it splits large inputs at the
// configured batch size and reports which inputs failed instead of
// failing the whole call, which is what lets the pipeline count and
// skip failed pages rather than aborting a run.
package ai
