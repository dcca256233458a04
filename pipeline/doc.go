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


// Package pipeline orchestrates knowledge-base ingestion: scraping
// sources, chunking, embedding, and indexing into the vector store.
//
// Executions run asynchronously on a worker pool. Progress is persisted
// to the execution store after every page, failures are recorded per
// page instead of aborting the run, and cancellation is cooperative at
// page boundaries. Reprocess implements the crash-safe replacement of a
// single document's chunks, deleting its vectors before anything else
// so the relational rows always cover the vectors that still exist.
package pipeline
