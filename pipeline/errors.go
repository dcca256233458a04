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


package pipeline

import "errors"

var (
	// ErrInvalidMaxAttempts indicates maxAttempts was not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrExecutionNotRunning indicates a cancellation request targeted
	// an execution that is not currently running.
	ErrExecutionNotRunning = errors.New("execution is not running")

	// ErrVectorDeleteFailed indicates the vector store deletion step of
	// reprocessing failed. The relational rows are untouched and the
	// document is parked in pending_deletion for a retry.
	ErrVectorDeleteFailed = errors.New("vector store deletion failed")

	// ErrEmbeddingFailed indicates chunk embedding failed for a page
	// after retries.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrNoContent indicates a document has no content to ingest.
	ErrNoContent = errors.New("no content")

	// Constructor dependency errors.
	ErrKnowledgeBaseRepositoryRequired = errors.New("knowledge base repository is required")
	ErrDocumentRepositoryRequired      = errors.New("document repository is required")
	ErrChunkRepositoryRequired         = errors.New("chunk repository is required")
	ErrExecutionStoreRequired          = errors.New("execution store is required")
	ErrVectorStoreRequired             = errors.New("vector store is required")
	ErrScraperRequired                 = errors.New("scraper is required")
)
