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


// Package storage defines the persistence ports of the ingestion engine
// and the serialization shared by their backends.
//
// Relational records (knowledge bases, documents, chunk rows) live behind
// KnowledgeBaseRepository, DocumentRepository and ChunkRepository,
// implemented on SQLite in storage/sqlite. Ephemeral state lives behind
// two keyed TTL ports: DraftStore (drafts expire unless touched) and
// ExecutionStore (executions are retained for a bounded window), both
// implemented on BadgerDB in storage/badger, with a Redis DraftStore in
// storage/redis for shared deployments.
//
// All implementations must be safe for concurrent use. Lookup misses are
// reported as ErrNotFound so callers can distinguish absence from
// backend failure.
package storage
