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


package vector

import (
	"context"
	"fmt"

	"github.com/poiesic/substrate/core"
)

// Point is one vector entry. Its ID is the chunk record UID, keeping the
// vector store and the relational rows 1:1.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Match is one search hit.
type Match struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// Store is the vector store port. Collections are keyed by knowledge
// base; see CollectionName.
type Store interface {
	// EnsureCollection creates the knowledge base's collection if it
	// doesn't exist. Idempotent.
	EnsureCollection(ctx context.Context, kbId core.ID, dimensions int) error

	// Upsert writes points into the knowledge base's collection,
	// replacing points with the same ID. The write is confirmed before
	// returning.
	Upsert(ctx context.Context, kbId core.ID, points []Point) error

	// Delete removes points by ID. Deletion must be confirmed: a nil
	// return means the points are gone. Deleting absent IDs is not an
	// error.
	Delete(ctx context.Context, kbId core.ID, ids []string) error

	// Search returns the closest points to the query vector, best
	// first. A non-empty filter restricts matches to points whose
	// payload fields equal the given values.
	Search(ctx context.Context, kbId core.ID, query []float32, filter map[string]string, limit int) ([]Match, error)

	// Count returns the number of points in the knowledge base's
	// collection.
	Count(ctx context.Context, kbId core.ID) (uint64, error)

	// Close releases the store's resources.
	Close() error
}

// CollectionName derives the collection name for a knowledge base.
func CollectionName(kbId core.ID) string {
	return fmt.Sprintf("kb_%d", kbId)
}
