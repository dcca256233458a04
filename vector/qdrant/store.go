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


package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/qdrant/go-client/qdrant"

	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/vector"
)

// Config holds the qdrant connection settings.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// DefaultConfig returns settings for a local qdrant instance (gRPC port).
func DefaultConfig() *Config {
	return &Config{Host: "localhost", Port: 6334}
}

// Store implements vector.Store on the qdrant gRPC client.
type Store struct {
	client *qdrant.Client
	logger *slog.Logger
}

var _ vector.Store = (*Store)(nil)

// NewStore connects to qdrant with the given configuration.
func NewStore(config *Config) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		APIKey: config.APIKey,
		UseTLS: config.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &Store{
		client: client,
		logger: slog.Default().With("component", "qdrant-store"),
	}, nil
}

// EnsureCollection creates the knowledge base's collection if it doesn't
// exist.
func (s *Store) EnsureCollection(ctx context.Context, kbId core.ID, dimensions int) error {
	name := vector.CollectionName(kbId)

	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if slices.Contains(names, name) {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}

	s.logger.Info("created collection", "name", name, "dimensions", dimensions)
	return nil
}

// Upsert writes points, waiting for the write to be applied.
func (s *Store) Upsert(ctx context.Context, kbId core.ID, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(p.Payload),
		})
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: vector.CollectionName(kbId),
		Points:         qdrantPoints,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Delete removes points by ID, waiting for the delete to be applied.
func (s *Store) Delete(ctx context.Context, kbId core.ID, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	qdrantIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		qdrantIDs = append(qdrantIDs, qdrant.NewID(id))
	}

	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: vector.CollectionName(kbId),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: qdrantIDs},
			},
		},
		Wait: &wait,
	})
	if err != nil {
		return fmt.Errorf("delete %d points: %w", len(ids), err)
	}
	return nil
}

// Search returns the closest points to the query vector, optionally
// restricted to points whose payload fields match the filter.
func (s *Store) Search(ctx context.Context, kbId core.ID, query []float32, filter map[string]string, limit int) ([]vector.Match, error) {
	qLimit := uint64(limit)
	var qFilter *qdrant.Filter
	if len(filter) > 0 {
		conditions := make([]*qdrant.Condition, 0, len(filter))
		for field, value := range filter {
			conditions = append(conditions, qdrant.NewMatch(field, value))
		}
		qFilter = &qdrant.Filter{Must: conditions}
	}
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: vector.CollectionName(kbId),
		Query:          qdrant.NewQuery(query...),
		Filter:         qFilter,
		Limit:          &qLimit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	matches := make([]vector.Match, 0, len(resp))
	for _, point := range resp {
		match := vector.Match{Score: point.Score}
		switch id := point.Id.PointIdOptions.(type) {
		case *qdrant.PointId_Uuid:
			match.ID = id.Uuid
		case *qdrant.PointId_Num:
			match.ID = fmt.Sprintf("%d", id.Num)
		}
		if len(point.Payload) > 0 {
			match.Payload = payloadToMap(point.Payload)
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Count returns the number of points in the knowledge base's collection.
func (s *Store) Count(ctx context.Context, kbId core.ID) (uint64, error) {
	info, err := s.client.GetCollectionInfo(ctx, vector.CollectionName(kbId))
	if err != nil {
		return 0, fmt.Errorf("collection info: %w", err)
	}
	if info.PointsCount == nil {
		return 0, nil
	}
	return *info.PointsCount, nil
}

// Close closes the gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// payloadToMap flattens qdrant payload values into plain Go values.
func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		switch v := value.Kind.(type) {
		case *qdrant.Value_StringValue:
			out[key] = v.StringValue
		case *qdrant.Value_IntegerValue:
			out[key] = v.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[key] = v.DoubleValue
		case *qdrant.Value_BoolValue:
			out[key] = v.BoolValue
		default:
			out[key] = value.String()
		}
	}
	return out
}
