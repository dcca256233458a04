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


package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/storage"
)

const draftKeyPrefix = "substrate:draft:"

// scanBatchSize hints how many keys one SCAN round trip returns.
const scanBatchSize = 100

// DraftStore implements storage.DraftStore on Redis. Expiry rides on
// redis key TTLs, equivalent to the badger backend but shareable across
// processes.
type DraftStore struct {
	client redis.UniversalClient
	logger *slog.Logger
}

var _ storage.DraftStore = (*DraftStore)(nil)

// NewDraftStore creates a draft store on the given redis client. The
// caller owns the client's lifecycle unless Close is used.
func NewDraftStore(client redis.UniversalClient) *DraftStore {
	return &DraftStore{
		client: client,
		logger: slog.Default().With("component", "redis-draftstore"),
	}
}

// NewDraftStoreFromAddr dials addr (host:port) and returns a draft store
// owning the connection.
func NewDraftStoreFromAddr(addr, password string, db int) (*DraftStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewDraftStore(client), nil
}

func draftKey(id string) string {
	return draftKeyPrefix + id
}

// SetDraft writes a draft with the given TTL, replacing any existing
// entry and restarting its expiry.
func (s *DraftStore) SetDraft(ctx context.Context, draft *core.Draft, ttl time.Duration) error {
	value, err := storage.MarshalDraft(draft)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, draftKey(draft.Id), value, ttl).Err()
}

// GetDraft retrieves a draft by ID.
func (s *DraftStore) GetDraft(ctx context.Context, id string) (*core.Draft, error) {
	value, err := s.client.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return storage.UnmarshalDraft(value)
}

// DeleteDraft removes a draft by ID.
func (s *DraftStore) DeleteDraft(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, draftKey(id)).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListDrafts retrieves all live drafts, optionally filtered by workspace.
func (s *DraftStore) ListDrafts(ctx context.Context, workspaceId string) ([]*core.Draft, error) {
	var drafts []*core.Draft

	iter := s.client.Scan(ctx, 0, draftKeyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		value, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Expired between SCAN and GET.
				continue
			}
			return nil, err
		}
		draft, err := storage.UnmarshalDraft(value)
		if err != nil {
			s.logger.Warn("skipping unreadable draft", "key", iter.Val(), "err", err)
			continue
		}
		if workspaceId != "" && draft.WorkspaceId != workspaceId {
			continue
		}
		drafts = append(drafts, draft)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return drafts, nil
}

// Close closes the underlying redis client.
func (s *DraftStore) Close() error {
	return s.client.Close()
}
