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


package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/storage"
)

// DraftStore implements storage.DraftStore on BadgerDB. Expiry rides on
// badger's native entry TTL, so an untouched draft vanishes without any
// sweeper process.
type DraftStore struct {
	backend *Backend
}

var _ storage.DraftStore = (*DraftStore)(nil)

// NewDraftStore creates a draft store on the given backend.
func NewDraftStore(backend *Backend) *DraftStore {
	return &DraftStore{backend: backend}
}

// SetDraft writes a draft with the given TTL, replacing any existing
// entry and restarting its expiry.
func (s *DraftStore) SetDraft(ctx context.Context, draft *core.Draft, ttl time.Duration) error {
	value, err := storage.MarshalDraft(draft)
	if err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		entry := badger.NewEntry(makeDraftKey(draft.Id), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		if err := tx.SetEntry(entry); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetDraft retrieves a draft by ID.
func (s *DraftStore) GetDraft(ctx context.Context, id string) (*core.Draft, error) {
	var draft *core.Draft
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDraftKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			draft, unmarshalErr = storage.UnmarshalDraft(val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// DeleteDraft removes a draft by ID.
func (s *DraftStore) DeleteDraft(ctx context.Context, id string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDraftKey(id)
		if _, err := tx.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListDrafts retrieves all live drafts, optionally filtered by workspace.
func (s *DraftStore) ListDrafts(ctx context.Context, workspaceId string) ([]*core.Draft, error) {
	var drafts []*core.Draft
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(draftPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var draft *core.Draft
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				draft, unmarshalErr = storage.UnmarshalDraft(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			if workspaceId != "" && draft.WorkspaceId != workspaceId {
				continue
			}
			drafts = append(drafts, draft)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

// Close is a no-op; the shared backend owns the database handle.
func (s *DraftStore) Close() error {
	return nil
}
