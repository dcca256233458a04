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

// DefaultExecutionRetention is how long finished executions remain
// readable by status pollers.
const DefaultExecutionRetention = 7 * 24 * time.Hour

// ExecutionStore implements storage.ExecutionStore on BadgerDB. Every
// write re-arms the retention TTL, so an execution ages out relative to
// its last update, not its creation.
type ExecutionStore struct {
	backend   *Backend
	retention time.Duration
}

var _ storage.ExecutionStore = (*ExecutionStore)(nil)

// NewExecutionStore creates an execution store on the given backend.
// A retention of 0 falls back to DefaultExecutionRetention.
func NewExecutionStore(backend *Backend, retention time.Duration) *ExecutionStore {
	if retention <= 0 {
		retention = DefaultExecutionRetention
	}
	return &ExecutionStore{backend: backend, retention: retention}
}

// PutExecution writes the execution state, replacing any previous
// snapshot.
func (s *ExecutionStore) PutExecution(ctx context.Context, execution *core.Execution) error {
	value, err := storage.MarshalExecution(execution)
	if err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		entry := badger.NewEntry(makeExecutionKey(execution.Id), value).WithTTL(s.retention)
		if err := tx.SetEntry(entry); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetExecution retrieves an execution by ID.
func (s *ExecutionStore) GetExecution(ctx context.Context, id string) (*core.Execution, error) {
	var execution *core.Execution
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeExecutionKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			execution, unmarshalErr = storage.UnmarshalExecution(val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return execution, nil
}

// ListExecutions retrieves all retained executions, optionally filtered
// by knowledge base.
func (s *ExecutionStore) ListExecutions(ctx context.Context, kbId core.ID) ([]*core.Execution, error) {
	var executions []*core.Execution
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(executionPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var execution *core.Execution
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				execution, unmarshalErr = storage.UnmarshalExecution(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			if kbId != 0 && execution.KnowledgeBaseId != kbId {
				continue
			}
			executions = append(executions, execution)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return executions, nil
}

// Close is a no-op; the shared backend owns the database handle.
func (s *ExecutionStore) Close() error {
	return nil
}
