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

import (
	"context"
	"log/slog"
	"sync"

	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/storage"
)

// Tracker owns one execution's state during a run. Every mutation goes
// through it and is persisted immediately, so a status poller reading
// the store sees progress no staler than the last completed unit of
// work. Persistence failures are logged, never fatal: losing a progress
// snapshot must not kill the ingestion itself.
type Tracker struct {
	store  storage.ExecutionStore
	logger *slog.Logger

	mu        sync.Mutex
	execution *core.Execution
}

// NewTracker wraps an execution for tracked mutation.
func NewTracker(store storage.ExecutionStore, execution *core.Execution, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default().With("component", "pipeline")
	}
	return &Tracker{store: store, logger: logger, execution: execution}
}

// Update applies fn to the execution under lock and persists the result.
func (t *Tracker) Update(fn func(e *core.Execution)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.execution)
	t.persistLocked()
}

// Snapshot returns a copy of the execution for read-only use.
func (t *Tracker) Snapshot() core.Execution {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot := *t.execution
	snapshot.Log = append([]core.LogEntry(nil), t.execution.Log...)
	return snapshot
}

// persistLocked writes the current state to the store. It uses a
// background context so the terminal snapshot of a cancelled run still
// gets written.
func (t *Tracker) persistLocked() {
	snapshot := *t.execution
	snapshot.Log = append([]core.LogEntry(nil), t.execution.Log...)
	if err := t.store.PutExecution(context.Background(), &snapshot); err != nil {
		t.logger.Warn("failed to persist execution state",
			"executionId", t.execution.Id, "error", err)
	}
}
