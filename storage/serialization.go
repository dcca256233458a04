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


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/substrate/core"
)

// Drafts and executions are schemaless payloads that evolve with the
// draft editor, so they are stored as JSON rather than a fixed binary
// layout.

// MarshalDraft serializes a draft for keyed storage.
func MarshalDraft(draft *core.Draft) ([]byte, error) {
	data, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("%w: draft %s: %v", ErrSerializationFailed, draft.Id, err)
	}
	return data, nil
}

// UnmarshalDraft deserializes a draft from keyed storage.
func UnmarshalDraft(data []byte) (*core.Draft, error) {
	var draft core.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("%w: draft: %v", ErrSerializationFailed, err)
	}
	return &draft, nil
}

// MarshalExecution serializes an execution snapshot.
func MarshalExecution(execution *core.Execution) ([]byte, error) {
	data, err := json.Marshal(execution)
	if err != nil {
		return nil, fmt.Errorf("%w: execution %s: %v", ErrSerializationFailed, execution.Id, err)
	}
	return data, nil
}

// UnmarshalExecution deserializes an execution snapshot.
func UnmarshalExecution(data []byte) (*core.Execution, error) {
	var execution core.Execution
	if err := json.Unmarshal(data, &execution); err != nil {
		return nil, fmt.Errorf("%w: execution: %v", ErrSerializationFailed, err)
	}
	return &execution, nil
}
