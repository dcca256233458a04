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


package draft

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/storage"
)

// DefaultTTL is how long a draft survives without being touched.
const DefaultTTL = 24 * time.Hour

// ValidationResult is the outcome of validating a draft. Errors block
// deployment; warnings do not.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// DeployResult reports what a deployment produced.
type DeployResult struct {
	// KnowledgeBaseId is set for knowledge-base deployments.
	KnowledgeBaseId core.ID `json:"knowledge_base_id,omitempty"`

	// ExecutionId is set when a pipeline run was enqueued.
	ExecutionId string `json:"execution_id,omitempty"`

	// Warnings carries validation warnings and per-channel side-effect
	// failures. Deployment succeeded despite them.
	Warnings []string `json:"warnings,omitempty"`
}

// Validator checks a draft of one type against its deployment rules.
type Validator interface {
	Validate(draft *core.Draft) *ValidationResult
}

// Deployer materializes a validated draft of one type into its durable
// form and runs type-specific side effects.
type Deployer interface {
	Deploy(ctx context.Context, draft *core.Draft) (*DeployResult, error)
}

// UpdateRequest is a partial draft update. Nil or zero fields leave the
// stored value untouched; set fields replace it whole (last writer wins).
type UpdateRequest struct {
	Name        *string               `json:"name,omitempty"`
	Description *string               `json:"description,omitempty"`
	Sources     []core.Source         `json:"sources,omitempty"`
	Embedding   *core.EmbeddingConfig `json:"embedding,omitempty"`
	Chunking    *core.ChunkingConfig  `json:"chunking,omitempty"`
	Channels    []core.ChannelConfig  `json:"channels,omitempty"`
	Preview     map[string]any        `json:"preview,omitempty"`
}

// Manager owns the draft lifecycle: create, partial update with TTL
// extension, validate, and two-phase deploy.
type Manager struct {
	store      storage.DraftStore
	ttl        time.Duration
	validators map[core.DraftType]Validator
	deployers  map[core.DraftType]Deployer
	logger     *slog.Logger

	mu        sync.Mutex
	deploying map[string]bool
}

// ManagerOption is a functional option for configuring a Manager.
type ManagerOption func(*Manager)

// WithTTL overrides the draft time-to-live.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithValidator registers a validator for a draft type.
func WithValidator(draftType core.DraftType, v Validator) ManagerOption {
	return func(m *Manager) {
		m.validators[draftType] = v
	}
}

// WithDeployer registers a deployer for a draft type.
func WithDeployer(draftType core.DraftType, d Deployer) ManagerOption {
	return func(m *Manager) {
		m.deployers[draftType] = d
	}
}

// NewManager creates a draft manager on the given store. Validators and
// deployers are registered through options; a knowledge-base validator
// is registered by default.
func NewManager(store storage.DraftStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		ttl:        DefaultTTL,
		validators: map[core.DraftType]Validator{},
		deployers:  map[core.DraftType]Deployer{},
		logger:     slog.Default().With("component", "draft-manager"),
		deploying:  map[string]bool{},
	}
	m.validators[core.DraftTypeKnowledgeBase] = NewKnowledgeBaseValidator()
	m.validators[core.DraftTypeChatbot] = NewChatbotValidator()
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create stages a new draft with the given initial data.
func (m *Manager) Create(ctx context.Context, draftType core.DraftType, workspaceId, createdBy string, data core.DraftData) (*core.Draft, error) {
	if err := core.ValidateDraftType(draftType); err != nil {
		return nil, err
	}
	for i := range data.Sources {
		if data.Sources[i].Id == "" {
			data.Sources[i].Id = uuid.NewString()
		}
	}

	now := time.Now().UTC()
	draft := &core.Draft{
		Id:          uuid.NewString(),
		Type:        draftType,
		WorkspaceId: workspaceId,
		CreatedBy:   createdBy,
		Status:      "draft",
		Data:        data,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(m.ttl),
		LastSavedAt: now,
	}
	if err := m.store.SetDraft(ctx, draft, m.ttl); err != nil {
		return nil, err
	}

	m.logger.Info("draft created", "id", draft.Id, "type", draftType, "workspace", workspaceId)
	return draft, nil
}

// Get retrieves a draft. An expired draft is indistinguishable from one
// that never existed.
func (m *Manager) Get(ctx context.Context, id string) (*core.Draft, error) {
	return m.store.GetDraft(ctx, id)
}

// List retrieves live drafts, optionally filtered by workspace.
func (m *Manager) List(ctx context.Context, workspaceId string) ([]*core.Draft, error) {
	return m.store.ListDrafts(ctx, workspaceId)
}

// Update applies a partial update and extends the draft's TTL
// (auto-save). Set fields replace the stored value whole.
func (m *Manager) Update(ctx context.Context, id string, update UpdateRequest) (*core.Draft, error) {
	draft, err := m.store.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		draft.Data.Name = *update.Name
	}
	if update.Description != nil {
		draft.Data.Description = *update.Description
	}
	if update.Sources != nil {
		for i := range update.Sources {
			if update.Sources[i].Id == "" {
				update.Sources[i].Id = uuid.NewString()
			}
		}
		draft.Data.Sources = update.Sources
	}
	if update.Embedding != nil {
		draft.Data.Embedding = update.Embedding
	}
	if update.Chunking != nil {
		draft.Data.Chunking = update.Chunking
	}
	if update.Channels != nil {
		draft.Data.Channels = update.Channels
	}
	if update.Preview != nil {
		draft.Preview = update.Preview
	}

	now := time.Now().UTC()
	draft.UpdatedAt = now
	draft.LastSavedAt = now
	draft.ExpiresAt = now.Add(m.ttl)

	if err := m.store.SetDraft(ctx, draft, m.ttl); err != nil {
		return nil, err
	}
	return draft, nil
}

// Delete abandons a draft.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.DeleteDraft(ctx, id)
}

// Validate checks a draft against its type's deployment rules.
func (m *Manager) Validate(ctx context.Context, id string) (*ValidationResult, error) {
	draft, err := m.store.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	validator, ok := m.validators[draft.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoValidator, draft.Type)
	}
	return validator.Validate(draft), nil
}

// Deploy runs the two-phase commit: validate, materialize, delete the
// draft. A failed materialization leaves the draft intact so the caller
// can retry without re-entering configuration.
func (m *Manager) Deploy(ctx context.Context, id string) (*DeployResult, error) {
	if !m.tryAcquire(id) {
		return nil, fmt.Errorf("%w: draft %s", ErrDeployInProgress, id)
	}
	defer m.release(id)

	draft, err := m.store.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	validator, ok := m.validators[draft.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoValidator, draft.Type)
	}
	result := validator.Validate(draft)
	if !result.Valid {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, result.Errors)
	}

	deployer, ok := m.deployers[draft.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDeployer, draft.Type)
	}

	deployed, err := deployer.Deploy(ctx, draft)
	if err != nil {
		m.logger.Error("deployment failed, draft retained", "id", id, "err", err)
		return nil, err
	}
	deployed.Warnings = append(result.Warnings, deployed.Warnings...)

	if err := m.store.DeleteDraft(ctx, id); err != nil {
		// The durable record exists; losing the stale draft copy is the
		// lesser problem. Report it as a warning.
		m.logger.Warn("deployed but draft cleanup failed", "id", id, "err", err)
		deployed.Warnings = append(deployed.Warnings, fmt.Sprintf("draft cleanup failed: %v", err))
	}

	m.logger.Info("draft deployed", "id", id, "type", draft.Type)
	return deployed, nil
}

func (m *Manager) tryAcquire(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deploying[id] {
		return false
	}
	m.deploying[id] = true
	return true
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deploying, id)
}
