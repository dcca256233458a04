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
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/substrate/chunk"
	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/storage"
)

// PipelineRunner enqueues a background ingestion run for a freshly
// deployed knowledge base. Implemented by the pipeline orchestrator.
type PipelineRunner interface {
	Enqueue(ctx context.Context, kb *core.KnowledgeBase, sources []core.Source) (executionId string, err error)
}

// KnowledgeBaseDeployer materializes knowledge-base drafts: writes the
// durable record and enqueues the ingestion pipeline.
type KnowledgeBaseDeployer struct {
	kbs    storage.KnowledgeBaseRepository
	runner PipelineRunner
	logger *slog.Logger
}

var _ Deployer = (*KnowledgeBaseDeployer)(nil)

// NewKnowledgeBaseDeployer creates the knowledge-base deployer.
func NewKnowledgeBaseDeployer(kbs storage.KnowledgeBaseRepository, runner PipelineRunner) *KnowledgeBaseDeployer {
	return &KnowledgeBaseDeployer{
		kbs:    kbs,
		runner: runner,
		logger: slog.Default().With("component", "kb-deployer"),
	}
}

// Deploy writes the knowledge-base record and enqueues the pipeline run.
// The record ID is derived from the draft ID, so retrying a failed
// deployment of the same draft targets the same record.
func (d *KnowledgeBaseDeployer) Deploy(ctx context.Context, draft *core.Draft) (*DeployResult, error) {
	chunking := draft.Data.Chunking
	if chunking == nil {
		chunking = &core.ChunkingConfig{
			Strategy: chunk.StrategyRecursive.String(),
			MaxSize:  chunk.DefaultMaxSize,
			Overlap:  chunk.DefaultOverlap,
		}
	}

	now := time.Now().UTC()
	kb := &core.KnowledgeBase{
		Id:          core.IDFromContent("kb:" + draft.Id),
		Name:        draft.Data.Name,
		Description: draft.Data.Description,
		WorkspaceId: draft.WorkspaceId,
		CreatedBy:   draft.CreatedBy,
		Embedding:   *draft.Data.Embedding,
		Chunking:    *chunking,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := d.kbs.AddKnowledgeBase(ctx, kb); err != nil {
		return nil, fmt.Errorf("materialize knowledge base: %w", err)
	}

	executionId, err := d.runner.Enqueue(ctx, kb, draft.Data.Sources)
	if err != nil {
		// Compensate so a retry of the deploy starts clean.
		if delErr := d.kbs.DeleteKnowledgeBase(ctx, kb.Id); delErr != nil {
			d.logger.Error("rollback of knowledge base failed", "id", kb.Id, "err", delErr)
		}
		return nil, fmt.Errorf("enqueue pipeline: %w", err)
	}

	return &DeployResult{
		KnowledgeBaseId: kb.Id,
		ExecutionId:     executionId,
	}, nil
}

// ChannelRegistrar provisions one delivery channel for a deployed
// chatbot (webhook registration and the like).
type ChannelRegistrar interface {
	Register(ctx context.Context, chatbotId core.ID, channel core.ChannelConfig) error
}

// ChatbotDeployer materializes chatbot drafts. The core record is
// atomic; channel registration is best effort, with per-channel
// failures recorded as warnings rather than aborting the others.
type ChatbotDeployer struct {
	bots      storage.ChatbotRepository
	registrar ChannelRegistrar
	logger    *slog.Logger
}

var _ Deployer = (*ChatbotDeployer)(nil)

// NewChatbotDeployer creates the chatbot deployer. The registrar may be
// nil, in which case channels are recorded but not provisioned.
func NewChatbotDeployer(bots storage.ChatbotRepository, registrar ChannelRegistrar) *ChatbotDeployer {
	return &ChatbotDeployer{
		bots:      bots,
		registrar: registrar,
		logger:    slog.Default().With("component", "chatbot-deployer"),
	}
}

// Deploy writes the chatbot record and registers its enabled channels.
func (d *ChatbotDeployer) Deploy(ctx context.Context, draft *core.Draft) (*DeployResult, error) {
	channels, err := json.Marshal(draft.Data.Channels)
	if err != nil {
		return nil, fmt.Errorf("encode channels: %w", err)
	}

	now := time.Now().UTC()
	bot := &core.Chatbot{
		Id:           core.IDFromContent("bot:" + draft.Id),
		Name:         draft.Data.Name,
		Description:  draft.Data.Description,
		WorkspaceId:  draft.WorkspaceId,
		CreatedBy:    draft.CreatedBy,
		ChannelsJSON: string(channels),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := d.bots.AddChatbot(ctx, bot); err != nil {
		return nil, fmt.Errorf("materialize chatbot: %w", err)
	}

	result := &DeployResult{}
	if d.registrar != nil {
		for _, channel := range draft.Data.Channels {
			if !channel.Enabled {
				continue
			}
			if err := d.registrar.Register(ctx, bot.Id, channel); err != nil {
				d.logger.Warn("channel registration failed", "chatbot", bot.Id, "channel", channel.Type, "err", err)
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("channel %s: %v", channel.Type, err))
			}
		}
	}
	return result, nil
}
