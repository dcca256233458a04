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
	"fmt"

	"github.com/poiesic/substrate/chunk"
	"github.com/poiesic/substrate/core"
)

// KnowledgeBaseValidator checks knowledge-base drafts. Name, at least
// one valid source and an embedding configuration are required; a
// missing chunking configuration is a warning (defaults apply at
// deployment).
type KnowledgeBaseValidator struct{}

var _ Validator = (*KnowledgeBaseValidator)(nil)

// NewKnowledgeBaseValidator creates the knowledge-base validator.
func NewKnowledgeBaseValidator() *KnowledgeBaseValidator {
	return &KnowledgeBaseValidator{}
}

// Validate applies the knowledge-base deployment rules.
func (v *KnowledgeBaseValidator) Validate(draft *core.Draft) *ValidationResult {
	result := &ValidationResult{}

	if draft.Data.Name == "" {
		result.Errors = append(result.Errors, "name is required")
	}
	if len(draft.Data.Sources) == 0 {
		result.Errors = append(result.Errors, "at least one source is required")
	}
	for _, source := range draft.Data.Sources {
		if err := core.ValidateSource(&source); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("source %s: %v", source.Id, err))
		}
	}

	if draft.Data.Embedding == nil {
		result.Errors = append(result.Errors, "embedding configuration is required")
	} else {
		if draft.Data.Embedding.Host == "" {
			result.Errors = append(result.Errors, "embedding host is required")
		}
		if draft.Data.Embedding.Model == "" {
			result.Errors = append(result.Errors, "embedding model is required")
		}
	}

	if draft.Data.Chunking == nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("no chunking configuration, defaults apply (recursive, max size %d, overlap %d)",
				chunk.DefaultMaxSize, chunk.DefaultOverlap))
	} else {
		if _, err := chunk.ParseStrategy(draft.Data.Chunking.Strategy); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
		if err := core.ValidateChunkingConfig(draft.Data.Chunking); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ChatbotValidator checks chatbot drafts. The core record needs a name;
// channels are best-effort side effects so a draft with no channels is
// merely warned about.
type ChatbotValidator struct{}

var _ Validator = (*ChatbotValidator)(nil)

// NewChatbotValidator creates the chatbot validator.
func NewChatbotValidator() *ChatbotValidator {
	return &ChatbotValidator{}
}

// Validate applies the chatbot deployment rules.
func (v *ChatbotValidator) Validate(draft *core.Draft) *ValidationResult {
	result := &ValidationResult{}

	if draft.Data.Name == "" {
		result.Errors = append(result.Errors, "name is required")
	}
	if len(draft.Data.Channels) == 0 {
		result.Warnings = append(result.Warnings, "no delivery channels configured")
	}
	for i, channel := range draft.Data.Channels {
		if channel.Type == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("channel %d: type is required", i))
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}
