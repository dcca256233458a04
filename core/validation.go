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


package core

import "fmt"

// ValidateDraftType checks that a draft type is one of the known kinds.
func ValidateDraftType(t DraftType) error {
	switch t {
	case DraftTypeKnowledgeBase, DraftTypeChatbot:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidDraftType, t)
}

// ValidateSource validates a single source according to its type.
//
// Validation rules:
//   - web sources need a location (the start URL)
//   - file sources need a location (the path)
//   - text sources need non-empty text
func ValidateSource(source *Source) error {
	if source == nil {
		return fmt.Errorf("%w: source is nil", ErrInvalidSource)
	}

	switch source.Type {
	case SourceTypeWeb, SourceTypeFile:
		if source.Location == "" {
			return fmt.Errorf("%w: %s source needs a location", ErrInvalidSource, source.Type)
		}
	case SourceTypeText:
		if source.Text == "" {
			return fmt.Errorf("%w: text source needs content", ErrInvalidSource)
		}
	default:
		return fmt.Errorf("%w: unknown source type %q", ErrInvalidSource, source.Type)
	}

	return nil
}

// ValidateChunkingConfig rejects size/overlap combinations the chunking
// engine must never silently miscompute. Strategy name resolution is the
// chunk package's concern.
func ValidateChunkingConfig(cfg *ChunkingConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidChunkConfig)
	}
	if cfg.MaxSize <= 0 {
		return fmt.Errorf("%w: max size must be positive, got %d", ErrInvalidChunkConfig, cfg.MaxSize)
	}
	if cfg.Overlap < 0 {
		return fmt.Errorf("%w: overlap cannot be negative, got %d", ErrInvalidChunkConfig, cfg.Overlap)
	}
	if cfg.Overlap >= cfg.MaxSize {
		return fmt.Errorf("%w: overlap %d must be smaller than max size %d",
			ErrInvalidChunkConfig, cfg.Overlap, cfg.MaxSize)
	}
	return nil
}
