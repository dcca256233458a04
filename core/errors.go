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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDraft indicates a Draft failed validation.
	ErrInvalidDraft = errors.New("invalid draft")

	// ErrInvalidSource indicates a Source failed validation.
	ErrInvalidSource = errors.New("invalid source")

	// ErrEmptyName indicates a required name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrNoSources indicates a knowledge base was defined without any
	// sources. An empty knowledge base is rejected, not silently
	// accepted.
	ErrNoSources = errors.New("at least one source is required")

	// ErrMissingEmbedding indicates a knowledge base has no embedding
	// configuration.
	ErrMissingEmbedding = errors.New("embedding configuration is required")

	// ErrInvalidChunkConfig indicates an invalid size/overlap
	// relationship or non-positive chunk size.
	ErrInvalidChunkConfig = errors.New("invalid chunking configuration")

	// ErrInvalidDraftType indicates an unrecognized draft type.
	ErrInvalidDraftType = errors.New("invalid draft type")

	// ErrInvalidTransition indicates an execution status transition that
	// would move backwards or leave a terminal state.
	ErrInvalidTransition = errors.New("invalid execution status transition")
)
