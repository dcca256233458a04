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

import "errors"

var (
	// ErrValidationFailed indicates the draft has hard validation errors
	// and cannot deploy.
	ErrValidationFailed = errors.New("draft validation failed")

	// ErrDeployInProgress indicates another deployment of the same draft
	// is already in flight.
	ErrDeployInProgress = errors.New("deployment already in progress")

	// ErrNoValidator indicates no validator is registered for the draft type.
	ErrNoValidator = errors.New("no validator for draft type")

	// ErrNoDeployer indicates no deployer is registered for the draft type.
	ErrNoDeployer = errors.New("no deployer for draft type")
)
