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


// Package draft implements the staging lifecycle for entities that are
// assembled over multiple edits before becoming durable.
//
// A draft lives only in the TTL-keyed draft store; every partial update
// re-arms its expiry (auto-save), so an abandoned draft disappears on
// its own. Validation is type-specific: required-field violations are
// hard errors that block deployment, missing optional configuration
// produces warnings and defaults. Deployment validates, materializes
// the durable record plus side effects, then deletes the draft, guarded
// per draft ID so the same draft cannot deploy twice concurrently. A
// failed materialization leaves the draft intact for retry.
package draft
