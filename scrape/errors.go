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


package scrape

import "errors"

var (
	// ErrUnsupportedContent indicates the fetched resource is neither
	// HTML nor plain text.
	ErrUnsupportedContent = errors.New("unsupported content type")

	// ErrPageTooLarge indicates the response body exceeds the configured
	// byte limit.
	ErrPageTooLarge = errors.New("page too large")

	// ErrBadStatus indicates the server answered with a non-2xx status.
	ErrBadStatus = errors.New("unexpected HTTP status")

	// ErrInvalidURL indicates the URL could not be parsed or uses an
	// unsupported scheme.
	ErrInvalidURL = errors.New("invalid URL")
)
