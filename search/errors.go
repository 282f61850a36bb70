// Copyright 2025 Veldt Labs
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


package search

import "errors"

var (
	// ErrStoreRequired is returned when a passage store is not provided.
	ErrStoreRequired = errors.New("passage store required")

	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrProviderRequired is returned when an embedding provider is not provided.
	ErrProviderRequired = errors.New("embedding provider required")

	// ErrEmptyQuery is returned when the query text is empty.
	ErrEmptyQuery = errors.New("query text required")

	// ErrNoMatch is returned by Query when no stored passage scores at or
	// above the relevance threshold. Callers distinguish "nothing relevant"
	// from operational failures by checking for this error.
	ErrNoMatch = errors.New("no passage above relevance threshold")

	// ErrInvalidThreshold is returned for thresholds outside [-1, 1].
	ErrInvalidThreshold = errors.New("relevance threshold must be within [-1, 1]")

	// ErrInvalidTopK is returned for a non-positive result count.
	ErrInvalidTopK = errors.New("result count must be positive")
)
