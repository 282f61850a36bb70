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


package index

import "errors"

var (
	// ErrInvalidDimension indicates a non-positive index dimension.
	ErrInvalidDimension = errors.New("invalid index dimension")

	// ErrDimensionMismatch indicates a vector whose length does not match
	// the index dimension. Mismatched vectors are never truncated or padded.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
