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


package storage

import "errors"

var (
	// ErrNotFound indicates that the requested passage was not found.
	ErrNotFound = errors.New("passage not found")

	// ErrAlreadyIngested indicates that the source document is already registered.
	ErrAlreadyIngested = errors.New("source already ingested")

	// ErrMisalignedAppend indicates an append whose passages and vectors
	// disagree in count or row positions. Such appends are rejected whole;
	// a partial write to one structure without the other is forbidden.
	ErrMisalignedAppend = errors.New("misaligned append")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrPersistenceFailed indicates that the durable snapshot could not be
	// written. The prior durable snapshot remains valid.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")
)
