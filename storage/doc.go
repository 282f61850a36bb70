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


// Package storage provides the storage abstraction layer for corpusdb.
//
// This package defines the PassageStore interface, which persists three
// structures that must stay positionally synchronized: the per-passage
// metadata (ordered by row), the per-row embedding vectors, and the document
// registry recording which sources were already ingested. Appends cover one
// whole source document and are atomic; a source is durable either
// completely or not at all.
//
// # Backends
//
//   - storage/badger: BadgerDB-backed store; one transaction per appended
//     source, with an in-memory mode for tests.
//   - storage/snapshot: file-backed store; each append rewrites versioned
//     snapshot files and swaps a manifest by atomic rename, so a crash
//     mid-persist never leaves a corrupted snapshot visible.
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.PassageStore interface to enforce
// abstraction and keep backends swappable:
//
//	store, err := badger.NewPassageStore(path)
//
// # Thread Safety
//
// All store implementations must be thread-safe. The ingestion pipeline is
// the single writer; readers run concurrently and never observe a partially
// appended source.
//
// # Context Support
//
// All store methods accept context.Context. Pass context.Background() for
// operations without specific timeout requirements.
package storage
