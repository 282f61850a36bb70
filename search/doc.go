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


// Package search answers natural-language queries over the ingested corpus.
//
// The Engine embeds a query, searches the vector index for the nearest
// stored passages by inner product, and resolves the winning rows to their
// passages in the store. A relevance threshold separates "found something"
// from "nothing relevant": scores below it are dropped rather than returned
// as weak answers.
package search
