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



// Package storage provides the storage abstraction layer for docrag.
//
// This package defines repository interfaces that decouple the vector index and
// task persistence from the pipelines. Two chunk index backends exist:
// storage/badger keeps everything in an embedded BadgerDB, storage/qdrant talks
// to a remote Qdrant server.
//
// # Source Isolation
//
// Every chunk is stored together with its source identifier. FindSimilar takes a
// source and never returns a record whose source differs from it; searching a
// source with no records returns an empty result, not an error.
//
// # Idempotency
//
// Chunk records are keyed by a content hash of (source, index, text). Upserting
// the same document twice overwrites records in place instead of duplicating them.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	chunks, err := badger.NewChunkRepository(backend, "tektome")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := chunks.EnsureCollection(ctx, 1536); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
