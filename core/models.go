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

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Chunk IDs are content-based so re-ingesting a document overwrites its chunks.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Document is raw extracted text tagged with the source it came from.
// Source is unique per uploaded file instance.
type Document struct {
	Text   string
	Source string
}

// Chunk is a slice of a Document's text. Source is inherited unmodified
// from the parent document.
type Chunk struct {
	Source string
	Text   string
	Index  int // Position of the chunk within its document
	Offset int // Byte offset of Text within the document
	// Overlap is the number of leading bytes of Text that repeat the end of
	// the previous chunk.
	Overlap int
}

// ID returns the content-based identity of the chunk within its source.
func (c *Chunk) ID() ID {
	return IDFromContent(c.Source + "\x00" + strconv.Itoa(c.Index) + "\x00" + c.Text)
}

// EmbeddingRecord is what gets persisted in the vector index.
type EmbeddingRecord struct {
	Id      ID
	Source  string
	Text    string
	Index   int
	Offset  int
	Overlap int
	Vector  []float32
}

// NewEmbeddingRecord pairs a chunk with its embedding vector.
func NewEmbeddingRecord(chunk Chunk, vector []float32) *EmbeddingRecord {
	return &EmbeddingRecord{
		Id:      chunk.ID(),
		Source:  chunk.Source,
		Text:    chunk.Text,
		Index:   chunk.Index,
		Offset:  chunk.Offset,
		Overlap: chunk.Overlap,
		Vector:  vector,
	}
}

// Chunk converts the record back into the chunk it was built from.
func (r *EmbeddingRecord) Chunk() Chunk {
	return Chunk{
		Source:  r.Source,
		Text:    r.Text,
		Index:   r.Index,
		Offset:  r.Offset,
		Overlap: r.Overlap,
	}
}

// SearchResult is a chunk returned by a similarity search.
type SearchResult struct {
	Chunk Chunk
	Score float32
}

// TaskStatus is the lifecycle state of one ingestion task.
type TaskStatus string

const (
	TaskPending TaskStatus = "PENDING"
	TaskStarted TaskStatus = "STARTED"
	TaskSuccess TaskStatus = "SUCCESS"
	TaskFailure TaskStatus = "FAILURE"
)

// Terminal reports whether no further transitions are possible.
func (s TaskStatus) Terminal() bool {
	return s == TaskSuccess || s == TaskFailure
}

// TaskRecord tracks one asynchronous ingestion invocation.
type TaskRecord struct {
	Id        string
	Locator   string // Storage locator the task was submitted for
	Status    TaskStatus
	Detail    string // Fault message when Status is FAILURE
	FaultKind string // Fault kind name when Status is FAILURE
	CreatedAt time.Time
	UpdatedAt time.Time
}
