package badger

import (
	"encoding/binary"

	"github.com/poiesic/docrag/core"
)

// Key layout. Every component is terminated by a NUL byte; sources and
// collection names never contain one, so the key prefix of a source cannot
// match the keys of another source.
//
//	chunk\x00<collection>\x00<source>\x00<id:8 bytes big endian>
//	meta\x00<collection>\x00dim
//	task\x00<task id>
const (
	chunkPrefix = "chunk\x00"
	metaPrefix  = "meta\x00"
	taskPrefix  = "task\x00"
)

// makeCollectionPrefix returns the prefix shared by all chunks of a collection.
func makeCollectionPrefix(collection string) []byte {
	return []byte(chunkPrefix + collection + "\x00")
}

// makeSourcePrefix returns the prefix shared by all chunks of a source.
func makeSourcePrefix(collection, source string) []byte {
	return append(makeCollectionPrefix(collection), source+"\x00"...)
}

// makeChunkKey generates the key of one chunk record.
func makeChunkKey(collection, source string, id core.ID) []byte {
	prefix := makeSourcePrefix(collection, source)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeDimensionKey generates the key holding a collection's vector size.
func makeDimensionKey(collection string) []byte {
	return []byte(metaPrefix + collection + "\x00dim")
}

// makeTaskKey generates the key of a task record.
func makeTaskKey(id string) []byte {
	return []byte(taskPrefix + id)
}
