package core

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated by deterministic hashing so that re-deriving the ID for
// the same passage always yields the same value.
type ID uint64

// PassageID generates a deterministic ID for a passage using BLAKE2b hashing
// over its source, row, and text.
//
// All three components participate in the hash because none alone is unique:
// identical text may appear in several documents (or twice in one), and the
// store keys passages by ID, so colliding IDs would make one row resolve to
// another row's record.
func PassageID(source string, row int, text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(source))
	var rowBytes [8]byte
	binary.LittleEndian.PutUint64(rowBytes[:], uint64(row))
	h.Write(rowBytes[:])
	h.Write([]byte(text))
	return ID(binary.LittleEndian.Uint64(h.Sum(nil)))
}

// SourceIDFromContent generates a content-addressed source identifier from
// raw document bytes. Two uploads with identical bytes share the same source
// ID regardless of filename, which keeps ingestion idempotent across renamed
// copies of the same document.
func SourceIDFromContent(data []byte) string {
	h, _ := blake2b.New(16, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Passage is a chunk of document text stored as one retrievable unit.
// Passages are immutable once created: the ingestion pipeline assigns Row at
// append time and rows are never reused or reordered.
type Passage struct {
	Id         ID
	Text       string
	Source     string // identifier of the originating document
	Row        int    // append-order position shared with the vector index
	InsertedAt time.Time
}

// Match represents a raw hit from the vector index.
type Match struct {
	Row   int
	Score float32
}

// QueryResult pairs a resolved passage with its relevance score.
type QueryResult struct {
	Passage *Passage
	Score   float32
}
