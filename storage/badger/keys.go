package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/veldtlabs/corpusdb/core"
)

// Key prefixes for different data types
const (
	passageRecordPrefix = "pasrec"
	passageRowPrefix    = "pasrow"
	vectorRowPrefix     = "pasvec"
	registryPrefix      = "srcreg"
	rowCountKey         = "pascnt"
)

// makePassageKey generates a key for a passage record by ID.
func makePassageKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", passageRecordPrefix, id))
}

// makeRowKey generates a key for the row index.
// Rows are written in BigEndian order so lexicographic iteration follows
// append order.
func makeRowKey(row int) []byte {
	return makeOrderedKey(passageRowPrefix, row)
}

// makeVectorKey generates a key for the per-row vector.
func makeVectorKey(row int) []byte {
	return makeOrderedKey(vectorRowPrefix, row)
}

// makeRegistryKey generates a key for a document registry entry.
func makeRegistryKey(source string) []byte {
	return []byte(registryPrefix + ":" + source)
}

func makeOrderedKey(prefix string, row int) []byte {
	prefixBytes := []byte(prefix + ":")
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(row))
	return buf
}
