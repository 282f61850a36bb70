package snapshot

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/veldtlabs/corpusdb/core"
	"github.com/veldtlabs/corpusdb/storage"
)

// Snapshot file encoding: a varint element count followed by the MUS-encoded
// elements. The three files of a snapshot version share this layout.

func encodePassages(passages []*core.Passage) []byte {
	size := varint.Int.Size(len(passages))
	for _, p := range passages {
		size += core.PassageMUS.Size(*p)
	}

	buf := make([]byte, size)
	n := varint.Int.Marshal(len(passages), buf)
	for _, p := range passages {
		n += core.PassageMUS.Marshal(*p, buf[n:])
	}
	return buf
}

func decodePassages(data []byte) ([]*core.Passage, error) {
	count, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: passage count: %w", storage.ErrSerializationFailed, err)
	}

	passages := make([]*core.Passage, 0, count)
	for i := 0; i < count; i++ {
		passage, n1, err := core.PassageMUS.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: passage %d: %w", storage.ErrSerializationFailed, i, err)
		}
		n += n1
		passages = append(passages, &passage)
	}
	return passages, nil
}

func encodeVectors(vectors [][]float32) []byte {
	size := varint.Int.Size(len(vectors))
	for _, v := range vectors {
		size += core.VectorMUS.Size(v)
	}

	buf := make([]byte, size)
	n := varint.Int.Marshal(len(vectors), buf)
	for _, v := range vectors {
		n += core.VectorMUS.Marshal(v, buf[n:])
	}
	return buf
}

func decodeVectors(data []byte) ([][]float32, error) {
	count, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: vector count: %w", storage.ErrSerializationFailed, err)
	}

	vectors := make([][]float32, 0, count)
	for i := 0; i < count; i++ {
		vector, n1, err := core.VectorMUS.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: vector %d: %w", storage.ErrSerializationFailed, i, err)
		}
		n += n1
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

func encodeRegistry(registry map[string]time.Time) []byte {
	size := varint.Int.Size(len(registry))
	for source, ts := range registry {
		size += ord.String.Size(source)
		size += varint.Int64.Size(ts.UnixMicro())
	}

	buf := make([]byte, size)
	n := varint.Int.Marshal(len(registry), buf)
	for source, ts := range registry {
		n += ord.String.Marshal(source, buf[n:])
		n += varint.Int64.Marshal(ts.UnixMicro(), buf[n:])
	}
	return buf
}

func decodeRegistry(data []byte) (map[string]time.Time, error) {
	count, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: registry count: %w", storage.ErrSerializationFailed, err)
	}

	registry := make(map[string]time.Time, count)
	for i := 0; i < count; i++ {
		source, n1, err := ord.String.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: registry entry %d: %w", storage.ErrSerializationFailed, i, err)
		}
		n += n1

		micros, n1, err := varint.Int64.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: registry entry %d: %w", storage.ErrSerializationFailed, i, err)
		}
		n += n1

		registry[source] = time.UnixMicro(micros).UTC()
	}
	return registry, nil
}
