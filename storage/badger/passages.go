package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/veldtlabs/corpusdb/core"
	"github.com/veldtlabs/corpusdb/storage"
)

// PassageStore implements storage.PassageStore for BadgerDB.
//
// Each appended source is written in a single transaction: passage records,
// the row index, the per-row vectors, the registry marker, and the row
// counter all commit together, so the metadata store and the vector rows can
// never diverge.
type PassageStore struct {
	backend *Backend
}

var _ storage.PassageStore = (*PassageStore)(nil)

// NewPassageStore opens a BadgerDB-backed passage store at the given path.
//
// Returns storage.PassageStore interface to enforce abstraction.
func NewPassageStore(filePath string) (storage.PassageStore, error) {
	backend, err := OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}
	return &PassageStore{backend: backend}, nil
}

// newStore wraps an existing backend. Used by tests.
func newStore(backend *Backend) *PassageStore {
	return &PassageStore{backend: backend}
}

// Close closes the underlying database.
func (s *PassageStore) Close() error {
	return s.backend.Close()
}

// AppendSource atomically persists one source document.
func (s *PassageStore) AppendSource(ctx context.Context, source string, passages []*core.Passage, vectors [][]float32) error {
	if source == "" {
		return fmt.Errorf("%w: empty source", storage.ErrMisalignedAppend)
	}
	if len(passages) != len(vectors) {
		return fmt.Errorf("%w: %d passages, %d vectors", storage.ErrMisalignedAppend, len(passages), len(vectors))
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		// Reject a source that is already registered.
		_, err := tx.Get(makeRegistryKey(source))
		if err == nil {
			return storage.ErrAlreadyIngested
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		count, err := readRowCount(tx)
		if err != nil {
			return err
		}

		for i, passage := range passages {
			if err := core.ValidatePassage(passage); err != nil {
				return err
			}
			// Rows must continue the existing sequence; anything else
			// would desynchronize the vector index.
			if passage.Row != count+i {
				return fmt.Errorf("%w: row %d at position %d, store size %d",
					storage.ErrMisalignedAppend, passage.Row, i, count)
			}

			if passage.InsertedAt.IsZero() {
				passage.InsertedAt = time.Now().UTC()
			}

			if err := tx.Set(makePassageKey(passage.Id), storage.MarshalPassage(passage)); err != nil {
				return err
			}
			if err := tx.Set(makeRowKey(passage.Row), storage.MarshalID(passage.Id)); err != nil {
				return err
			}
			if err := tx.Set(makeVectorKey(passage.Row), storage.MarshalVector(vectors[i])); err != nil {
				return err
			}
		}

		if err := tx.Set(makeRegistryKey(source), marshalTimestamp(time.Now().UTC())); err != nil {
			return err
		}
		if err := writeRowCount(tx, count+len(passages)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// GetByRow retrieves the passage at the given row position.
func (s *PassageStore) GetByRow(ctx context.Context, row int) (*core.Passage, error) {
	var passage *core.Passage

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRowKey(row))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}

		var id core.ID
		if err := item.Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return err
		}

		passage, err = readPassage(tx, id)
		return err
	}, false)

	if err != nil {
		return nil, err
	}
	return passage, nil
}

// GetByID retrieves a passage by its derived ID.
func (s *PassageStore) GetByID(ctx context.Context, id core.ID) (*core.Passage, error) {
	var passage *core.Passage

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		passage, err = readPassage(tx, id)
		return err
	}, false)

	if err != nil {
		return nil, err
	}
	return passage, nil
}

// Size returns the number of stored passages.
func (s *PassageStore) Size(ctx context.Context) (int, error) {
	var count int
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		count, err = readRowCount(tx)
		return err
	}, false)
	return count, err
}

// Registered reports whether a source document has already been ingested.
func (s *PassageStore) Registered(ctx context.Context, source string) (bool, error) {
	var registered bool
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeRegistryKey(source))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		registered = true
		return nil
	}, false)
	return registered, err
}

// Sources returns all registered source identifiers.
func (s *PassageStore) Sources(ctx context.Context) ([]string, error) {
	var sources []string

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(registryPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := string(iter.Item().Key())
			sources = append(sources, strings.TrimPrefix(key, registryPrefix+":"))
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return sources, nil
}

// Vectors returns every stored vector in row order.
// BigEndian row keys make badger's lexicographic iteration follow append order.
func (s *PassageStore) Vectors(ctx context.Context) ([][]float32, error) {
	var vectors [][]float32

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorRowPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				vector, err := storage.UnmarshalVector(val)
				if err != nil {
					return err
				}
				vectors = append(vectors, vector)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func readPassage(tx *badger.Txn, id core.ID) (*core.Passage, error) {
	item, err := tx.Get(makePassageKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var passage *core.Passage
	err = item.Value(func(val []byte) error {
		var err error
		passage, err = storage.UnmarshalPassage(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return passage, nil
}

func readRowCount(tx *badger.Txn) (int, error) {
	item, err := tx.Get([]byte(rowCountKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var count int
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return storage.ErrTruncatedData
		}
		count = int(binary.BigEndian.Uint64(val))
		return nil
	})
	return count, err
}

func writeRowCount(tx *badger.Txn, count int) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(count))
	return tx.Set([]byte(rowCountKey), buf)
}

func marshalTimestamp(ts time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(ts.UnixMicro()))
	return buf
}
