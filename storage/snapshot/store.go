// Package snapshot provides a file-backed passage store.
//
// The store keeps the metadata store, the vectors, and the document registry
// in memory and persists all three to disk after every appended source. Each
// persist writes a new snapshot version (meta-N.mus, vectors-N.mus,
// registry-N.mus) and then swaps a MANIFEST file by atomic rename, so a
// crash mid-persist never leaves a corrupted or half-written snapshot
// visible on restart: the prior durable version stays referenced until the
// swap completes.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/veldtlabs/corpusdb/core"
	"github.com/veldtlabs/corpusdb/storage"
)

const (
	manifestName    = "MANIFEST"
	manifestTmpName = "MANIFEST.tmp"
)

// Store implements storage.PassageStore on top of versioned snapshot files.
type Store struct {
	mu       sync.RWMutex
	dir      string
	version  uint64
	passages []*core.Passage // by row
	byID     map[core.ID]*core.Passage
	vectors  [][]float32 // by row
	registry map[string]time.Time
	closed   bool
	logger   *slog.Logger
}

var _ storage.PassageStore = (*Store)(nil)

// Open opens (or creates) a snapshot store in the given directory.
//
// Returns storage.PassageStore interface to enforce abstraction.
func Open(dir string) (storage.PassageStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	s := &Store{
		dir:      dir,
		byID:     make(map[core.ID]*core.Passage),
		registry: make(map[string]time.Time),
		logger:   slog.Default().With("component", "snapshot-store"),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the snapshot version referenced by the manifest.
// A missing manifest means a fresh store.
func (s *Store) load() error {
	data, err := os.ReadFile(filepath.Join(s.dir, manifestName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	version, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: manifest: %w", storage.ErrSerializationFailed, err)
	}

	metaData, err := os.ReadFile(s.dataPath("meta", version))
	if err != nil {
		return err
	}
	vectorData, err := os.ReadFile(s.dataPath("vectors", version))
	if err != nil {
		return err
	}
	registryData, err := os.ReadFile(s.dataPath("registry", version))
	if err != nil {
		return err
	}

	passages, err := decodePassages(metaData)
	if err != nil {
		return err
	}
	vectors, err := decodeVectors(vectorData)
	if err != nil {
		return err
	}
	registry, err := decodeRegistry(registryData)
	if err != nil {
		return err
	}

	if len(passages) != len(vectors) {
		return fmt.Errorf("%w: %d passages, %d vectors", storage.ErrMisalignedAppend, len(passages), len(vectors))
	}

	s.version = version
	s.passages = passages
	s.vectors = vectors
	s.registry = registry
	for _, passage := range passages {
		s.byID[passage.Id] = passage
	}

	s.logger.Debug("loaded snapshot", "version", version, "passages", len(passages), "sources", len(registry))
	return nil
}

func (s *Store) dataPath(kind string, version uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%d.mus", kind, version))
}

// persist writes the next snapshot version and swaps the manifest.
// Caller must hold the write lock.
func (s *Store) persist() error {
	next := s.version + 1

	if err := os.WriteFile(s.dataPath("meta", next), encodePassages(s.passages), 0644); err != nil {
		return err
	}
	if err := os.WriteFile(s.dataPath("vectors", next), encodeVectors(s.vectors), 0644); err != nil {
		return err
	}
	if err := os.WriteFile(s.dataPath("registry", next), encodeRegistry(s.registry), 0644); err != nil {
		return err
	}

	// The rename is the commit point: until it succeeds, the manifest still
	// references the previous complete version.
	tmpPath := filepath.Join(s.dir, manifestTmpName)
	if err := os.WriteFile(tmpPath, []byte(strconv.FormatUint(next, 10)), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, manifestName)); err != nil {
		return err
	}

	prev := s.version
	s.version = next

	// Old version files are garbage once the manifest moved on.
	if prev > 0 {
		for _, kind := range []string{"meta", "vectors", "registry"} {
			if err := os.Remove(s.dataPath(kind, prev)); err != nil {
				s.logger.Warn("failed to remove old snapshot file", "kind", kind, "version", prev, "err", err)
			}
		}
	}
	return nil
}

// AppendSource atomically persists one source document.
// On a persist failure the in-memory state is rolled back and the call is
// reported as failed even though the in-memory append had succeeded, so the
// caller never gets a false durability guarantee.
func (s *Store) AppendSource(ctx context.Context, source string, passages []*core.Passage, vectors [][]float32) error {
	if source == "" {
		return fmt.Errorf("%w: empty source", storage.ErrMisalignedAppend)
	}
	if len(passages) != len(vectors) {
		return fmt.Errorf("%w: %d passages, %d vectors", storage.ErrMisalignedAppend, len(passages), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}
	if _, ok := s.registry[source]; ok {
		return storage.ErrAlreadyIngested
	}

	base := len(s.passages)
	for i, passage := range passages {
		if err := core.ValidatePassage(passage); err != nil {
			return err
		}
		if passage.Row != base+i {
			return fmt.Errorf("%w: row %d at position %d, store size %d",
				storage.ErrMisalignedAppend, passage.Row, i, base)
		}
	}

	for i, passage := range passages {
		if passage.InsertedAt.IsZero() {
			passage.InsertedAt = time.Now().UTC()
		}
		vector := make([]float32, len(vectors[i]))
		copy(vector, vectors[i])

		s.passages = append(s.passages, passage)
		s.vectors = append(s.vectors, vector)
		s.byID[passage.Id] = passage
	}
	s.registry[source] = time.Now().UTC()

	if err := s.persist(); err != nil {
		// Roll back so memory matches the last durable snapshot.
		for _, passage := range passages {
			delete(s.byID, passage.Id)
		}
		s.passages = s.passages[:base]
		s.vectors = s.vectors[:base]
		delete(s.registry, source)
		return fmt.Errorf("%w: %w", storage.ErrPersistenceFailed, err)
	}
	return nil
}

// GetByRow retrieves the passage at the given row position.
func (s *Store) GetByRow(ctx context.Context, row int) (*core.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row < 0 || row >= len(s.passages) {
		return nil, fmt.Errorf("%w: row %d", storage.ErrNotFound, row)
	}
	return s.passages[row], nil
}

// GetByID retrieves a passage by its derived ID.
func (s *Store) GetByID(ctx context.Context, id core.ID) (*core.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	passage, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", storage.ErrNotFound, id)
	}
	return passage, nil
}

// Size returns the number of stored passages.
func (s *Store) Size(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passages), nil
}

// Registered reports whether a source document has already been ingested.
func (s *Store) Registered(ctx context.Context, source string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[source]
	return ok, nil
}

// Sources returns all registered source identifiers.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sources := make([]string, 0, len(s.registry))
	for source := range s.registry {
		sources = append(sources, source)
	}
	return sources, nil
}

// Vectors returns every stored vector in row order.
func (s *Store) Vectors(ctx context.Context) ([][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vectors := make([][]float32, len(s.vectors))
	for i, v := range s.vectors {
		vector := make([]float32, len(v))
		copy(vector, v)
		vectors[i] = vector
	}
	return vectors, nil
}

// Close marks the store closed. Already-persisted data stays on disk.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
