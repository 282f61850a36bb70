package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veldtlabs/corpusdb/core"
	"github.com/veldtlabs/corpusdb/storage"
)

func makePassages(source string, startRow int, texts ...string) ([]*core.Passage, [][]float32) {
	passages := make([]*core.Passage, len(texts))
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		passages[i] = &core.Passage{
			Id:     core.PassageID(source, startRow+i, text),
			Text:   text,
			Source: source,
			Row:    startRow + i,
		}
		vectors[i] = []float32{float32(startRow + i), 0.5}
	}
	return passages, vectors
}

func TestOpen_EmptyDirectory(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	size, err := store.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestAppendSource_AndLookups(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	passages, vectors := makePassages("doc1", 0, "Alpha text.", "Beta text.")
	require.NoError(t, store.AppendSource(ctx, "doc1", passages, vectors))

	size, err := store.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	byRow, err := store.GetByRow(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "Alpha text.", byRow.Text)

	byID, err := store.GetByID(ctx, core.PassageID("doc1", 1, "Beta text."))
	require.NoError(t, err)
	assert.Equal(t, 1, byID.Row)

	_, err = store.GetByRow(ctx, 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAppendSource_AlreadyIngested(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	passages, vectors := makePassages("doc1", 0, "Alpha text.")
	require.NoError(t, store.AppendSource(ctx, "doc1", passages, vectors))

	err = store.AppendSource(ctx, "doc1", passages, vectors)
	assert.ErrorIs(t, err, storage.ErrAlreadyIngested)
}

func TestAppendSource_Misaligned(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	passages, vectors := makePassages("doc1", 0, "Alpha text.", "Beta text.")
	err = store.AppendSource(ctx, "doc1", passages[:1], vectors)
	assert.ErrorIs(t, err, storage.ErrMisalignedAppend)

	passages, vectors = makePassages("doc1", 3, "Alpha text.")
	err = store.AppendSource(ctx, "doc1", passages, vectors)
	assert.ErrorIs(t, err, storage.ErrMisalignedAppend)
}

func TestAppendSource_AfterClose(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	passages, vectors := makePassages("doc1", 0, "Alpha text.")
	err = store.AppendSource(context.Background(), "doc1", passages, vectors)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestSnapshot_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir)
	require.NoError(t, err)

	p1, v1 := makePassages("doc1", 0, "Alpha text.", "Beta text.")
	require.NoError(t, store.AppendSource(ctx, "doc1", p1, v1))
	p2, v2 := makePassages("doc2", 2, "Gamma text.")
	require.NoError(t, store.AppendSource(ctx, "doc2", p2, v2))
	require.NoError(t, store.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	size, err := reopened.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	passage, err := reopened.GetByRow(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Gamma text.", passage.Text)
	assert.Equal(t, "doc2", passage.Source)

	vectors, err := reopened.Vectors(ctx)
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for row, vector := range vectors {
		assert.Equal(t, float32(row), vector[0])
	}

	sources, err := reopened.Sources(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"doc1", "doc2"}, sources)
}

func TestPersistFailure_RollsBack(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	p1, v1 := makePassages("doc1", 0, "Alpha text.")
	require.NoError(t, store.AppendSource(ctx, "doc1", p1, v1))

	// Make the directory unwritable so the next persist fails.
	require.NoError(t, os.Chmod(dir, 0555))
	defer os.Chmod(dir, 0755)

	p2, v2 := makePassages("doc2", 1, "Beta text.")
	err = store.AppendSource(ctx, "doc2", p2, v2)
	require.ErrorIs(t, err, storage.ErrPersistenceFailed)

	// In-memory state matches the last durable snapshot.
	size, err := store.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	registered, err := store.Registered(ctx, "doc2")
	require.NoError(t, err)
	assert.False(t, registered)

	_, err = store.GetByID(ctx, core.PassageID("doc2", 1, "Beta text."))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPersistFailure_RollbackKeepsDuplicateText(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	p1, v1 := makePassages("docA", 0, "Shared paragraph.")
	require.NoError(t, store.AppendSource(ctx, "docA", p1, v1))

	require.NoError(t, os.Chmod(dir, 0555))
	defer os.Chmod(dir, 0755)

	// A second source carries the same text. Its IDs are distinct, so
	// rolling back the failed append must not evict docA's passage.
	p2, v2 := makePassages("docB", 1, "Shared paragraph.")
	err = store.AppendSource(ctx, "docB", p2, v2)
	require.ErrorIs(t, err, storage.ErrPersistenceFailed)

	kept, err := store.GetByID(ctx, p1[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "docA", kept.Source)

	_, err = store.GetByID(ctx, p2[0].Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestManifest_ReferencesSingleVersion(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	p1, v1 := makePassages("doc1", 0, "Alpha text.")
	require.NoError(t, store.AppendSource(ctx, "doc1", p1, v1))
	p2, v2 := makePassages("doc2", 1, "Beta text.")
	require.NoError(t, store.AppendSource(ctx, "doc2", p2, v2))

	// Only the latest version's files remain after the swap.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.ElementsMatch(t, []string{"MANIFEST", "meta-2.mus", "vectors-2.mus", "registry-2.mus"}, names)

	data, err := os.ReadFile(filepath.Join(dir, "MANIFEST"))
	require.NoError(t, err)
	assert.Equal(t, "2", string(data))
}
