package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veldtlabs/corpusdb/core"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"derived ID", core.PassageID("doc1", 0, "test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Empty(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalPassage(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	passage := &core.Passage{
		Id:         core.PassageID("doc1", 3, "Alpha text."),
		Text:       "Alpha text.",
		Source:     "doc1",
		Row:        3,
		InsertedAt: now,
	}

	data := MarshalPassage(passage)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalPassage(data)
	require.NoError(t, err)
	assert.Equal(t, passage.Id, decoded.Id)
	assert.Equal(t, passage.Text, decoded.Text)
	assert.Equal(t, passage.Source, decoded.Source)
	assert.Equal(t, passage.Row, decoded.Row)
	assert.True(t, passage.InsertedAt.Equal(decoded.InsertedAt))
}

func TestUnmarshalPassage_Truncated(t *testing.T) {
	passage := &core.Passage{
		Id:     1,
		Text:   "some passage text",
		Source: "doc1",
	}
	data := MarshalPassage(passage)

	_, err := UnmarshalPassage(data[:3])
	assert.Error(t, err)
}

func TestMarshalUnmarshalVector(t *testing.T) {
	vector := []float32{0.1, -0.9, 0.5, 0}

	data := MarshalVector(vector)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalVector(data)
	require.NoError(t, err)
	assert.Equal(t, vector, decoded)
}
