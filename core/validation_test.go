package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassage(t *testing.T) {
	tests := []struct {
		name    string
		passage *Passage
		wantErr error
	}{
		{
			name: "valid passage",
			passage: &Passage{
				Id:     PassageID("doc1", 0, "some text"),
				Text:   "some text",
				Source: "doc1",
				Row:    0,
			},
			wantErr: nil,
		},
		{
			name:    "nil passage",
			passage: nil,
			wantErr: ErrInvalidPassage,
		},
		{
			name: "empty text",
			passage: &Passage{
				Source: "doc1",
			},
			wantErr: ErrEmptyText,
		},
		{
			name: "empty source",
			passage: &Passage{
				Text: "some text",
			},
			wantErr: ErrEmptySource,
		},
		{
			name: "negative row",
			passage: &Passage{
				Text:   "some text",
				Source: "doc1",
				Row:    -1,
			},
			wantErr: ErrInvalidRow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassage(tt.passage)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
