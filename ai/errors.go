package ai

import "errors"

var (
	// ErrDimensionMismatch indicates an embedding vector whose length does
	// not match the configured dimension. This is a configuration/model
	// mismatch and is always fatal.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
