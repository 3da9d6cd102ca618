package database

import "errors"

// ErrDimensionMismatch is returned when an embedding does not have FaceEmbeddingDim values.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")
