// Package facematch decides whether a probe face matches an identity's enrolled templates.
package facematch

import (
	"context"
	"errors"
)

// DefaultThreshold is the minimum similarity a probe needs against its best enrolled template.
const DefaultThreshold = 0.70

var (
	// ErrFaceNotDetected is returned when the extractor finds no face in the image.
	ErrFaceNotDetected = errors.New("no face detected in image")
	// ErrNoTemplates is returned when there is nothing to compare the probe against.
	ErrNoTemplates = errors.New("no enrolled templates")
	// ErrDimensionMismatch is returned when probe and template lengths differ.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Extractor turns image bytes into a face embedding.
// found is false when the image contains no detectable face.
type Extractor interface {
	ExtractEmbedding(ctx context.Context, image []byte) (embedding []float32, found bool, err error)
}

// Scorer compares two embeddings. Higher is more similar.
type Scorer interface {
	Similarity(a, b []float32) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(a, b []float32) float64

// Similarity calls f(a, b).
func (f ScorerFunc) Similarity(a, b []float32) float64 {
	return f(a, b)
}

// Result is the outcome of a verification. Similarity is reported on rejection too.
type Result struct {
	Verified   bool
	Similarity float64 // best similarity over all templates
	MatchIndex int     // index of the best template
}
