package facematch

import (
	"context"
	"fmt"
	"math"
)

// Verifier applies the best-match policy: a probe is accepted when its
// similarity to at least one enrolled template reaches the threshold.
type Verifier struct {
	extractor Extractor
	scorer    Scorer
	threshold float64
}

// NewVerifier creates a verifier. A nil scorer means cosine similarity,
// a non-positive threshold means DefaultThreshold.
func NewVerifier(extractor Extractor, scorer Scorer, threshold float64) *Verifier {
	if scorer == nil {
		scorer = CosineScorer
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Verifier{extractor: extractor, scorer: scorer, threshold: threshold}
}

// Threshold returns the acceptance threshold.
func (v *Verifier) Threshold() float64 {
	return v.threshold
}

// Verify extracts a probe embedding from image and matches it against templates.
func (v *Verifier) Verify(ctx context.Context, image []byte, templates [][]float32) (Result, error) {
	if len(templates) == 0 {
		return Result{}, ErrNoTemplates
	}

	probe, found, err := v.extractor.ExtractEmbedding(ctx, image)
	if err != nil {
		return Result{}, fmt.Errorf("extracting face embedding: %w", err)
	}
	if !found || len(probe) == 0 {
		return Result{}, ErrFaceNotDetected
	}

	return v.Match(probe, templates)
}

// Match scores probe against every template and accepts iff the maximum
// similarity is >= the threshold.
func (v *Verifier) Match(probe []float32, templates [][]float32) (Result, error) {
	if len(templates) == 0 {
		return Result{}, ErrNoTemplates
	}

	best := math.Inf(-1)
	bestIdx := -1
	for i, tmpl := range templates {
		if len(tmpl) != len(probe) {
			return Result{}, fmt.Errorf("%w: probe has %d values, template %d has %d",
				ErrDimensionMismatch, len(probe), i, len(tmpl))
		}
		s := v.scorer.Similarity(probe, tmpl)
		if bestIdx < 0 || s > best {
			best = s
			bestIdx = i
		}
	}

	return Result{
		Verified:   best >= v.threshold,
		Similarity: best,
		MatchIndex: bestIdx,
	}, nil
}
