// Package attendance implements face-verified check-in, history and stats.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// Deps are the stores and capabilities a Service works with.
type Deps struct {
	Enrollments database.EnrollmentReader
	Memberships database.MembershipReader
	Records     database.AttendanceWriter
	Extractor   facematch.Extractor
	Scorer      facematch.Scorer // nil means cosine similarity
}

// Options tune the check-in policy.
type Options struct {
	Threshold           float64
	Location            *time.Location
	DefaultHistoryLimit int
	MaxHistoryLimit     int
	MinCheckInInterval  time.Duration
	Now                 func() time.Time
}

// OptionsFromConfig maps the attendance config section to service options.
func OptionsFromConfig(cfg *config.AttendanceConfig) Options {
	return Options{
		Threshold:           cfg.SimilarityThreshold,
		Location:            cfg.Location(),
		DefaultHistoryLimit: cfg.DefaultHistoryLimit,
		MaxHistoryLimit:     cfg.MaxHistoryLimit,
		MinCheckInInterval:  cfg.MinCheckInInterval,
	}
}

// Service runs check-ins and reads attendance for one identity at a time.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	enrollments  database.EnrollmentReader
	records      database.AttendanceWriter
	verifier     *facematch.Verifier
	recorder     *Recorder
	loc          *time.Location
	defaultLimit int
	maxLimit     int
}

func NewService(deps Deps, opts Options) *Service {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	defaultLimit := opts.DefaultHistoryLimit
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &Service{
		enrollments:  deps.Enrollments,
		records:      deps.Records,
		verifier:     facematch.NewVerifier(deps.Extractor, deps.Scorer, opts.Threshold),
		recorder:     NewRecorder(deps.Memberships, deps.Records, loc, opts.MinCheckInInterval, opts.Now),
		loc:          loc,
		defaultLimit: defaultLimit,
		maxLimit:     opts.MaxHistoryLimit,
	}
}

// Threshold returns the acceptance threshold in use.
func (s *Service) Threshold() float64 {
	return s.verifier.Threshold()
}

// CheckInResult is an accepted check-in together with the identity it belongs to.
type CheckInResult struct {
	Record   database.AttendanceRecord
	Identity database.Identity
}

// loadEnrollment returns the identity's enrolled templates or ErrNoEnrollment.
func (s *Service) loadEnrollment(ctx context.Context, identityID int64) ([][]float32, error) {
	stored, err := s.enrollments.GetEmbeddings(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("loading enrolled embeddings: %w", err)
	}
	if len(stored) == 0 {
		return nil, ErrNoEnrollment
	}
	templates := make([][]float32, len(stored))
	for i, e := range stored {
		templates[i] = e.Embedding
	}
	return templates, nil
}

// CheckIn verifies the image against the identity's enrollment and records
// attendance when the best similarity reaches the threshold.
func (s *Service) CheckIn(ctx context.Context, identity *database.Identity, imageBase64 string) (*CheckInResult, error) {
	image, err := DecodeImage(imageBase64)
	if err != nil {
		return nil, err
	}

	templates, err := s.loadEnrollment(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	if err := s.recorder.CheckAllowed(ctx, identity.ID); err != nil {
		return nil, err
	}

	result, err := s.verifier.Verify(ctx, image, templates)
	if err != nil {
		if errors.Is(err, facematch.ErrNoTemplates) {
			return nil, ErrNoEnrollment
		}
		return nil, err
	}
	if !result.Verified {
		return nil, &VerificationFailedError{Similarity: result.Similarity, Threshold: s.verifier.Threshold()}
	}

	rec, err := s.recorder.Record(ctx, identity.ID, result.Similarity)
	if err != nil {
		return nil, err
	}
	return &CheckInResult{Record: *rec, Identity: *identity}, nil
}
