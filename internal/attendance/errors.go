package attendance

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// Check-in rejections. None of them leaves a record behind.
var (
	ErrInvalidImageFormat = errors.New("invalid base64 image format")
	ErrNoEnrollment       = errors.New("no enrolled face data, enroll your face first")
	ErrFaceNotDetected    = facematch.ErrFaceNotDetected
	ErrVerificationFailed = errors.New("face verification failed")
	ErrCheckInTooSoon     = errors.New("already checked in recently")
)

// VerificationFailedError carries the similarity the probe actually reached.
// errors.Is(err, ErrVerificationFailed) holds for it.
type VerificationFailedError struct {
	Similarity float64
	Threshold  float64
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("%s (similarity: %.2f)", ErrVerificationFailed.Error(), e.Similarity)
}

// Is reports whether target is ErrVerificationFailed.
func (e *VerificationFailedError) Is(target error) bool {
	return target == ErrVerificationFailed
}
