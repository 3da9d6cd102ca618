package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// FormatSimilarity renders a similarity with the stored precision (4 decimals).
func FormatSimilarity(s float64) string {
	return strconv.FormatFloat(s, 'f', database.SimilarityDecimals, 64)
}

// RoundSimilarity rounds a similarity to the stored precision.
func RoundSimilarity(s float64) float64 {
	v, _ := strconv.ParseFloat(FormatSimilarity(s), 64)
	return v
}

// Recorder turns an accepted verification into a persisted attendance record.
type Recorder struct {
	memberships database.MembershipReader
	records     database.AttendanceWriter
	loc         *time.Location
	minInterval time.Duration
	now         func() time.Time
}

// NewRecorder creates a recorder stamping check-ins in loc.
// minInterval > 0 enables the minimum-interval rule between two check-ins of one identity.
func NewRecorder(memberships database.MembershipReader, records database.AttendanceWriter,
	loc *time.Location, minInterval time.Duration, now func() time.Time,
) *Recorder {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		memberships: memberships,
		records:     records,
		loc:         loc,
		minInterval: minInterval,
		now:         now,
	}
}

// CheckAllowed enforces the minimum interval between check-ins.
// With the interval disabled every check-in is allowed.
func (r *Recorder) CheckAllowed(ctx context.Context, identityID int64) error {
	if r.minInterval <= 0 {
		return nil
	}
	latest, err := r.records.LatestByIdentity(ctx, identityID)
	if err != nil {
		return fmt.Errorf("loading latest check-in: %w", err)
	}
	if latest == nil {
		return nil
	}
	if elapsed := r.now().Sub(latest.CheckInTime); elapsed < r.minInterval {
		return fmt.Errorf("%w: last check-in at %s, next allowed in %s", ErrCheckInTooSoon,
			latest.CheckInTime.In(r.loc).Format(time.RFC3339), (r.minInterval - elapsed).Round(time.Second))
	}
	return nil
}

// Record persists a checked_in record for identity with the accepted similarity.
func (r *Recorder) Record(ctx context.Context, identityID int64, similarity float64) (*database.AttendanceRecord, error) {
	var org sql.Null[int64]
	membership, err := r.memberships.FirstMembership(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("loading organization membership: %w", err)
	}
	if membership != nil {
		org = sql.Null[int64]{V: membership.OrganizationID, Valid: true}
	}

	rec := &database.AttendanceRecord{
		IdentityID:     identityID,
		OrganizationID: org,
		CheckInTime:    r.now().In(r.loc),
		Similarity:     RoundSimilarity(similarity),
		Status:         database.StatusCheckedIn,
	}
	if err := r.records.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving attendance record: %w", err)
	}
	return rec, nil
}
