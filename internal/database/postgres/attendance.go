package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceRepository provides append-only attendance storage
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceColumns = `id, identity_id, organization_id, check_in_time, similarity, status, created_at`

// scanAttendance scans one attendance row. similarity is NUMERIC and comes back as text.
func scanAttendance(scan func(dest ...any) error) (database.AttendanceRecord, error) {
	var rec database.AttendanceRecord
	var similarity string
	if err := scan(&rec.ID, &rec.IdentityID, &rec.OrganizationID, &rec.CheckInTime, &similarity, &rec.Status, &rec.CreatedAt); err != nil {
		return rec, err
	}
	s, err := strconv.ParseFloat(similarity, 64)
	if err != nil {
		return rec, fmt.Errorf("parse similarity %q: %w", similarity, err)
	}
	rec.Similarity = s
	return rec, nil
}

// Append inserts a record and fills in its ID and created_at
func (r *AttendanceRepository) Append(ctx context.Context, rec *database.AttendanceRecord) error {
	if rec.Status == "" {
		rec.Status = database.StatusCheckedIn
	}
	similarity := strconv.FormatFloat(rec.Similarity, 'f', database.SimilarityDecimals, 64)

	err := r.pool.QueryRow(ctx, `
		INSERT INTO attendances (identity_id, organization_id, check_in_time, similarity, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, rec.IdentityID, rec.OrganizationID, rec.CheckInTime, similarity, rec.Status).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

func (r *AttendanceRepository) list(ctx context.Context, query string, args ...any) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var results []database.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return results, nil
}

// ListByIdentity returns a page of the identity's records, newest first
func (r *AttendanceRepository) ListByIdentity(ctx context.Context, identityID int64, limit, offset int) ([]database.AttendanceRecord, error) {
	return r.list(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendances
		WHERE identity_id = $1
		ORDER BY check_in_time DESC, id DESC
		LIMIT $2 OFFSET $3
	`, identityID, limit, offset)
}

// AllByIdentity returns every record of the identity, newest first
func (r *AttendanceRepository) AllByIdentity(ctx context.Context, identityID int64) ([]database.AttendanceRecord, error) {
	return r.list(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendances
		WHERE identity_id = $1
		ORDER BY check_in_time DESC, id DESC
	`, identityID)
}

// CountByIdentity returns the number of records of the identity
func (r *AttendanceRepository) CountByIdentity(ctx context.Context, identityID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM attendances WHERE identity_id = $1", identityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}
	return count, nil
}

// LatestByIdentity returns the identity's newest record, nil if there is none
func (r *AttendanceRepository) LatestByIdentity(ctx context.Context, identityID int64) (*database.AttendanceRecord, error) {
	rec, err := scanAttendance(r.pool.QueryRow(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendances
		WHERE identity_id = $1
		ORDER BY check_in_time DESC, id DESC
		LIMIT 1
	`, identityID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest attendance: %w", err)
	}
	return &rec, nil
}
