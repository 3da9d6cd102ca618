package attendance

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// HistoryPage is one page of an identity's check-ins, newest first.
// Total counts all records of the identity, not just this page.
type HistoryPage struct {
	Total int
	Items []database.AttendanceRecord
}

// clampPage applies the paging policy: limit <= 0 uses the default limit,
// limit above the maximum is capped and a negative offset becomes 0.
func (s *Service) clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if s.maxLimit > 0 && limit > s.maxLimit {
		limit = s.maxLimit
	}
	return limit, max(offset, 0)
}

// History returns a page of the identity's check-ins.
func (s *Service) History(ctx context.Context, identityID int64, limit, offset int) (*HistoryPage, error) {
	limit, offset = s.clampPage(limit, offset)

	items, err := s.records.ListByIdentity(ctx, identityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing attendance: %w", err)
	}
	total, err := s.records.CountByIdentity(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("counting attendance: %w", err)
	}

	page := &HistoryPage{Total: total, Items: make([]database.AttendanceRecord, 0, len(items))}
	for _, r := range items {
		r.CheckInTime = r.CheckInTime.In(s.loc)
		page.Items = append(page.Items, r)
	}
	return page, nil
}

// Stats aggregates all check-ins of the identity by period.
func (s *Service) Stats(ctx context.Context, identityID int64, period string) (*StatsReport, error) {
	records, err := s.records.AllByIdentity(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("loading attendance: %w", err)
	}
	return &StatsReport{Period: period, Items: Aggregate(records, period, s.loc)}, nil
}
