package attendance

import (
	"maps"
	"slices"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Stats periods. Anything else buckets by day.
const (
	PeriodMinute = "minute"
	PeriodHour   = "hour"
	PeriodDay    = "day"
	PeriodMonth  = "month"
	PeriodYear   = "year"
)

// Bucket is one aggregated stats row.
type Bucket struct {
	Key          string
	Label        string
	Count        int
	FirstCheckIn float64 // earliest check-in of the bucket as fractional hour, 9:30 -> 9.5
}

// StatsReport is the result of Service.Stats.
type StatsReport struct {
	Period string
	Items  []Bucket
}

// bucketFor derives the sortable key and display label of t for the period.
func bucketFor(t time.Time, period string) (key, label string) {
	switch period {
	case PeriodMinute:
		return t.Format("2006-01-02 15:04"), t.Format("15:04")
	case PeriodHour:
		return t.Format("2006-01-02 15") + ":00", t.Format("15") + ":00"
	case PeriodMonth:
		return t.Format("2006-01"), t.Format("2006년 01월")
	case PeriodYear:
		return t.Format("2006"), t.Format("2006년")
	default:
		return t.Format("2006-01-02"), t.Format("01/02")
	}
}

func fractionalHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

// Aggregate groups records into period buckets in loc, sorted by key.
// No records yields an empty, non-nil slice.
func Aggregate(records []database.AttendanceRecord, period string, loc *time.Location) []Bucket {
	if loc == nil {
		loc = time.UTC
	}

	acc := make(map[string]*Bucket)
	for _, r := range records {
		t := r.CheckInTime.In(loc)
		key, label := bucketFor(t, period)
		hour := fractionalHour(t)

		b, ok := acc[key]
		if !ok {
			acc[key] = &Bucket{Key: key, Label: label, Count: 1, FirstCheckIn: hour}
			continue
		}
		b.Count++
		b.FirstCheckIn = min(b.FirstCheckIn, hour)
	}

	out := make([]Bucket, 0, len(acc))
	for _, key := range slices.Sorted(maps.Keys(acc)) {
		out = append(out, *acc[key])
	}
	return out
}
