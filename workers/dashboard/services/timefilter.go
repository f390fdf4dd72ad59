package services

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"pipeline-workers/domain"
	"pipeline-workers/frame"
)

type TimeRange struct {
	Label  string
	Window time.Duration
}

var (
	LastHour    = TimeRange{Label: "Last Hour", Window: time.Hour}
	Last6Hours  = TimeRange{Label: "Last 6 Hours", Window: 6 * time.Hour}
	LastDay     = TimeRange{Label: "Last Day", Window: 24 * time.Hour}
	LastWeek    = TimeRange{Label: "Last Week", Window: 7 * 24 * time.Hour}
	AllTime     = TimeRange{Label: "All Time"}
	TimeRanges  = []TimeRange{LastHour, Last6Hours, LastDay, LastWeek, AllTime}
	ErrBadRange = errors.New("unknown time range")
)

func ParseTimeRange(s string) (TimeRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AllTime, nil
	}
	for _, r := range TimeRanges {
		if strings.EqualFold(r.Label, s) || strings.EqualFold(strings.ReplaceAll(r.Label, " ", "_"), s) {
			return r, nil
		}
	}
	return TimeRange{}, errors.Wrapf(ErrBadRange, "%q", s)
}

// Next cycles through TimeRanges.
func (r TimeRange) Next() TimeRange {
	for i, known := range TimeRanges {
		if known == r {
			return TimeRanges[(i+1)%len(TimeRanges)]
		}
	}
	return AllTime
}

// ApplyTimeFilter keeps the rows ingested within the range. The frame is
// returned unchanged, with applied false, for All Time, when there is no
// ingest timestamp, or when no row falls in the range.
func ApplyTimeFilter(f *frame.Frame, r TimeRange, now time.Time) (*frame.Frame, bool) {
	if r.Window <= 0 {
		return f, false
	}
	c := f.Column(domain.ColIngestedAt)
	if c == nil || c.Kind != frame.KindDatetime {
		return f, false
	}
	threshold := now.Add(-r.Window)
	out := f.Filter(func(row int) bool {
		cell := c.Cells[row]
		return cell.Valid && !cell.Time.Before(threshold)
	})
	if out.NumRows() == 0 {
		return f, false
	}
	return out, true
}
