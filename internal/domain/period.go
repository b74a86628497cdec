package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/coder/quartz"
)

// PeriodType names a calendar-aligned aggregation window.
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
	PeriodYearly  PeriodType = "yearly"
	PeriodAllTime PeriodType = "all_time"
)

// PeriodTypes lists every supported period type in refresh order.
var PeriodTypes = []PeriodType{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodAllTime}

// AllTimeStart is the fixed start of every all_time window.
var AllTimeStart = time.Unix(0, 0).UTC()

// Valid reports whether p is one of the enumerated period types.
func (p PeriodType) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodAllTime:
		return true
	}
	return false
}

// ParsePeriodType converts user input into a PeriodType.
func ParsePeriodType(raw string) (PeriodType, error) {
	p := PeriodType(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriodType, raw)
	}
	return p, nil
}

// Period is a half-open [Start, End) window.
type Period struct {
	Type  PeriodType
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Windower computes period boundaries in a fixed location.
type Windower struct {
	clock quartz.Clock
	loc   *time.Location
}

// NewWindower builds a Windower. A nil location means UTC.
func NewWindower(clock quartz.Clock, loc *time.Location) Windower {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if loc == nil {
		loc = time.UTC
	}
	return Windower{clock: clock, loc: loc}
}

// Compute returns the window of periodType that contains ref. For all_time the end
// is the current clock reading, so repeated calls produce different windows.
func (w Windower) Compute(periodType PeriodType, ref time.Time) (Period, error) {
	ref = ref.In(w.loc)
	midnight := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, w.loc)

	var start, end time.Time
	switch periodType {
	case PeriodDaily:
		start = midnight
		end = start.AddDate(0, 0, 1)
	case PeriodWeekly:
		shift := 1 - int(ref.Weekday())
		if ref.Weekday() == time.Sunday {
			shift = -6
		}
		start = midnight.AddDate(0, 0, shift)
		end = start.AddDate(0, 0, 7)
	case PeriodMonthly:
		start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, w.loc)
		end = start.AddDate(0, 1, 0)
	case PeriodYearly:
		start = time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, w.loc)
		end = start.AddDate(1, 0, 0)
	case PeriodAllTime:
		start = AllTimeStart
		end = w.clock.Now("windower", "all_time").In(w.loc)
	default:
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriodType, string(periodType))
	}
	return Period{Type: periodType, Start: start.UTC(), End: end.UTC()}, nil
}

// Range validates an arbitrary [from, to) window.
func Range(from, to time.Time) (Period, error) {
	if !to.After(from) {
		return Period{}, fmt.Errorf("%w: end %s is not after start %s", ErrInvalidDateRange,
			to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	return Period{Start: from.UTC(), End: to.UTC()}, nil
}
