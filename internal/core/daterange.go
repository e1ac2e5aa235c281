package core

import "time"

const (
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
	PeriodCustom  Period = "custom"
)

type (
	// Period is a named, relative date-range tag resolved against "now"
	// at query time.
	Period string

	// DateRange is a resolved half-open-in-spirit but inclusive-in-query
	// window. It is recomputed per request, never persisted.
	DateRange struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	}

	// Filters carries the optional aggregation inputs. Either Period or
	// an explicit StartDate/EndDate pair must resolve to a range;
	// ResolveRange guarantees that by defaulting to the current month.
	Filters struct {
		Period     Period
		StartDate  *time.Time
		EndDate    *time.Time
		AccountID  string
		CategoryID string
	}
)

// ResolveRange computes the date range for a set of filters.
//
// Explicit StartDate+EndDate take precedence over Period unconditionally,
// even when Period is also set. This mirrors the long-standing API
// behavior and is kept for compatibility.
//
// Period resolution (end is always now):
//
//	week    -> rolling 7x24h window, not a calendar week
//	month   -> first day of the current calendar month
//	quarter -> first day of the current calendar quarter
//	year    -> January 1 of the current year
//	custom  -> without explicit bounds, behaves exactly like month
//	other   -> month
//
// A month query run mid-month returns a partial month on purpose; there
// is no end-of-period ceiling.
func ResolveRange(now time.Time, f Filters) DateRange {
	if f.StartDate != nil && f.EndDate != nil {
		return DateRange{Start: *f.StartDate, End: *f.EndDate}
	}

	var start time.Time
	switch f.Period {
	case PeriodWeek:
		start = now.Add(-7 * 24 * time.Hour)
	case PeriodQuarter:
		quarter := (int(now.Month()) - 1) / 3
		start = time.Date(now.Year(), time.Month(quarter*3+1), 1, 0, 0, 0, 0, now.Location())
	case PeriodYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		// month, custom without bounds, and anything unrecognized
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
	return DateRange{Start: start, End: now}
}

// MonthBounds returns the closed interval covering the calendar month
// `offset` months before the month containing now (offset 0 = current
// month). The end bound sits on the last instant of the month so that
// any time-of-day on the final day is included.
func MonthBounds(now time.Time, offset int) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month()-time.Month(offset), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// StartOfMonth returns the first instant of the calendar month containing
// now. Used for month-to-date computations, which have no upper bound.
func StartOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// ParsePeriod normalizes a period string. Unknown values map to
// PeriodMonth, matching the resolver's default.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear, PeriodCustom:
		return Period(s)
	default:
		return PeriodMonth
	}
}
