package payroll

import (
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// PERIOD - The reconciliation partition key
// =============================================================================

// Selector picks a payroll period relative to "now".
type Selector string

const (
	SelectCurrent  Selector = "current"
	SelectLast     Selector = "last"
	SelectPrevious Selector = "previous" // alias of SelectLast
	SelectAll      Selector = "all"
)

// AllTimeLabel is the label of the unbounded period.
const AllTimeLabel = "All Time"

// AdjustmentSuffix marks a secondary salary record for a period.
const AdjustmentSuffix = " (Adjustment)"

type periodKind int

const (
	periodMonth periodKind = iota
	periodAll
	periodNone
)

// Period is a resolved selector: a display label plus a date predicate.
//
// Examples:
//   - current in Oct 2026: "October 2026", matches dates in October 2026
//   - last in Jan 2027:    "December 2026"
//   - all:                 "All Time", matches every date
type Period struct {
	Label string
	Year  int
	Month time.Month

	kind periodKind
	loc  *time.Location
}

// Resolve maps a selector to its period at now. Unrecognized selectors
// resolve to an "All Time" period that matches no dates.
func Resolve(sel Selector, now time.Time) Period {
	switch sel {
	case SelectCurrent:
		return monthPeriod(now.Year(), now.Month(), now.Location())
	case SelectLast, SelectPrevious:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		prev := first.AddDate(0, -1, 0)
		return monthPeriod(prev.Year(), prev.Month(), now.Location())
	case SelectAll:
		return Period{Label: AllTimeLabel, kind: periodAll, loc: now.Location()}
	default:
		return Period{Label: AllTimeLabel, kind: periodNone, loc: now.Location()}
	}
}

func monthPeriod(year int, month time.Month, loc *time.Location) Period {
	return Period{
		Label: month.String() + " " + strconv.Itoa(year),
		Year:  year,
		Month: month,
		kind:  periodMonth,
		loc:   loc,
	}
}

// Contains reports whether a record date string falls in the period.
// Unparseable dates are never in a month period.
func (p Period) Contains(date string) bool {
	switch p.kind {
	case periodAll:
		return true
	case periodNone:
		return false
	}
	t, ok := ParseDate(date, p.loc)
	if !ok {
		return false
	}
	return t.Year() == p.Year && t.Month() == p.Month
}

// ContainsTime is Contains for an already parsed instant.
func (p Period) ContainsTime(t time.Time) bool {
	switch p.kind {
	case periodAll:
		return true
	case periodNone:
		return false
	}
	if p.loc != nil {
		t = t.In(p.loc)
	}
	return t.Year() == p.Year && t.Month() == p.Month
}

// Covers reports whether a salary record's period label belongs to this
// period, including its adjustment records.
func (p Period) Covers(label string) bool {
	return strings.HasPrefix(label, p.Label)
}

// AdjustmentLabel is the label of a secondary record for the period.
func (p Period) AdjustmentLabel() string {
	return p.Label + AdjustmentSuffix
}

// IsAll reports whether the period is unbounded.
func (p Period) IsAll() bool { return p.kind == periodAll }

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate accepts the date forms records are stored with. Date-only and
// zone-less values are read in loc; zoned values are converted to loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, strings.TrimSpace(s), loc)
		if err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}
