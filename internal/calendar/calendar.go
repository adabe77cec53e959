// Package calendar implements working-day arithmetic over a holiday set.
// All functions are pure: they never mutate their arguments and return new
// time.Time values normalized to UTC midnight.
package calendar

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the ISO date format used for every date string the engine
// accepts or emits.
const DateLayout = "2006-01-02"

// maxNeighborSteps bounds the search for an adjacent working day. A real
// calendar never has a run of non-working days this long; malformed holiday
// data must not make the search spin.
const maxNeighborSteps = 60

// Holidays is a set of non-working calendar dates keyed by ISO date.
type Holidays map[string]struct{}

// NewHolidays parses the given ISO dates into a holiday set.
func NewHolidays(dates ...string) (Holidays, error) {
	h := make(Holidays, len(dates))
	for _, s := range dates {
		d, err := ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", s, err)
		}
		h[FormatDate(d)] = struct{}{}
	}
	return h, nil
}

// Contains reports whether d is a holiday. A nil set contains nothing.
func (h Holidays) Contains(d time.Time) bool {
	if h == nil {
		return false
	}
	_, ok := h[FormatDate(d)]
	return ok
}

// Dates returns the holiday dates sorted ascending.
func (h Holidays) Dates() []string {
	out := make([]string, 0, len(h))
	for d := range h {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// ParseDate parses an ISO date (YYYY-MM-DD) into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected %s", s, DateLayout)
	}
	return d, nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FormatDate renders d as an ISO date.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// Normalize truncates d to UTC midnight of its calendar day.
func Normalize(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether d falls on a Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsNonWorkingDay reports whether d is a weekend day or a holiday.
func IsNonWorkingDay(d time.Time, h Holidays) bool {
	return IsWeekend(d) || h.Contains(d)
}

// AddWorkingDays steps forward one calendar day at a time until n working
// days have been consumed. n == 0 returns d unchanged; negative n delegates
// to SubtractWorkingDays.
func AddWorkingDays(d time.Time, n int, h Holidays) time.Time {
	if n < 0 {
		return SubtractWorkingDays(d, -n, h)
	}
	return stepWorkingDays(Normalize(d), n, 1, h)
}

// SubtractWorkingDays steps backward one calendar day at a time until n
// working days have been consumed. n == 0 returns d unchanged.
func SubtractWorkingDays(d time.Time, n int, h Holidays) time.Time {
	if n < 0 {
		return AddWorkingDays(d, -n, h)
	}
	return stepWorkingDays(Normalize(d), n, -1, h)
}

func stepWorkingDays(d time.Time, n, dir int, h Holidays) time.Time {
	cur := d
	limit := n*7 + maxNeighborSteps*(n+1)
	for counted, steps := 0, 0; counted < n && steps < limit; steps++ {
		cur = cur.AddDate(0, 0, dir)
		if !IsNonWorkingDay(cur, h) {
			counted++
		}
	}
	return cur
}

// PreviousWorkingDay returns the nearest working day strictly before d.
// If none is found within the step cap, the last date examined is returned.
func PreviousWorkingDay(d time.Time, h Holidays) time.Time {
	return neighborWorkingDay(Normalize(d), -1, h)
}

// NextWorkingDay returns the nearest working day strictly after d.
// If none is found within the step cap, the last date examined is returned.
func NextWorkingDay(d time.Time, h Holidays) time.Time {
	return neighborWorkingDay(Normalize(d), 1, h)
}

func neighborWorkingDay(d time.Time, dir int, h Holidays) time.Time {
	cur := d
	for i := 0; i < maxNeighborSteps; i++ {
		cur = cur.AddDate(0, 0, dir)
		if !IsNonWorkingDay(cur, h) {
			return cur
		}
	}
	return cur
}

// OnOrBeforeWorkingDay returns d when it is a working day, otherwise the
// previous working day.
func OnOrBeforeWorkingDay(d time.Time, h Holidays) time.Time {
	d = Normalize(d)
	if !IsNonWorkingDay(d, h) {
		return d
	}
	return PreviousWorkingDay(d, h)
}

// OnOrAfterWorkingDay returns d when it is a working day, otherwise the
// next working day.
func OnOrAfterWorkingDay(d time.Time, h Holidays) time.Time {
	d = Normalize(d)
	if !IsNonWorkingDay(d, h) {
		return d
	}
	return NextWorkingDay(d, h)
}

// WorkingDaysBetween counts working days in the inclusive range [from, to].
// The arguments may be given in either order. Used for diagnostics only.
func WorkingDaysBetween(from, to time.Time, h Holidays) int {
	a, b := Normalize(from), Normalize(to)
	if b.Before(a) {
		a, b = b, a
	}
	count := 0
	for cur := a; !cur.After(b); cur = cur.AddDate(0, 0, 1) {
		if !IsNonWorkingDay(cur, h) {
			count++
		}
	}
	return count
}
