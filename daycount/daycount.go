// Package daycount implements the day-count conventions and date-bracket
// helpers used by the rest of the engine to turn calendar dates into year
// fractions.
package daycount

import (
	"fmt"
	"sort"
	"time"
)

// Convention identifies a day-count convention.
type Convention string

const (
	Act360    Convention = "ACT/360"
	Act365F   Convention = "ACT/365F"
	Thirty360 Convention = "30/360"
)

// Fraction computes the year fraction between start and end under conv.
//
// 30/360 applies the ISDA day-adjustment: a day-of-month of 31 rolls back to
// 30, and the end date rolls back to 30 when it falls on the 31st and the
// start date's (possibly adjusted) day is already ≥ 30.
//
// Fraction fails (returns an error) when end is before start; callers that
// can statically prove end ≥ start (e.g. grid construction) may ignore the
// error.
func Fraction(start, end time.Time, conv Convention) (float64, error) {
	if end.Before(start) {
		return 0, fmt.Errorf("daycount: end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	switch conv {
	case Act360:
		return days(start, end) / 360.0, nil
	case Thirty360:
		return thirty360(start, end), nil
	case Act365F:
		return days(start, end) / 365.0, nil
	default:
		return days(start, end) / 365.0, nil
	}
}

// MustFraction panics if end is before start. Use only where the caller has
// already validated ordering (e.g. rates.Curve's segment integration, which
// returns early unless the interval end is after its start).
func MustFraction(start, end time.Time, conv Convention) float64 {
	yf, err := Fraction(start, end, conv)
	if err != nil {
		panic(err)
	}
	return yf
}

func days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// thirty360 implements the 30/360 ISDA day adjustment described in spec §4.1:
// day = 31 -> 30 for both legs; if the end day is 31 and the (possibly
// adjusted) start day is >= 30, the end day also rolls back to 30.
func thirty360(start, end time.Time) float64 {
	y1, m1, d1 := start.Date()
	y2, m2, d2 := end.Date()

	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 && d1 >= 30 {
		d2 = 30
	}

	days360 := float64(360*(y2-y1) + 30*(int(m2)-int(m1)) + (d2 - d1))
	return days360 / 360.0
}

// SortDates sorts dates ascending in place.
func SortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
}

// UniqueSortedDates sorts and de-duplicates dates (same calendar day).
func UniqueSortedDates(dates []time.Time) []time.Time {
	SortDates(dates)
	out := make([]time.Time, 0, len(dates))
	for i, d := range dates {
		if i == 0 || !SameDay(out[len(out)-1], d) {
			out = append(out, d)
		}
	}
	return out
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ya, ma, da := a.Date()
	yb, mb, db := b.Date()
	return ya == yb && ma == mb && da == db
}

// Bracket finds two adjacent dates in a sorted slice that bracket target,
// using binary search. Returns (d1, d2, true) with d1 <= target <= d2, or
// (zero, zero, false) if dates has fewer than 2 elements or target falls
// outside the covered range.
func Bracket(dates []time.Time, target time.Time) (d1, d2 time.Time, found bool) {
	if len(dates) < 2 {
		return time.Time{}, time.Time{}, false
	}
	idx := sort.Search(len(dates), func(i int) bool {
		return !dates[i].Before(target)
	})
	if idx == 0 {
		if dates[0].Equal(target) {
			return dates[0], dates[1], true
		}
		return time.Time{}, time.Time{}, false
	}
	if idx >= len(dates) {
		return time.Time{}, time.Time{}, false
	}
	return dates[idx-1], dates[idx], true
}

// BracketOrBoundary is like Bracket but clamps to the nearest boundary pair
// when target falls outside the covered range, which is what flat
// extrapolation at the ends of a curve needs.
func BracketOrBoundary(dates []time.Time, target time.Time) (d1, d2 time.Time) {
	if len(dates) < 2 {
		panic("daycount: BracketOrBoundary needs at least 2 dates")
	}
	idx := sort.Search(len(dates), func(i int) bool {
		return !dates[i].Before(target)
	})
	if idx <= 0 {
		return dates[0], dates[1]
	}
	if idx >= len(dates) {
		return dates[len(dates)-2], dates[len(dates)-1]
	}
	return dates[idx-1], dates[idx]
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, decimals uint32) float64 {
	pow := 1.0
	for i := uint32(0); i < decimals; i++ {
		pow *= 10
	}
	return float64(int64(v*pow+sign(v)*0.5)) / pow
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
