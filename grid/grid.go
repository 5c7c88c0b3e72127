// Package grid builds the SimulationGrid: the sorted, deduplicated set of
// dates the path generator and event engine walk together (spec §4.3).
//
// The date collection, sort, and bracket/index bookkeeping follow the same
// shape as molib's swap/curve date-generation helpers (generatePaymentDates
// + utils.SortDates): gather candidate dates from several sources, dedupe,
// sort once, then derive everything else from the single sorted slice.
package grid

import (
	"fmt"
	"time"

	"github.com/meenmo/wopricer/daycount"
	"github.com/meenmo/wopricer/product"
)

// EventTag marks why a date is present on the grid (spec §3 SimulationGrid).
type EventTag string

const (
	TagValuation   EventTag = "VALUATION"
	TagObservation EventTag = "OBSERVATION"
	TagExDividend  EventTag = "EX_DIVIDEND"
	TagMaturity    EventTag = "MATURITY"
)

// Step is one date on the grid with its tags and time coordinates.
type Step struct {
	Date      time.Time
	TimeYears float64
	Dt        float64
	Tags      map[EventTag]bool
}

// HasTag reports whether the step carries the given event tag.
func (s Step) HasTag(tag EventTag) bool {
	return s.Tags[tag]
}

// Grid is the derived SimulationGrid (spec §3). Empty is set when the
// product has already matured as of valuation (spec §7 EmptyGrid); callers
// must check it before indexing into Steps.
type Grid struct {
	Steps            []Step
	ObservationIndex map[int64]int            // observation date (Unix day) -> grid index
	AssetDivIndex    map[string]map[int64]int // (asset id, ex-div date) -> grid index
	MaturityIndex    int
	Empty            bool
}

func dayKey(d time.Time) int64 {
	return d.UTC().Truncate(24 * time.Hour).Unix()
}

// Build constructs the SimulationGrid for a validated term sheet. conv is
// the day-count convention used for time_years (spec §4.1 default ACT/365F
// applies upstream in product.DiscountCurveSpec.Build; callers typically
// pass the same convention here for consistency, but the grid's own time
// axis is independent of the discount curve's).
func Build(ts product.TermSheet, conv daycount.Convention) (*Grid, error) {
	if ts.IsEmptyGrid() {
		return &Grid{Empty: true, MaturityIndex: -1}, nil
	}

	valuation := ts.Meta.ValuationDate
	maturity := ts.Meta.MaturityDate

	tagsByDay := make(map[int64]map[EventTag]bool)
	addTag := func(d time.Time, tag EventTag) {
		k := dayKey(d)
		m, ok := tagsByDay[k]
		if !ok {
			m = make(map[EventTag]bool)
			tagsByDay[k] = m
		}
		m[tag] = true
	}

	addTag(valuation, TagValuation)
	addTag(maturity, TagMaturity)
	for _, obs := range ts.Schedules.ObservationDates {
		if obs.Before(valuation) {
			continue
		}
		addTag(obs, TagObservation)
	}

	divDatesByAsset := make(map[string][]time.Time)
	for _, u := range ts.Underlyings {
		for _, pt := range u.Dividend.Schedule {
			if !pt.Date.After(valuation) || !pt.Date.Before(maturity) {
				continue
			}
			if u.Dividend.Kind == product.DividendMixed && !pt.Date.Before(u.Dividend.Horizon) {
				continue
			}
			addTag(pt.Date, TagExDividend)
			divDatesByAsset[u.ID] = append(divDatesByAsset[u.ID], pt.Date)
		}
	}

	dates := make([]time.Time, 0, len(tagsByDay))
	for k := range tagsByDay {
		dates = append(dates, time.Unix(k, 0).UTC())
	}
	dates = daycount.UniqueSortedDates(dates)

	steps := make([]Step, len(dates))
	observationIndex := make(map[int64]int)
	maturityIndex := -1
	for i, d := range dates {
		yf, err := daycount.Fraction(valuation, d, conv)
		if err != nil {
			return nil, fmt.Errorf("grid: computing time_years for %s: %w", d.Format("2006-01-02"), err)
		}
		var dt float64
		if i > 0 {
			dt = yf - steps[i-1].TimeYears
		}
		tags := tagsByDay[dayKey(d)]
		steps[i] = Step{Date: d, TimeYears: yf, Dt: dt, Tags: tags}

		if tags[TagObservation] {
			observationIndex[dayKey(d)] = i
		}
		if tags[TagMaturity] {
			maturityIndex = i
		}
	}
	if maturityIndex < 0 {
		return nil, fmt.Errorf("grid: maturity date not found on constructed grid")
	}

	assetDivIndex := make(map[string]map[int64]int, len(divDatesByAsset))
	for assetID, ds := range divDatesByAsset {
		m := make(map[int64]int, len(ds))
		for _, d := range ds {
			idx := indexOf(steps, d)
			if idx < 0 {
				return nil, fmt.Errorf("grid: ex-dividend date %s for %s missing from grid", d.Format("2006-01-02"), assetID)
			}
			m[dayKey(d)] = idx
		}
		assetDivIndex[assetID] = m
	}

	return &Grid{
		Steps:            steps,
		ObservationIndex: observationIndex,
		AssetDivIndex:    assetDivIndex,
		MaturityIndex:    maturityIndex,
	}, nil
}

func indexOf(steps []Step, d time.Time) int {
	k := dayKey(d)
	for i, s := range steps {
		if dayKey(s.Date) == k {
			return i
		}
	}
	return -1
}

// ObservationStepIndex returns the grid index for an observation date,
// matching spec §3's "observation date -> grid index" auxiliary map.
func (g *Grid) ObservationStepIndex(d time.Time) (int, bool) {
	idx, ok := g.ObservationIndex[dayKey(d)]
	return idx, ok
}

// ExDividendStepIndex returns the grid index at which assetID has a
// scheduled ex-dividend date, matching spec §3's "(asset id, date) -> grid
// index" auxiliary map.
func (g *Grid) ExDividendStepIndex(assetID string, d time.Time) (int, bool) {
	m, ok := g.AssetDivIndex[assetID]
	if !ok {
		return 0, false
	}
	idx, ok := m[dayKey(d)]
	return idx, ok
}
