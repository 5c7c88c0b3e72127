// Package rates implements the flat and piecewise discount curves described
// in spec §4.1, adapted from molib's swap/curve bootstrap down to the much
// smaller shape this engine actually needs: no par-quote solving, just a
// user-supplied flat rate or step curve.
package rates

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/wopricer/daycount"
)

// Tenor is one node of a piecewise rate curve: Years from the curve's
// reference date, and the step rate (continuously compounded, decimal)
// effective up to that node.
type Tenor struct {
	Years float64
	Rate  float64
}

// Curve is a continuously-compounded discount curve, either flat or
// piecewise-constant in the short rate.
type Curve struct {
	valuation   time.Time
	conv        daycount.Convention
	flat        bool
	flatRate    float64
	breakpoints []time.Time
	stepRates   []float64
}

// NewFlat builds a flat curve: df(d) = exp(-rate * yearFraction(valuation, d)).
func NewFlat(valuation time.Time, rate float64, conv daycount.Convention) *Curve {
	return &Curve{valuation: valuation, conv: conv, flat: true, flatRate: rate}
}

// NewPiecewise builds a piecewise-constant-rate curve from refDate and a
// list of (years, rate) tenors. Tenors need not be sorted; each node's
// breakpoint date is refDate plus years*365.25 days, independent of conv
// (tenor nodes are not themselves schedule dates). conv is used for the
// year fractions in DF and ZeroRate.
//
// The rate applying at a date is the right-continuous step value: the first
// breakpoint at or after the date, flat-extrapolated beyond the last
// breakpoint (spec §4.1).
func NewPiecewise(valuation, refDate time.Time, tenors []Tenor, conv daycount.Convention) (*Curve, error) {
	if len(tenors) == 0 {
		return nil, fmt.Errorf("rates: NewPiecewise requires at least one tenor")
	}
	sorted := make([]Tenor, len(tenors))
	copy(sorted, tenors)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Years < sorted[j-1].Years; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	bps := make([]time.Time, len(sorted))
	rs := make([]float64, len(sorted))
	for i, t := range sorted {
		bps[i] = yearsFrom(refDate, t.Years)
		rs[i] = t.Rate
	}
	return &Curve{valuation: valuation, conv: conv, breakpoints: bps, stepRates: rs}, nil
}

func yearsFrom(ref time.Time, years float64) time.Time {
	return ref.Add(time.Duration(years * 365.25 * 24 * float64(time.Hour)))
}

// Valuation returns the curve's valuation date.
func (c *Curve) Valuation() time.Time { return c.valuation }

// DayCount returns the curve's day-count convention.
func (c *Curve) DayCount() daycount.Convention { return c.conv }

// RateAt returns the instantaneous short rate applying at date d: the flat
// rate, or the right-continuous piecewise step value (spec §4.1).
func (c *Curve) RateAt(d time.Time) float64 {
	if c.flat {
		return c.flatRate
	}
	for i, bp := range c.breakpoints {
		if !d.After(bp) {
			return c.stepRates[i]
		}
	}
	return c.stepRates[len(c.stepRates)-1]
}

// DF returns the discount factor to date d: exp(-integral of r(u) du from
// valuation to d).
func (c *Curve) DF(d time.Time) float64 {
	return math.Exp(-c.integrate(c.valuation, d))
}

// ZeroRate returns the continuously-compounded zero rate to date d implied
// by DF(d); returns RateAt(d) when d equals the valuation date (no elapsed
// time to annualise over).
func (c *Curve) ZeroRate(d time.Time) float64 {
	yf := daycount.MustFraction(c.valuation, d, c.conv)
	if yf == 0 {
		return c.RateAt(d)
	}
	return c.integrate(c.valuation, d) / yf
}

// integrate sums the step-constant rate over [from, to], segment by segment.
func (c *Curve) integrate(from, to time.Time) float64 {
	if !to.After(from) {
		return 0
	}
	if c.flat {
		return c.flatRate * daycount.MustFraction(from, to, c.conv)
	}
	total := 0.0
	cur := from
	for i, bp := range c.breakpoints {
		if !bp.After(cur) {
			continue
		}
		segEnd := bp
		if segEnd.After(to) {
			segEnd = to
		}
		total += c.stepRates[i] * daycount.MustFraction(cur, segEnd, c.conv)
		cur = segEnd
		if !cur.Before(to) {
			return total
		}
	}
	if cur.Before(to) {
		total += c.stepRates[len(c.stepRates)-1] * daycount.MustFraction(cur, to, c.conv)
	}
	return total
}
