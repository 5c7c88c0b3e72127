// Package product defines the TermSheet data model for a worst-of
// autocallable note (spec §3) and its closed enumerations (spec §9 Design
// Notes: dynamic free-form config dictionaries become typed variants).
//
// Enum shape follows molib's swap/market/leg.go: a string-backed type plus
// a small const block, grouped next to the struct that carries it.
package product

import (
	"fmt"
	"time"

	"github.com/meenmo/wopricer/daycount"
	"github.com/meenmo/wopricer/rates"
)

// Meta carries the product identity, dates, currency, and notional
// (spec §3 "meta").
type Meta struct {
	ProductID           string
	TradeDate           time.Time
	ValuationDate       time.Time
	SettlementDate      time.Time
	MaturityDate        time.Time
	MaturityPaymentDate time.Time
	Currency            string
	Notional            float64
}

// DividendKind enumerates the dividend model variants (Design Notes §9).
type DividendKind string

const (
	DividendContinuous DividendKind = "continuous"
	DividendDiscrete   DividendKind = "discrete"
	DividendMixed      DividendKind = "mixed"
)

// DividendPoint is one scheduled discrete dividend.
type DividendPoint struct {
	Date   time.Time
	Amount float64
}

// DividendModel is a closed variant: Continuous(yield), Discrete(schedule),
// or Mixed(yield, schedule, horizon) — discrete cash amounts strictly
// before Horizon, continuous yield from Horizon to maturity.
type DividendModel struct {
	Kind     DividendKind
	Yield    float64
	Schedule []DividendPoint
	Horizon  time.Time
}

// YieldAt returns the continuous dividend yield applying to a diffusion
// step ending on stepEnd. Discrete pays nothing continuously; Continuous
// always applies its yield; Mixed applies the yield only from Horizon
// onward, since dates strictly before Horizon are covered by discrete cash
// amounts in Schedule instead (this file's own resolution of the Mixed
// variant named in Design Notes §9, not spelled out verbatim in spec §3).
func (d DividendModel) YieldAt(stepEnd time.Time) float64 {
	switch d.Kind {
	case DividendContinuous:
		return d.Yield
	case DividendMixed:
		if !stepEnd.Before(d.Horizon) {
			return d.Yield
		}
		return 0
	default:
		return 0
	}
}

// VolKind enumerates the volatility model variants (Design Notes §9).
type VolKind string

const (
	VolFlat              VolKind = "flat"
	VolPiecewiseConstant VolKind = "piecewise_constant"
)

// VolPoint is one tenor node of a piecewise-constant vol term structure:
// Sigma applies for any step whose end date is at or before Date, using
// the first such node found in order (spec §4.4.1).
type VolPoint struct {
	Date  time.Time
	Sigma float64
}

// VolModel is a closed variant: Flat(sigma) or PiecewiseConstant(tenors).
type VolModel struct {
	Kind   VolKind
	Flat   float64
	Tenors []VolPoint
}

// SigmaAt returns the volatility applying to a step ending on stepEnd
// (spec §4.4.1): the piecewise-constant tenor list is searched for the
// first breakpoint at or after stepEnd; if none qualifies, the last value
// is used.
func (v VolModel) SigmaAt(stepEnd time.Time) float64 {
	if v.Kind == VolFlat || len(v.Tenors) == 0 {
		return v.Flat
	}
	for _, pt := range v.Tenors {
		if !pt.Date.Before(stepEnd) {
			return pt.Sigma
		}
	}
	return v.Tenors[len(v.Tenors)-1].Sigma
}

// Underlying is one asset in the basket, in canonical (index-determining)
// order (spec §3).
type Underlying struct {
	ID       string
	Spot     float64
	Currency string
	Dividend DividendModel
	Vol      VolModel
}

// DiscountCurveKind enumerates the rate-curve variants (Design Notes §9).
type DiscountCurveKind string

const (
	RateCurveFlat      DiscountCurveKind = "flat"
	RateCurvePiecewise DiscountCurveKind = "piecewise"
)

// DiscountCurveSpec is the input shape for the discount curve: either a
// flat continuously-compounded rate, or a piecewise step curve anchored at
// RefDate (spec §3 "discount_curve").
type DiscountCurveSpec struct {
	Kind     DiscountCurveKind
	Rate     float64
	RefDate  time.Time
	Tenors   []rates.Tenor
	DayCount daycount.Convention
}

// Build constructs the runtime rates.Curve for this spec, anchored at
// valuation.
func (s DiscountCurveSpec) Build(valuation time.Time) (*rates.Curve, error) {
	conv := s.DayCount
	if conv == "" {
		conv = daycount.Act365F
	}
	switch s.Kind {
	case RateCurveFlat:
		return rates.NewFlat(valuation, s.Rate, conv), nil
	case RateCurvePiecewise:
		ref := s.RefDate
		if ref.IsZero() {
			ref = valuation
		}
		return rates.NewPiecewise(valuation, ref, s.Tenors, conv)
	default:
		return nil, fmt.Errorf("product: unknown discount curve kind %q", s.Kind)
	}
}

// CorrelationSpec is the input shape for the asset correlation: either a
// full N x N matrix or a pairwise map keyed "ASSET_A_ASSET_B" (spec §3/§6).
// Exactly one of Full / Pairwise should be set; both empty is only valid
// for a single-asset term sheet, where CorrelationSpec is nil entirely.
type CorrelationSpec struct {
	Full     [][]float64
	Pairwise map[string]float64
}

// Monitoring enumerates the KI barrier monitoring scheme (spec §3).
type Monitoring string

const (
	MonitoringContinuous Monitoring = "continuous"
	MonitoringDiscrete   Monitoring = "discrete"
)

// KIBarrier is the optional down knock-in barrier (spec §3/§4.4.3).
type KIBarrier struct {
	Level      float64
	Monitoring Monitoring
}

// KIRedemptionRule enumerates the maturity redemption rule applied once a
// path has knocked in (spec §3/§4.5).
type KIRedemptionRule string

const (
	KIWorstPerformance KIRedemptionRule = "worst_performance"
	KIFixed            KIRedemptionRule = "fixed"
	KIFloored          KIRedemptionRule = "floored"
)

// Payoff describes the note's coupon/autocall/redemption rules (spec §3).
type Payoff struct {
	WorstOf              bool
	CouponMemory         bool
	CouponOnAutocall     bool
	RedemptionIfAutocall float64
	RedemptionIfNoKI     float64
	RedemptionIfKI       KIRedemptionRule
	KIRedemptionFloor    float64
}

// Schedules holds the five equal-length, date-indexed arrays that drive
// autocall and coupon evaluation (spec §3).
type Schedules struct {
	ObservationDates []time.Time
	PaymentDates     []time.Time
	AutocallLevels   []float64
	CouponBarriers   []float64
	CouponRates      []float64
}

// Len returns the number of observations, or -1 if the arrays are not of
// equal length (callers should treat that as an InputValidation failure).
func (s Schedules) Len() int {
	n := len(s.ObservationDates)
	if len(s.PaymentDates) != n || len(s.AutocallLevels) != n ||
		len(s.CouponBarriers) != n || len(s.CouponRates) != n {
		return -1
	}
	return n
}

// TermSheet is the full, immutable product+market description (spec §3).
type TermSheet struct {
	Meta          Meta
	Underlyings   []Underlying
	DiscountCurve DiscountCurveSpec
	Correlation   *CorrelationSpec
	Schedules     Schedules
	KIBarrier     *KIBarrier
	Payoff        Payoff
}

// AssetIDs returns the underlyings' ids in canonical order.
func (t TermSheet) AssetIDs() []string {
	ids := make([]string, len(t.Underlyings))
	for i, u := range t.Underlyings {
		ids[i] = u.ID
	}
	return ids
}

// Clone returns a deep copy safe to mutate for Greeks bumping (spec §4.6,
// §5 "bumped scenarios always operate on a deep copy").
func (t TermSheet) Clone() TermSheet {
	clone := t
	clone.Underlyings = make([]Underlying, len(t.Underlyings))
	for i, u := range t.Underlyings {
		cu := u
		cu.Dividend.Schedule = append([]DividendPoint(nil), u.Dividend.Schedule...)
		cu.Vol.Tenors = append([]VolPoint(nil), u.Vol.Tenors...)
		clone.Underlyings[i] = cu
	}
	clone.DiscountCurve.Tenors = append([]rates.Tenor(nil), t.DiscountCurve.Tenors...)
	if t.Correlation != nil {
		c := &CorrelationSpec{}
		if t.Correlation.Full != nil {
			c.Full = make([][]float64, len(t.Correlation.Full))
			for i, row := range t.Correlation.Full {
				c.Full[i] = append([]float64(nil), row...)
			}
		}
		if t.Correlation.Pairwise != nil {
			c.Pairwise = make(map[string]float64, len(t.Correlation.Pairwise))
			for k, v := range t.Correlation.Pairwise {
				c.Pairwise[k] = v
			}
		}
		clone.Correlation = c
	}
	if t.KIBarrier != nil {
		kib := *t.KIBarrier
		clone.KIBarrier = &kib
	}
	clone.Schedules = Schedules{
		ObservationDates: append([]time.Time(nil), t.Schedules.ObservationDates...),
		PaymentDates:     append([]time.Time(nil), t.Schedules.PaymentDates...),
		AutocallLevels:   append([]float64(nil), t.Schedules.AutocallLevels...),
		CouponBarriers:   append([]float64(nil), t.Schedules.CouponBarriers...),
		CouponRates:      append([]float64(nil), t.Schedules.CouponRates...),
	}
	return clone
}
