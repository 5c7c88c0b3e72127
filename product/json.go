package product

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/meenmo/wopricer/daycount"
	"github.com/meenmo/wopricer/rates"
)

// ParseTermSheet decodes a TermSheet from its JSON wire format (spec §6):
// exactly the fields of spec §3, unknown keys rejected, dates ISO-8601.
//
// goccy/go-json's Decoder.DisallowUnknownFields mirrors the strict-decode
// pattern the rest of the pack reaches for when a wire payload must not
// silently tolerate typos or stale fields (no retrieved example repo
// decodes term-sheet-shaped documents, so this is grounded on goccy/go-json
// itself rather than on a specific call site in the pack).
func ParseTermSheet(data []byte) (TermSheet, error) {
	var w wireTermSheet
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return TermSheet{}, fmt.Errorf("product: decoding term sheet: %w", err)
	}
	return w.toDomain()
}

type wireMeta struct {
	ProductID           string  `json:"product_id"`
	TradeDate           string  `json:"trade_date"`
	ValuationDate       string  `json:"valuation_date"`
	SettlementDate      string  `json:"settlement_date"`
	MaturityDate        string  `json:"maturity_date"`
	MaturityPaymentDate string  `json:"maturity_payment_date"`
	Currency            string  `json:"currency"`
	Notional            float64 `json:"notional"`
}

type wireDividendPoint struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type wireDividend struct {
	Kind     string              `json:"kind"`
	Yield    float64             `json:"yield"`
	Schedule []wireDividendPoint `json:"schedule"`
	Horizon  string              `json:"horizon"`
}

type wireVolPoint struct {
	Date  string  `json:"date"`
	Sigma float64 `json:"sigma"`
}

type wireVol struct {
	Kind   string         `json:"kind"`
	Flat   float64        `json:"flat"`
	Tenors []wireVolPoint `json:"tenors"`
}

type wireUnderlying struct {
	ID       string       `json:"id"`
	Spot     float64      `json:"spot"`
	Currency string       `json:"currency"`
	Dividend wireDividend `json:"dividend"`
	Vol      wireVol      `json:"vol"`
}

type wireTenor struct {
	Years float64 `json:"years"`
	Rate  float64 `json:"rate"`
}

type wireDiscountCurve struct {
	Kind     string      `json:"kind"`
	Rate     float64     `json:"rate"`
	RefDate  string      `json:"ref_date"`
	Tenors   []wireTenor `json:"tenors"`
	DayCount string      `json:"day_count"`
}

type wireCorrelation struct {
	Full     [][]float64        `json:"full"`
	Pairwise map[string]float64 `json:"pairwise"`
}

type wireSchedules struct {
	ObservationDates []string  `json:"observation_dates"`
	PaymentDates     []string  `json:"payment_dates"`
	AutocallLevels   []float64 `json:"autocall_levels"`
	CouponBarriers   []float64 `json:"coupon_barriers"`
	CouponRates      []float64 `json:"coupon_rates"`
}

type wireKIBarrier struct {
	Level      float64 `json:"level"`
	Monitoring string  `json:"monitoring"`
}

type wirePayoff struct {
	WorstOf              bool    `json:"worst_of"`
	CouponMemory         bool    `json:"coupon_memory"`
	CouponOnAutocall     bool    `json:"coupon_on_autocall"`
	RedemptionIfAutocall float64 `json:"redemption_if_autocall"`
	RedemptionIfNoKI     float64 `json:"redemption_if_no_ki"`
	RedemptionIfKI       string  `json:"redemption_if_ki"`
	KIRedemptionFloor    float64 `json:"ki_redemption_floor"`
}

type wireTermSheet struct {
	Meta          wireMeta          `json:"meta"`
	Underlyings   []wireUnderlying  `json:"underlyings"`
	DiscountCurve wireDiscountCurve `json:"discount_curve"`
	Correlation   *wireCorrelation  `json:"correlation"`
	Schedules     wireSchedules     `json:"schedules"`
	KIBarrier     *wireKIBarrier    `json:"ki_barrier"`
	Payoff        wirePayoff        `json:"payoff"`
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("product: invalid ISO-8601 date %q: %w", s, err)
	}
	return d, nil
}

func parseDates(ss []string) ([]time.Time, error) {
	out := make([]time.Time, len(ss))
	for i, s := range ss {
		d, err := parseDate(s)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func parseDayCount(s string) (daycount.Convention, error) {
	switch daycount.Convention(s) {
	case daycount.Act360, daycount.Act365F, daycount.Thirty360:
		return daycount.Convention(s), nil
	default:
		return "", fmt.Errorf("product: unknown day_count %q", s)
	}
}

func (w wireTermSheet) toDomain() (TermSheet, error) {
	var t TermSheet
	var err error

	if t.Meta.TradeDate, err = parseDate(w.Meta.TradeDate); err != nil {
		return t, err
	}
	if t.Meta.ValuationDate, err = parseDate(w.Meta.ValuationDate); err != nil {
		return t, err
	}
	if t.Meta.SettlementDate, err = parseDate(w.Meta.SettlementDate); err != nil {
		return t, err
	}
	if t.Meta.MaturityDate, err = parseDate(w.Meta.MaturityDate); err != nil {
		return t, err
	}
	if t.Meta.MaturityPaymentDate, err = parseDate(w.Meta.MaturityPaymentDate); err != nil {
		return t, err
	}
	t.Meta.ProductID = w.Meta.ProductID
	t.Meta.Currency = w.Meta.Currency
	t.Meta.Notional = w.Meta.Notional

	t.Underlyings = make([]Underlying, len(w.Underlyings))
	for i, wu := range w.Underlyings {
		u := Underlying{ID: wu.ID, Spot: wu.Spot, Currency: wu.Currency}

		u.Dividend.Kind = DividendKind(wu.Dividend.Kind)
		u.Dividend.Yield = wu.Dividend.Yield
		if u.Dividend.Horizon, err = parseDate(wu.Dividend.Horizon); err != nil {
			return t, err
		}
		u.Dividend.Schedule = make([]DividendPoint, len(wu.Dividend.Schedule))
		for j, wp := range wu.Dividend.Schedule {
			d, perr := parseDate(wp.Date)
			if perr != nil {
				return t, perr
			}
			u.Dividend.Schedule[j] = DividendPoint{Date: d, Amount: wp.Amount}
		}

		u.Vol.Kind = VolKind(wu.Vol.Kind)
		u.Vol.Flat = wu.Vol.Flat
		u.Vol.Tenors = make([]VolPoint, len(wu.Vol.Tenors))
		for j, wp := range wu.Vol.Tenors {
			d, perr := parseDate(wp.Date)
			if perr != nil {
				return t, perr
			}
			u.Vol.Tenors[j] = VolPoint{Date: d, Sigma: wp.Sigma}
		}

		t.Underlyings[i] = u
	}

	conv, err := parseDayCount(w.DiscountCurve.DayCount)
	if err != nil {
		return t, err
	}
	refDate, err := parseDate(w.DiscountCurve.RefDate)
	if err != nil {
		return t, err
	}
	tenors := make([]rates.Tenor, len(w.DiscountCurve.Tenors))
	for i, wt := range w.DiscountCurve.Tenors {
		tenors[i] = rates.Tenor{Years: wt.Years, Rate: wt.Rate}
	}
	t.DiscountCurve = DiscountCurveSpec{
		Kind:     DiscountCurveKind(w.DiscountCurve.Kind),
		Rate:     w.DiscountCurve.Rate,
		RefDate:  refDate,
		Tenors:   tenors,
		DayCount: conv,
	}

	if w.Correlation != nil {
		t.Correlation = &CorrelationSpec{Full: w.Correlation.Full, Pairwise: w.Correlation.Pairwise}
	}

	obsDates, err := parseDates(w.Schedules.ObservationDates)
	if err != nil {
		return t, err
	}
	payDates, err := parseDates(w.Schedules.PaymentDates)
	if err != nil {
		return t, err
	}
	t.Schedules = Schedules{
		ObservationDates: obsDates,
		PaymentDates:     payDates,
		AutocallLevels:   w.Schedules.AutocallLevels,
		CouponBarriers:   w.Schedules.CouponBarriers,
		CouponRates:      w.Schedules.CouponRates,
	}

	if w.KIBarrier != nil {
		t.KIBarrier = &KIBarrier{Level: w.KIBarrier.Level, Monitoring: Monitoring(w.KIBarrier.Monitoring)}
	}

	t.Payoff = Payoff{
		WorstOf:              w.Payoff.WorstOf,
		CouponMemory:         w.Payoff.CouponMemory,
		CouponOnAutocall:     w.Payoff.CouponOnAutocall,
		RedemptionIfAutocall: w.Payoff.RedemptionIfAutocall,
		RedemptionIfNoKI:     w.Payoff.RedemptionIfNoKI,
		RedemptionIfKI:       KIRedemptionRule(w.Payoff.RedemptionIfKI),
		KIRedemptionFloor:    w.Payoff.KIRedemptionFloor,
	}

	return t, nil
}
