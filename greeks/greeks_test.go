package greeks_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/meenmo/wopricer/config"
	"github.com/meenmo/wopricer/daycount"
	"github.com/meenmo/wopricer/greeks"
	"github.com/meenmo/wopricer/product"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func worstOfSheet() product.TermSheet {
	return product.TermSheet{
		Meta: product.Meta{
			ValuationDate:       d("2026-01-01"),
			MaturityDate:        d("2027-01-01"),
			MaturityPaymentDate: d("2027-01-03"),
			Notional:            1_000_000,
		},
		Underlyings: []product.Underlying{
			{ID: "AAA", Spot: 100, Vol: product.VolModel{Kind: product.VolFlat, Flat: 0.25}},
			{ID: "BBB", Spot: 100, Vol: product.VolModel{Kind: product.VolFlat, Flat: 0.25}},
		},
		Correlation: &product.CorrelationSpec{Pairwise: map[string]float64{"AAA_BBB": 0.7}},
		DiscountCurve: product.DiscountCurveSpec{
			Kind: product.RateCurveFlat,
			Rate: 0.05,
		},
		Schedules: product.Schedules{
			ObservationDates: []time.Time{d("2026-04-01"), d("2026-07-01"), d("2026-10-01"), d("2027-01-01")},
			PaymentDates:     []time.Time{d("2026-04-03"), d("2026-07-03"), d("2026-10-03"), d("2027-01-03")},
			AutocallLevels:   []float64{1.0, 1.0, 1.0, 1.0},
			CouponBarriers:   []float64{0.6, 0.6, 0.6, 0.6},
			CouponRates:      []float64{0.02, 0.02, 0.02, 0.02},
		},
		KIBarrier: &product.KIBarrier{Level: 0.6, Monitoring: product.MonitoringContinuous},
		Payoff: product.Payoff{
			WorstOf:              true,
			RedemptionIfAutocall: 1.0,
			RedemptionIfNoKI:     1.0,
			RedemptionIfKI:       product.KIWorstPerformance,
		},
	}
}

func TestComputeIsCRNStableAcrossRepeatedRuns(t *testing.T) {
	ts := worstOfSheet()
	cfg := config.DefaultConfig
	run := greeks.RunConfig{NumPaths: 2_000, BlockSize: 500, Seed: 42}
	bump := greeks.DefaultBumpConfig(cfg)

	r1, err := greeks.Compute(context.Background(), ts, daycount.Act365F, cfg, run, bump)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	r2, err := greeks.Compute(context.Background(), ts, daycount.Act365F, cfg, run, bump)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	for _, id := range ts.AssetIDs() {
		if r1.Delta[id] != r2.Delta[id] {
			t.Fatalf("delta for %s not bit-exact across identical-seed runs: %v vs %v", id, r1.Delta[id], r2.Delta[id])
		}
		if r1.Vega[id] != r2.Vega[id] {
			t.Fatalf("vega for %s not bit-exact across identical-seed runs: %v vs %v", id, r1.Vega[id], r2.Vega[id])
		}
	}
	if r1.Base.PV != r2.Base.PV {
		t.Fatalf("base PV not bit-exact: %v vs %v", r1.Base.PV, r2.Base.PV)
	}
}

func TestComputeReportsRepricingCount(t *testing.T) {
	ts := worstOfSheet()
	cfg := config.DefaultConfig
	run := greeks.RunConfig{NumPaths: 500, BlockSize: 500, Seed: 1}
	bump := greeks.DefaultBumpConfig(cfg)
	bump.IncludeRho = true

	res, err := greeks.Compute(context.Background(), ts, daycount.Act365F, cfg, run, bump)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	// base + (delta central-diff x2 + vega central-diff x2) per asset + rho x2
	want := 1 + len(ts.Underlyings)*4 + 2
	if res.Repricings != want {
		t.Fatalf("expected %d repricings, got %d", want, res.Repricings)
	}
	if !res.RhoComputed {
		t.Fatal("expected rho to be computed when IncludeRho is set")
	}
}

func TestComputeHandlesEmptyGrid(t *testing.T) {
	ts := worstOfSheet()
	ts.Meta.ValuationDate = d("2028-01-01") // after maturity
	cfg := config.DefaultConfig
	run := greeks.RunConfig{NumPaths: 1_000, BlockSize: 500, Seed: 1}
	bump := greeks.DefaultBumpConfig(cfg)

	res, err := greeks.Compute(context.Background(), ts, daycount.Act365F, cfg, run, bump)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.Base.PV != 0 {
		t.Fatalf("expected zero PV for an already-matured term sheet, got %v", res.Base.PV)
	}
	if len(res.Delta) != 0 {
		t.Fatalf("expected no deltas for an empty grid, got %v", res.Delta)
	}
}

func TestComputeDeltaIsPositiveForLongEquityExposure(t *testing.T) {
	ts := worstOfSheet()
	cfg := config.DefaultConfig
	run := greeks.RunConfig{NumPaths: 20_000, BlockSize: 2_000, Seed: 7}
	bump := greeks.DefaultBumpConfig(cfg)

	res, err := greeks.Compute(context.Background(), ts, daycount.Act365F, cfg, run, bump)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for _, id := range ts.AssetIDs() {
		if res.Delta[id] <= 0 {
			t.Fatalf("expected positive delta for %s on a worst-of note with no leverage, got %v", id, res.Delta[id])
		}
		if math.IsNaN(res.Delta[id]) || math.IsInf(res.Delta[id], 0) {
			t.Fatalf("delta for %s is not finite: %v", id, res.Delta[id])
		}
	}
}
