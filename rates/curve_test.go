package rates_test

import (
	"math"
	"testing"
	"time"

	"github.com/meenmo/wopricer/daycount"
	"github.com/meenmo/wopricer/rates"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFlatCurveDF(t *testing.T) {
	val := d("2026-01-01")
	c := rates.NewFlat(val, 0.05, daycount.Act365F)
	maturity := d("2027-01-01")
	want := math.Exp(-0.05 * 365.0 / 365.0)
	got := c.DF(maturity)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestFlatCurveZeroRateRoundTrips(t *testing.T) {
	val := d("2026-01-01")
	c := rates.NewFlat(val, 0.0375, daycount.Act365F)
	z := c.ZeroRate(d("2030-01-01"))
	if math.Abs(z-0.0375) > 1e-9 {
		t.Fatalf("got %v want 0.0375", z)
	}
}

func TestPiecewiseCurveStepRate(t *testing.T) {
	val := d("2026-01-01")
	c, err := rates.NewPiecewise(val, val, []rates.Tenor{
		{Years: 1, Rate: 0.02},
		{Years: 2, Rate: 0.03},
		{Years: 5, Rate: 0.04},
	}, daycount.Act365F)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Within the first segment.
	r1 := c.RateAt(d("2026-06-01"))
	if r1 != 0.02 {
		t.Fatalf("got %v want 0.02", r1)
	}
	// Beyond the last breakpoint: flat extrapolation.
	r2 := c.RateAt(d("2040-01-01"))
	if r2 != 0.04 {
		t.Fatalf("got %v want 0.04", r2)
	}
}

func TestPiecewiseCurveDFMatchesSegmentIntegral(t *testing.T) {
	val := d("2026-01-01")
	c, err := rates.NewPiecewise(val, val, []rates.Tenor{
		{Years: 1, Rate: 0.02},
		{Years: 2, Rate: 0.03},
	}, daycount.Act365F)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// DF at the first breakpoint uses only the first segment's rate.
	oneYear := c.DF(val.AddDate(1, 0, 0))
	yf := 365.0 / 365.0
	want := math.Exp(-0.02 * yf)
	if math.Abs(oneYear-want) > 1e-6 {
		t.Fatalf("got %v want %v", oneYear, want)
	}
}

func TestNewPiecewiseRequiresTenors(t *testing.T) {
	_, err := rates.NewPiecewise(d("2026-01-01"), d("2026-01-01"), nil, daycount.Act365F)
	if err == nil {
		t.Fatal("expected error for empty tenor list")
	}
}
