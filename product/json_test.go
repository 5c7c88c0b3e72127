package product_test

import (
	"testing"

	"github.com/meenmo/wopricer/product"
)

const sampleTermSheet = `{
  "meta": {
    "product_id": "WO-2026-001",
    "trade_date": "2026-07-28",
    "valuation_date": "2026-07-30",
    "settlement_date": "2026-08-01",
    "maturity_date": "2027-07-30",
    "maturity_payment_date": "2027-08-03",
    "currency": "USD",
    "notional": 1000000
  },
  "underlyings": [
    {
      "id": "AAA",
      "spot": 100,
      "currency": "USD",
      "dividend": {"kind": "continuous", "yield": 0.01},
      "vol": {"kind": "flat", "flat": 0.25}
    },
    {
      "id": "BBB",
      "spot": 50,
      "currency": "USD",
      "dividend": {"kind": "continuous", "yield": 0.02},
      "vol": {"kind": "flat", "flat": 0.30}
    }
  ],
  "discount_curve": {"kind": "flat", "rate": 0.04, "day_count": "ACT/365F"},
  "correlation": {"pairwise": {"AAA_BBB": 0.5}},
  "schedules": {
    "observation_dates": ["2027-01-30", "2027-07-30"],
    "payment_dates": ["2027-02-03", "2027-08-03"],
    "autocall_levels": [1.0, 1.0],
    "coupon_barriers": [0.7, 0.7],
    "coupon_rates": [0.04, 0.04]
  },
  "ki_barrier": {"level": 0.6, "monitoring": "continuous"},
  "payoff": {
    "worst_of": true,
    "coupon_memory": true,
    "coupon_on_autocall": true,
    "redemption_if_autocall": 1.0,
    "redemption_if_no_ki": 1.0,
    "redemption_if_ki": "worst_performance",
    "ki_redemption_floor": 0
  }
}`

func TestParseTermSheetDecodesValidSample(t *testing.T) {
	ts, err := product.ParseTermSheet([]byte(sampleTermSheet))
	if err != nil {
		t.Fatalf("ParseTermSheet: %v", err)
	}
	if len(ts.Underlyings) != 2 {
		t.Fatalf("expected 2 underlyings, got %d", len(ts.Underlyings))
	}
	if ts.Correlation == nil || ts.Correlation.Pairwise["AAA_BBB"] != 0.5 {
		t.Fatalf("expected pairwise correlation AAA_BBB=0.5, got %+v", ts.Correlation)
	}
	if err := ts.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseTermSheetRejectsUnknownField(t *testing.T) {
	bad := `{"meta": {"product_id": "x"}, "bogus_field": 1}`
	if _, err := product.ParseTermSheet([]byte(bad)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestParseTermSheetRejectsBadDate(t *testing.T) {
	bad := `{"meta": {"product_id": "x", "trade_date": "not-a-date"}}`
	if _, err := product.ParseTermSheet([]byte(bad)); err == nil {
		t.Fatal("expected error for malformed date, got nil")
	}
}
