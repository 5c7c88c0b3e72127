package grid_test

import (
	"testing"
	"time"

	"github.com/meenmo/wopricer/daycount"
	"github.com/meenmo/wopricer/grid"
	"github.com/meenmo/wopricer/product"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuildOrdersAndTagsDates(t *testing.T) {
	ts := product.TermSheet{
		Meta: product.Meta{
			ValuationDate: d("2026-01-01"),
			MaturityDate:  d("2026-07-01"),
		},
		Underlyings: []product.Underlying{
			{
				ID: "AAA",
				Dividend: product.DividendModel{
					Kind:     product.DividendDiscrete,
					Schedule: []product.DividendPoint{{Date: d("2026-04-01"), Amount: 1.5}},
				},
			},
		},
		Schedules: product.Schedules{
			ObservationDates: []time.Time{d("2026-04-01"), d("2026-07-01")},
		},
	}

	g, err := grid.Build(ts, daycount.Act365F)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.Empty {
		t.Fatal("expected non-empty grid")
	}
	if len(g.Steps) != 3 {
		t.Fatalf("expected 3 distinct dates (valuation, Apr 1, maturity), got %d: %+v", len(g.Steps), g.Steps)
	}
	if g.Steps[0].Dt != 0 {
		t.Fatalf("expected first step dt=0, got %v", g.Steps[0].Dt)
	}
	mid := g.Steps[1]
	if !mid.HasTag(grid.TagObservation) || !mid.HasTag(grid.TagExDividend) {
		t.Fatalf("expected Apr 1 step to carry both OBSERVATION and EX_DIVIDEND tags, got %+v", mid.Tags)
	}
	if g.Steps[g.MaturityIndex].Date.Equal(d("2026-07-01")) == false {
		t.Fatalf("expected maturity index to point at maturity date")
	}

	idx, ok := g.ObservationStepIndex(d("2026-07-01"))
	if !ok || idx != g.MaturityIndex {
		t.Fatalf("expected maturity observation to resolve to maturity index, got idx=%d ok=%v", idx, ok)
	}
	divIdx, ok := g.ExDividendStepIndex("AAA", d("2026-04-01"))
	if !ok || divIdx != 1 {
		t.Fatalf("expected ex-div index 1, got %d ok=%v", divIdx, ok)
	}
}

func TestBuildReturnsEmptyGridWhenAlreadyMatured(t *testing.T) {
	ts := product.TermSheet{
		Meta: product.Meta{
			ValuationDate: d("2027-01-01"),
			MaturityDate:  d("2026-01-01"),
		},
	}
	g, err := grid.Build(ts, daycount.Act365F)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !g.Empty {
		t.Fatal("expected Empty grid for already-matured product")
	}
}

func TestBuildIgnoresObservationsBeforeValuation(t *testing.T) {
	ts := product.TermSheet{
		Meta: product.Meta{
			ValuationDate: d("2026-06-01"),
			MaturityDate:  d("2026-12-01"),
		},
		Schedules: product.Schedules{
			ObservationDates: []time.Time{d("2026-01-01"), d("2026-12-01")},
		},
	}
	g, err := grid.Build(ts, daycount.Act365F)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Steps) != 2 {
		t.Fatalf("expected 2 steps (valuation, maturity), got %d", len(g.Steps))
	}
}
