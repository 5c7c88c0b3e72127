package paths_test

import (
	"context"
	"testing"
	"time"

	"github.com/meenmo/wopricer/config"
	"github.com/meenmo/wopricer/daycount"
	"github.com/meenmo/wopricer/grid"
	"github.com/meenmo/wopricer/paths"
	"github.com/meenmo/wopricer/product"
	"github.com/meenmo/wopricer/rates"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func singleAssetSheet() product.TermSheet {
	return product.TermSheet{
		Meta: product.Meta{
			ValuationDate: d("2026-01-01"),
			MaturityDate:  d("2026-07-01"),
			Notional:      1_000_000,
		},
		Underlyings: []product.Underlying{
			{ID: "AAA", Spot: 100, Vol: product.VolModel{Kind: product.VolFlat, Flat: 0.25}},
		},
		Schedules: product.Schedules{
			ObservationDates: []time.Time{d("2026-04-01"), d("2026-07-01")},
			PaymentDates:     []time.Time{d("2026-04-03"), d("2026-07-03")},
			AutocallLevels:   []float64{1.0, 1.0},
			CouponBarriers:   []float64{0.7, 0.7},
			CouponRates:      []float64{0.04, 0.04},
		},
		Payoff: product.Payoff{RedemptionIfKI: product.KIWorstPerformance},
	}
}

func TestGenerateBlocksFirstStepMatchesInitialSpot(t *testing.T) {
	ts := singleAssetSheet()
	g, err := grid.Build(ts, daycount.Act365F)
	if err != nil {
		t.Fatalf("grid.Build: %v", err)
	}
	curve := rates.NewFlat(ts.Meta.ValuationDate, 0.03, daycount.Act365F)
	gen, err := paths.NewGenerator(ts, g, curve, config.DefaultConfig, nil)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	blocks, err := gen.GenerateBlocks(context.Background(), 50, 25, 1)
	if err != nil {
		t.Fatalf("GenerateBlocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	total := 0
	for _, b := range blocks {
		total += b.NumPaths()
		for p := 0; p < b.NumPaths(); p++ {
			if b.Spots[p][0][0] != 100 {
				t.Fatalf("expected path %d step 0 spot 100, got %v", p, b.Spots[p][0][0])
			}
			for _, s := range b.Spots[p] {
				if s[0] <= 0 {
					t.Fatalf("spot must stay positive, got %v", s[0])
				}
			}
		}
	}
	if total != 50 {
		t.Fatalf("expected 50 total paths across blocks, got %d", total)
	}
}

func TestGenerateBlocksIsReproducibleForSameSeed(t *testing.T) {
	ts := singleAssetSheet()
	g, _ := grid.Build(ts, daycount.Act365F)
	curve := rates.NewFlat(ts.Meta.ValuationDate, 0.03, daycount.Act365F)
	gen, _ := paths.NewGenerator(ts, g, curve, config.DefaultConfig, nil)

	b1, err := gen.GenerateBlocks(context.Background(), 10, 10, 7)
	if err != nil {
		t.Fatalf("GenerateBlocks: %v", err)
	}
	b2, err := gen.GenerateBlocks(context.Background(), 10, 10, 7)
	if err != nil {
		t.Fatalf("GenerateBlocks: %v", err)
	}
	for p := 0; p < 10; p++ {
		for k := range b1[0].Spots[p] {
			if b1[0].Spots[p][k][0] != b2[0].Spots[p][k][0] {
				t.Fatalf("path %d step %d diverged between identical-seed runs", p, k)
			}
		}
	}
}

func TestGenerateBlocksWithKIBarrierNeverGoesNonPositive(t *testing.T) {
	ts := singleAssetSheet()
	ts.KIBarrier = &product.KIBarrier{Level: 0.6, Monitoring: product.MonitoringContinuous}
	g, _ := grid.Build(ts, daycount.Act365F)
	curve := rates.NewFlat(ts.Meta.ValuationDate, 0.03, daycount.Act365F)
	gen, _ := paths.NewGenerator(ts, g, curve, config.DefaultConfig, nil)

	blocks, err := gen.GenerateBlocks(context.Background(), 200, 200, 99)
	if err != nil {
		t.Fatalf("GenerateBlocks: %v", err)
	}
	for _, b := range blocks {
		for p := 0; p < b.NumPaths(); p++ {
			for _, s := range b.Spots[p] {
				if s[0] <= 0 {
					t.Fatalf("spot must stay positive even after KI, got %v", s[0])
				}
			}
		}
	}
}
