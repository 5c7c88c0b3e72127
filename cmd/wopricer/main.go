package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/meenmo/wopricer/config"
	"github.com/meenmo/wopricer/logging"
	"github.com/meenmo/wopricer/pricer"
	"github.com/meenmo/wopricer/product"
)

func main() {
	_ = godotenv.Load() // optional .env overrides for WOPRICER_PATHS / WOPRICER_SEED; missing file is fine

	numPaths := envInt("WOPRICER_PATHS", 50_000)
	seedVal := envInt("WOPRICER_SEED", 12345)
	seed := uint64(seedVal)

	ts := product.TermSheet{
		Meta: product.Meta{
			ProductID:           "WOAC-DEMO-001",
			TradeDate:           date("2026-01-01"),
			ValuationDate:       date("2026-01-01"),
			SettlementDate:      date("2026-01-05"),
			MaturityDate:        date("2027-01-01"),
			MaturityPaymentDate: date("2027-01-05"),
			Currency:            "USD",
			Notional:            1_000_000,
		},
		Underlyings: []product.Underlying{
			{ID: "AAA", Spot: 100, Currency: "USD", Vol: product.VolModel{Kind: product.VolFlat, Flat: 0.25}},
			{ID: "BBB", Spot: 100, Currency: "USD", Vol: product.VolModel{Kind: product.VolFlat, Flat: 0.30}},
			{ID: "CCC", Spot: 100, Currency: "USD", Vol: product.VolModel{Kind: product.VolFlat, Flat: 0.28}},
		},
		DiscountCurve: product.DiscountCurveSpec{Kind: product.RateCurveFlat, Rate: 0.05},
		Correlation: &product.CorrelationSpec{Pairwise: map[string]float64{
			"AAA_BBB": 0.7,
			"AAA_CCC": 0.6,
			"BBB_CCC": 0.65,
		}},
		Schedules: product.Schedules{
			ObservationDates: []time.Time{date("2026-04-01"), date("2026-07-01"), date("2026-10-01"), date("2027-01-01")},
			PaymentDates:     []time.Time{date("2026-04-03"), date("2026-07-03"), date("2026-10-03"), date("2027-01-05")},
			AutocallLevels:   []float64{1.0, 1.0, 1.0, 1.0},
			CouponBarriers:   []float64{0.6, 0.6, 0.6, 0.6},
			CouponRates:      []float64{0.02, 0.02, 0.02, 0.02},
		},
		KIBarrier: &product.KIBarrier{Level: 0.6, Monitoring: product.MonitoringContinuous},
		Payoff: product.Payoff{
			WorstOf:              true,
			CouponMemory:         true,
			RedemptionIfAutocall: 1.0,
			RedemptionIfNoKI:     1.0,
			RedemptionIfKI:       product.KIWorstPerformance,
		},
	}

	cfg := config.DefaultConfig
	log := logging.New(false)
	run := pricer.RunConfig{NumPaths: numPaths, BlockSize: cfg.DefaultBlockSize, Seed: &seed}

	price, err := pricer.Price(context.Background(), ts, run, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "price failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("PV:                   %.2f +/- %.2f\n", price.PV, price.PVStdError)
	fmt.Printf("Autocall probability: %.4f\n", price.AutocallProbability)
	fmt.Printf("KI probability:       %.4f\n", price.KIProbability)
	fmt.Printf("Expected life (yrs):  %.4f\n", price.ExpectedLifeYears)
	fmt.Printf("Computation time:     %dms\n", price.ComputationTimeMs)

	risk, err := pricer.Risk(context.Background(), ts, run, pricer.BumpConfig{CentralDiff: true}, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "risk failed: %v\n", err)
		os.Exit(1)
	}
	for _, u := range ts.Underlyings {
		fmt.Printf("Delta[%s]: %.2f (%.3f%% of notional)  Vega[%s]: %.2f\n",
			u.ID, risk.Delta[u.ID], risk.DeltaPct[u.ID], u.ID, risk.Vega[u.ID])
	}
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
