// Package pricer exposes the four stable external functions (spec §6):
// price, risk, cashflow_report, and pv_decomposition. Each wires together
// product validation, grid construction, path generation, and payoff
// evaluation into a single call, following molib's swap.InterestRateSwap
// shape: eager, function-name-prefixed validation before any work begins,
// then a plain constructive pipeline with no builder object left behind.
package pricer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/meenmo/wopricer/config"
	"github.com/meenmo/wopricer/daycount"
	"github.com/meenmo/wopricer/engine"
	"github.com/meenmo/wopricer/greeks"
	"github.com/meenmo/wopricer/grid"
	"github.com/meenmo/wopricer/logging"
	"github.com/meenmo/wopricer/paths"
	"github.com/meenmo/wopricer/product"
)

// RunConfig is run_config (spec §6): {paths, seed, block_size, antithetic}.
// Seed nil means nondeterministic (a fresh seed is drawn per call).
type RunConfig struct {
	NumPaths   int
	Seed       *uint64
	BlockSize  int
	Antithetic bool // reserved, documented no-op (DESIGN.md Open Question 3)
}

// PriceResult is PriceResult (spec §6).
type PriceResult struct {
	PV                  float64
	PVStdError          float64
	AutocallProbability float64
	KIProbability       float64
	ExpectedCouponCount float64
	ExpectedLifeYears   float64
	AutocallProbByDate  map[string]float64
	NumPaths            int
	NumSteps            int
	ComputationTimeMs   int64
}

// RiskResult is RiskResult (spec §6): PriceResult plus per-asset Greeks.
type RiskResult struct {
	PriceResult
	Delta    map[string]float64
	DeltaPct map[string]float64
	Vega     map[string]float64
	Rho      float64
	HasRho   bool
}

// BumpConfig is bump_config (spec §6).
type BumpConfig struct {
	SpotBump    float64
	VolBump     float64
	IncludeRho  bool
	CentralDiff bool
}

func (b BumpConfig) toGreeks(cfg config.Config) greeks.BumpConfig {
	g := greeks.DefaultBumpConfig(cfg)
	if b.SpotBump > 0 {
		g.SpotBump = b.SpotBump
	}
	if b.VolBump > 0 {
		g.VolBump = b.VolBump
	}
	g.IncludeRho = b.IncludeRho
	g.CentralDiff = b.CentralDiff
	return g
}

func validateRunConfig(run RunConfig) error {
	if run.NumPaths < 1_000 || run.NumPaths > 1_000_000 {
		return fmt.Errorf("pricer: run_config.paths must be in [1000, 1000000], got %d", run.NumPaths)
	}
	if run.BlockSize != 0 && run.BlockSize < 1_000 {
		return fmt.Errorf("pricer: run_config.block_size must be >= 1000, got %d", run.BlockSize)
	}
	return nil
}

func resolveSeed(run RunConfig) uint64 {
	if run.Seed != nil {
		return *run.Seed
	}
	return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)).Uint64()
}

func resolveBlockSize(run RunConfig, cfg config.Config) int {
	if run.BlockSize > 0 {
		return run.BlockSize
	}
	return cfg.DefaultBlockSize
}

// buildPipeline validates the term sheet, builds the grid, the discount
// curve, and the path generator. ok is false (with a nil error) for an
// already-matured term sheet (spec §7 EmptyGrid): callers should short-
// circuit to a zero result without touching paths/engine at all.
func buildPipeline(ts product.TermSheet, cfg config.Config, log zerolog.Logger) (*grid.Grid, *paths.Generator, bool, error) {
	if err := ts.Validate(); err != nil {
		return nil, nil, false, fmt.Errorf("pricer: invalid term sheet: %w", err)
	}
	if ts.IsEmptyGrid() {
		return nil, nil, false, nil
	}

	g, err := grid.Build(ts, daycount.Act365F)
	if err != nil {
		return nil, nil, false, fmt.Errorf("pricer: building grid: %w", err)
	}
	curve, err := ts.DiscountCurve.Build(ts.Meta.ValuationDate)
	if err != nil {
		return nil, nil, false, fmt.Errorf("pricer: building discount curve: %w", err)
	}
	warn := logging.WarnFunc(log)
	gen, err := paths.NewGenerator(ts, g, curve, cfg, warn)
	if err != nil {
		return nil, nil, false, fmt.Errorf("pricer: building path generator: %w", err)
	}
	return g, gen, true, nil
}

// Price implements price(term_sheet, run_config) -> PriceResult.
func Price(ctx context.Context, ts product.TermSheet, run RunConfig, cfg config.Config, log zerolog.Logger) (PriceResult, error) {
	if err := validateRunConfig(run); err != nil {
		return PriceResult{}, err
	}
	start := time.Now()

	g, gen, ok, err := buildPipeline(ts, cfg, log)
	if err != nil {
		return PriceResult{}, err
	}
	if !ok {
		return PriceResult{ComputationTimeMs: elapsedMs(start)}, nil
	}

	blocks, err := gen.GenerateBlocks(ctx, run.NumPaths, resolveBlockSize(run, cfg), resolveSeed(run))
	if err != nil {
		return PriceResult{}, fmt.Errorf("pricer: generating paths: %w", err)
	}
	res, err := engine.Evaluate(ts, g, gen.Curve, blocks)
	if err != nil {
		return PriceResult{}, fmt.Errorf("pricer: evaluating payoff: %w", err)
	}

	return toPriceResult(res, elapsedMs(start)), nil
}

// Risk implements risk(term_sheet, run_config, bump_config) -> RiskResult.
func Risk(ctx context.Context, ts product.TermSheet, run RunConfig, bump BumpConfig, cfg config.Config, log zerolog.Logger) (RiskResult, error) {
	if err := validateRunConfig(run); err != nil {
		return RiskResult{}, err
	}
	start := time.Now()

	if err := ts.Validate(); err != nil {
		return RiskResult{}, fmt.Errorf("pricer: invalid term sheet: %w", err)
	}

	greeksRun := greeks.RunConfig{
		NumPaths:  run.NumPaths,
		BlockSize: resolveBlockSize(run, cfg),
		Seed:      resolveSeed(run),
	}
	gr, err := greeks.Compute(ctx, ts, daycount.Act365F, cfg, greeksRun, bump.toGreeks(cfg))
	if err != nil {
		return RiskResult{}, fmt.Errorf("pricer: computing risk: %w", err)
	}

	return RiskResult{
		PriceResult: toPriceResult(gr.Base, elapsedMs(start)),
		Delta:       gr.Delta,
		DeltaPct:    gr.DeltaPct,
		Vega:        gr.Vega,
		Rho:         gr.Rho,
		HasRho:      gr.RhoComputed,
	}, nil
}

// CashflowReport implements cashflow_report(term_sheet, run_config) ->
// list<Cashflow> (spec §3/§6).
func CashflowReport(ctx context.Context, ts product.TermSheet, run RunConfig, cfg config.Config, log zerolog.Logger) ([]engine.Cashflow, error) {
	if err := validateRunConfig(run); err != nil {
		return nil, err
	}

	g, gen, ok, err := buildPipeline(ts, cfg, log)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	blocks, err := gen.GenerateBlocks(ctx, run.NumPaths, resolveBlockSize(run, cfg), resolveSeed(run))
	if err != nil {
		return nil, fmt.Errorf("pricer: generating paths: %w", err)
	}
	res, err := engine.Evaluate(ts, g, gen.Curve, blocks)
	if err != nil {
		return nil, fmt.Errorf("pricer: evaluating payoff: %w", err)
	}
	return res.CashflowReport, nil
}

// PVDecomposition implements pv_decomposition(term_sheet, run_config) ->
// {coupon_pv, autocall_redemption_pv, maturity_redemption_pv, total_pv}.
func PVDecomposition(ctx context.Context, ts product.TermSheet, run RunConfig, cfg config.Config, log zerolog.Logger) (engine.PVDecomposition, error) {
	if err := validateRunConfig(run); err != nil {
		return engine.PVDecomposition{}, err
	}

	g, gen, ok, err := buildPipeline(ts, cfg, log)
	if err != nil {
		return engine.PVDecomposition{}, err
	}
	if !ok {
		return engine.PVDecomposition{}, nil
	}

	blocks, err := gen.GenerateBlocks(ctx, run.NumPaths, resolveBlockSize(run, cfg), resolveSeed(run))
	if err != nil {
		return engine.PVDecomposition{}, fmt.Errorf("pricer: generating paths: %w", err)
	}
	res, err := engine.Evaluate(ts, g, gen.Curve, blocks)
	if err != nil {
		return engine.PVDecomposition{}, fmt.Errorf("pricer: evaluating payoff: %w", err)
	}
	return res.PVDecomposition, nil
}

func toPriceResult(res engine.Result, elapsedMs int64) PriceResult {
	return PriceResult{
		PV:                  res.PV,
		PVStdError:          res.PVStdError,
		AutocallProbability: res.AutocallProbability,
		KIProbability:       res.KIProbability,
		ExpectedCouponCount: res.ExpectedCouponCount,
		ExpectedLifeYears:   res.ExpectedLifeYears,
		AutocallProbByDate:  res.AutocallProbByDate,
		NumPaths:            res.NumPaths,
		NumSteps:            res.NumSteps,
		ComputationTimeMs:   elapsedMs,
	}
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
