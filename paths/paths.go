// Package paths generates correlated GBM asset paths over a SimulationGrid
// (spec §4.4): piecewise vol/rate diffusion, discrete dividend jumps, and
// Brownian-bridge or discrete down-KI barrier monitoring.
//
// Block partitioning and the errgroup fan-out below follow the data-
// parallel worker-pool shape used elsewhere in the pack for CPU-bound batch
// work (golang.org/x/sync/errgroup appears in the go.mod of more than one
// retrieved repo for exactly this kind of bounded concurrent fan-out); each
// block derives its own disjoint RNG sub-stream (rng.NewStream) so results
// stay reproducible no matter how many blocks run concurrently (spec §5).
package paths

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meenmo/wopricer/config"
	"github.com/meenmo/wopricer/correlation"
	"github.com/meenmo/wopricer/grid"
	"github.com/meenmo/wopricer/product"
	"github.com/meenmo/wopricer/rates"
	"github.com/meenmo/wopricer/rng"
)

// Block is one block's SimulatedPaths (spec §3): spots in reduced (32-bit)
// precision, KI state/step per path.
type Block struct {
	Spots   [][][]float32 // [path][step][asset]
	KIState []bool
	KIStep  []int
}

// NumPaths reports the block's path count.
func (b *Block) NumPaths() int { return len(b.Spots) }

// Generator holds the read-only, precomputed inputs shared by every block:
// the term sheet, its event grid, the Cholesky factor of its correlation
// matrix, and the discount curve (for the short rate feeding drift).
type Generator struct {
	TermSheet product.TermSheet
	Grid      *grid.Grid
	Cholesky  correlation.Matrix // nil for a single-asset term sheet
	Curve     *rates.Curve
	Config    config.Config
}

// NewGenerator validates and precomputes the Cholesky factor from the term
// sheet's correlation spec, so every block reuses the same factor instead
// of re-deriving it per block.
func NewGenerator(ts product.TermSheet, g *grid.Grid, curve *rates.Curve, cfg config.Config, warn func(string)) (*Generator, error) {
	gen := &Generator{TermSheet: ts, Grid: g, Curve: curve, Config: cfg}
	n := len(ts.Underlyings)
	if n > 1 {
		var corr correlation.Matrix
		var err error
		if ts.Correlation.Full != nil {
			corr, err = correlation.BuildFromFull(ts.Correlation.Full, n)
		} else {
			corr, err = correlation.BuildFromPairwise(ts.AssetIDs(), ts.Correlation.Pairwise)
		}
		if err != nil {
			return nil, fmt.Errorf("paths: building correlation matrix: %w", err)
		}
		corr, err = correlation.Repair(corr, cfg, warn)
		if err != nil {
			return nil, fmt.Errorf("paths: repairing correlation matrix: %w", err)
		}
		chol, err := correlation.Cholesky(corr, cfg, warn)
		if err != nil {
			return nil, fmt.Errorf("paths: non-PSD correlation after repair: %w", err)
		}
		gen.Cholesky = chol
	}
	return gen, nil
}

// GenerateBlocks partitions numPaths into blocks of at most blockSize and
// runs them concurrently via errgroup, returning one Block per partition in
// deterministic order (spec §5: block order never affects which RNG
// sub-stream a path draws from, only how the results are laid out).
func (g *Generator) GenerateBlocks(ctx context.Context, numPaths, blockSize int, baseSeed uint64) ([]*Block, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("paths: block_size must be >= 1")
	}
	numBlocks := (numPaths + blockSize - 1) / blockSize
	blocks := make([]*Block, numBlocks)

	eg, _ := errgroup.WithContext(ctx)
	for bi := 0; bi < numBlocks; bi++ {
		bi := bi
		start := bi * blockSize
		size := blockSize
		if start+size > numPaths {
			size = numPaths - start
		}
		eg.Go(func() error {
			b, err := g.generateBlock(size, bi, baseSeed)
			if err != nil {
				return err
			}
			blocks[bi] = b
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (g *Generator) generateBlock(blockSize, blockIndex int, baseSeed uint64) (*Block, error) {
	ts := g.TermSheet
	nAssets := len(ts.Underlyings)
	nSteps := len(g.Grid.Steps)

	initial := make([]float64, nAssets)
	for a, u := range ts.Underlyings {
		if u.Spot <= 0 {
			return nil, fmt.Errorf("paths: non-positive initial spot for %s", u.ID)
		}
		initial[a] = u.Spot
	}

	var barrier []float64
	if ts.KIBarrier != nil {
		barrier = make([]float64, nAssets)
		for a := range ts.Underlyings {
			barrier[a] = ts.KIBarrier.Level * initial[a]
		}
	}

	normStream := rng.NewStream(baseSeed, blockIndex, rng.DrawNormal)
	uniStream := rng.NewStream(baseSeed, blockIndex, rng.DrawKIUniform)

	block := &Block{
		Spots:   make([][][]float32, blockSize),
		KIState: make([]bool, blockSize),
		KIStep:  make([]int, blockSize),
	}

	z := make([]float64, nAssets)
	cur := make([]float64, nAssets)
	for p := 0; p < blockSize; p++ {
		pathSpots := make([][]float32, nSteps)
		copy(cur, initial)
		pathSpots[0] = toFloat32(cur)

		kiState := false
		kiStep := -1

		for k := 1; k < nSteps; k++ {
			step := g.Grid.Steps[k]
			dt := step.Dt

			if dt > 0 {
				normStream.NormalVector(z)
				var zcorr []float64
				if g.Cholesky != nil {
					zcorr = correlation.Correlate(g.Cholesky, z)
				} else {
					zcorr = z
				}
				rShort := g.Curve.RateAt(step.Date)
				for a, u := range ts.Underlyings {
					sigma := u.Vol.SigmaAt(step.Date)
					q := u.Dividend.YieldAt(step.Date)
					drift := (rShort - q - 0.5*sigma*sigma) * dt
					diffusion := sigma * math.Sqrt(dt) * zcorr[a]
					cur[a] = math.Exp(math.Log(cur[a]) + drift + diffusion)
				}
			}

			if step.HasTag(grid.TagExDividend) {
				for a, u := range ts.Underlyings {
					if _, ok := g.Grid.ExDividendStepIndex(u.ID, step.Date); !ok {
						continue
					}
					amount := dividendAmountOn(u, step.Date)
					cur[a] = math.Max(cur[a]-amount, g.Config.DividendFloor)
				}
			}

			if barrier != nil {
				hitThisStep := false
				for a, u := range ts.Underlyings {
					sigma := u.Vol.SigmaAt(step.Date)
					hit := g.checkKIHit(ts.KIBarrier, step, dt, sigma, float64(pathSpots[k-1][a]), cur[a], barrier[a], uniStream)
					if hit {
						hitThisStep = true
					}
				}
				if hitThisStep && !kiState {
					kiState = true
					kiStep = k
				}
			}

			pathSpots[k] = toFloat32(cur)
		}

		block.Spots[p] = pathSpots
		block.KIState[p] = kiState
		block.KIStep[p] = kiStep
	}

	return block, nil
}

// checkKIHit evaluates the down-KI condition for one asset at step k,
// following spec §4.4.3 exactly: continuous monitoring uses the Brownian-
// bridge hit probability between the previous and current spot; discrete
// monitoring only checks the endpoint, and only on observation dates.
func (g *Generator) checkKIHit(kib *product.KIBarrier, step grid.Step, dt, sigma, prev, cur, H float64, uniStream *rng.Stream) bool {
	// One uniform per (path, step, asset) is drawn whenever dt > 0,
	// regardless of monitoring mode, KI state, or whether this segment turns
	// out to be a certain hit. The draw itself is state-independent so the
	// stream position stays a pure function of (path, step, asset); only its
	// use is conditional (spec §4.4.3, §4.6 CRN).
	var u float64
	if dt > 0 {
		u = uniStream.Float64()
	}

	if kib.Monitoring == product.MonitoringDiscrete {
		if !step.HasTag(grid.TagObservation) {
			return false
		}
		return cur <= H
	}

	if dt <= 0 {
		return prev <= H || cur <= H
	}

	if prev <= H || cur <= H {
		return true
	}
	if sigma <= 0 || dt*sigma*sigma <= g.Config.MinVariance {
		return false
	}
	pHit := math.Exp(-2 * math.Log(prev/H) * math.Log(cur/H) / (sigma * sigma * dt))
	if pHit < 0 {
		pHit = 0
	} else if pHit > 1 {
		pHit = 1
	}
	return u < pHit
}

func dividendAmountOn(u product.Underlying, d time.Time) float64 {
	for _, pt := range u.Dividend.Schedule {
		if pt.Date.Equal(d) {
			return pt.Amount
		}
	}
	return 0
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
