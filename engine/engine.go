// Package engine walks each simulated path through the deterministic
// autocall -> coupon -> memory-update order (spec §4.5) and aggregates the
// results into a price, a set of Greeks-ready diagnostics, and cashflow
// reports.
//
// Each block goroutine accumulates into its own local scalars only; nothing
// is shared or mutated across goroutines while a block runs. After
// errgroup.Group.Wait(), the per-block partials are reduced sequentially in
// block order. Float64 addition is not associative, so summing results from
// concurrent goroutines directly (whether through a mutex or an atomic CAS
// loop) makes the total's low bits depend on scheduler interleaving — which
// would violate the bit-exact reproducibility spec §8 requires for a fixed
// seed. Reducing single-threaded in a fixed block order keeps the sum a
// pure function of (term sheet, seed, block partition).
package engine

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meenmo/wopricer/grid"
	"github.com/meenmo/wopricer/paths"
	"github.com/meenmo/wopricer/product"
	"github.com/meenmo/wopricer/rates"
)

// CashflowType enumerates the Cashflow.type values (spec §3).
type CashflowType string

const (
	CashflowCoupon             CashflowType = "coupon"
	CashflowAutocallRedemption CashflowType = "autocall_redemption"
	CashflowMaturityNoKI       CashflowType = "maturity_no_ki"
	CashflowMaturityWithKI     CashflowType = "maturity_with_ki"
)

// Cashflow is one expected cashflow row (spec §3).
type Cashflow struct {
	Date           time.Time
	PaymentDate    time.Time
	Type           CashflowType
	ExpectedAmount float64
	DiscountFactor float64
	PVContribution float64
	Probability    float64
}

// PVDecomposition splits total PV by cashflow source (spec §6
// pv_decomposition). TotalPV equals the sum of the other three within MC
// error (spec §8 property 7).
type PVDecomposition struct {
	CouponPV             float64
	AutocallRedemptionPV float64
	MaturityRedemptionPV float64
	TotalPV              float64
}

// Result is the aggregate simulation output (spec §4.5 Aggregation, §6
// PriceResult).
type Result struct {
	PV                  float64
	PVStdError          float64
	AutocallProbability float64
	KIProbability       float64
	ExpectedCouponCount float64
	ExpectedLifeYears   float64
	AutocallProbByDate  map[string]float64
	CouponProbByDate    map[string]float64
	NumPaths            int
	NumSteps            int
	CashflowReport      []Cashflow
	PVDecomposition     PVDecomposition
}

// blockAccum holds one block goroutine's local partial sums. Every field is
// touched only by the goroutine that produced it; combining blockAccum
// values into the final totals happens afterward, single-threaded, in block
// order (see Evaluate).
type blockAccum struct {
	sumPV, sumPV2                             float64
	sumCouponPV, sumAutocallPV, sumMaturityPV float64
	sumCouponCount, sumLifeYears              float64
	autocallCount, kiCount                    int64
	noKICountAtMaturity, kiCountAtMaturity    int64
	noKIAmountSum, kiAmountSum                float64
	autocallDateCount, couponDateCount        []int64
	autocallAmountSum, couponAmountSum        []float64
	numPaths                                  int
}

func newBlockAccum(nObs int) blockAccum {
	return blockAccum{
		autocallDateCount: make([]int64, nObs),
		couponDateCount:   make([]int64, nObs),
		autocallAmountSum: make([]float64, nObs),
		couponAmountSum:   make([]float64, nObs),
	}
}

// Evaluate runs the per-path payoff logic over every block and aggregates
// the result. blocks must have been generated from g and curve.
func Evaluate(ts product.TermSheet, g *grid.Grid, curve *rates.Curve, blocks []*paths.Block) (Result, error) {
	nObs := ts.Schedules.Len()
	if nObs <= 0 {
		return Result{}, fmt.Errorf("engine: term sheet has no observation schedule")
	}

	obsStepIdx := make([]int, nObs)
	obsDF := make([]float64, nObs)
	for i, obsDate := range ts.Schedules.ObservationDates {
		idx, ok := g.ObservationStepIndex(obsDate)
		if !ok {
			return Result{}, fmt.Errorf("engine: observation date %s missing from grid", obsDate.Format("2006-01-02"))
		}
		obsStepIdx[i] = idx
		obsDF[i] = curve.DF(ts.Schedules.PaymentDates[i])
	}
	maturityIdx := g.MaturityIndex
	maturityDF := curve.DF(ts.Meta.MaturityPaymentDate)

	notional := ts.Meta.Notional
	worstOf := ts.Payoff.WorstOf

	evaluateBlock := func(block *paths.Block) blockAccum {
		acc := newBlockAccum(nObs)
		acc.numPaths = block.NumPaths()

		for p := 0; p < block.NumPaths(); p++ {
			spots := block.Spots[p]
			initial := spots[0]

			alive := true
			unpaidCoupons := 0.0
			totalPV := 0.0
			couponPV := 0.0
			autocallPV := 0.0
			maturityPV := 0.0
			couponCount := 0.0
			autocallStep := -1

			for i := 0; i < nObs && alive; i++ {
				k := obsStepIdx[i]
				w := performance(spots[k], initial, worstOf)
				df := obsDF[i]

				if w >= ts.Schedules.AutocallLevels[i] {
					amt := ts.Payoff.RedemptionIfAutocall * notional
					redemptionAmt := amt * df
					totalPV += redemptionAmt
					autocallPV += redemptionAmt
					eventAmt := redemptionAmt
					if ts.Payoff.CouponOnAutocall {
						cAmt := (ts.Schedules.CouponRates[i] + unpaidCoupons) * notional
						couponAmt := cAmt * df
						totalPV += couponAmt
						couponPV += couponAmt
						// folded into the autocall row's amount (DESIGN.md
						// decision 6b): both legs settle on the same date.
						eventAmt += couponAmt
					}
					alive = false
					autocallStep = k
					acc.autocallDateCount[i]++
					acc.autocallAmountSum[i] += eventAmt
					continue
				}

				if w >= ts.Schedules.CouponBarriers[i] {
					var cAmt float64
					if ts.Payoff.CouponMemory {
						cAmt = (ts.Schedules.CouponRates[i] + unpaidCoupons) * notional
						unpaidCoupons = 0
					} else {
						cAmt = ts.Schedules.CouponRates[i] * notional
					}
					couponAmt := cAmt * df
					totalPV += couponAmt
					couponPV += couponAmt
					couponCount++
					acc.couponDateCount[i]++
					acc.couponAmountSum[i] += couponAmt
				} else if ts.Payoff.CouponMemory {
					unpaidCoupons += ts.Schedules.CouponRates[i]
				}
			}

			if block.KIState[p] {
				acc.kiCount++
			}

			var lifeYears float64
			if alive {
				wT := performance(spots[maturityIdx], initial, worstOf)
				var amt float64
				if !block.KIState[p] {
					amt = ts.Payoff.RedemptionIfNoKI * notional
					acc.noKICountAtMaturity++
					acc.noKIAmountSum += amt * maturityDF
				} else {
					switch ts.Payoff.RedemptionIfKI {
					case product.KIWorstPerformance:
						amt = wT * notional
					case product.KIFixed:
						amt = ts.Payoff.KIRedemptionFloor * notional
					case product.KIFloored:
						amt = maxFloat(wT, ts.Payoff.KIRedemptionFloor) * notional
					}
					acc.kiCountAtMaturity++
					acc.kiAmountSum += amt * maturityDF
				}
				totalPV += amt * maturityDF
				maturityPV += amt * maturityDF
				lifeYears = g.Steps[maturityIdx].TimeYears
			} else {
				acc.autocallCount++
				lifeYears = g.Steps[autocallStep].TimeYears
			}

			acc.sumPV += totalPV
			acc.sumPV2 += totalPV * totalPV
			acc.sumCouponPV += couponPV
			acc.sumAutocallPV += autocallPV
			acc.sumMaturityPV += maturityPV
			acc.sumCouponCount += couponCount
			acc.sumLifeYears += lifeYears
		}

		return acc
	}

	blockResults := make([]blockAccum, len(blocks))
	var eg errgroup.Group
	for bi, block := range blocks {
		bi, block := bi, block
		eg.Go(func() error {
			blockResults[bi] = evaluateBlock(block)
			return nil
		})
	}
	_ = eg.Wait()

	total := newBlockAccum(nObs)
	numPaths := 0
	for _, acc := range blockResults {
		total.sumPV += acc.sumPV
		total.sumPV2 += acc.sumPV2
		total.sumCouponPV += acc.sumCouponPV
		total.sumAutocallPV += acc.sumAutocallPV
		total.sumMaturityPV += acc.sumMaturityPV
		total.sumCouponCount += acc.sumCouponCount
		total.sumLifeYears += acc.sumLifeYears
		total.autocallCount += acc.autocallCount
		total.kiCount += acc.kiCount
		total.noKICountAtMaturity += acc.noKICountAtMaturity
		total.kiCountAtMaturity += acc.kiCountAtMaturity
		total.noKIAmountSum += acc.noKIAmountSum
		total.kiAmountSum += acc.kiAmountSum
		for i := 0; i < nObs; i++ {
			total.autocallDateCount[i] += acc.autocallDateCount[i]
			total.couponDateCount[i] += acc.couponDateCount[i]
			total.autocallAmountSum[i] += acc.autocallAmountSum[i]
			total.couponAmountSum[i] += acc.couponAmountSum[i]
		}
		numPaths += acc.numPaths
	}

	n := float64(numPaths)
	meanPV := total.sumPV / n
	meanPV2 := total.sumPV2 / n
	variance := meanPV2 - meanPV*meanPV
	if variance < 0 {
		variance = 0
	}
	sampleVariance := variance * n / (n - 1)
	stdErr := 0.0
	if numPaths > 1 {
		stdErr = math.Sqrt(sampleVariance) / math.Sqrt(n)
	}

	autocallProbByDate := make(map[string]float64, nObs)
	couponProbByDate := make(map[string]float64, nObs)
	cashflows := make([]Cashflow, 0, nObs*2+2)
	for i := 0; i < nObs; i++ {
		acCnt := total.autocallDateCount[i]
		cpCnt := total.couponDateCount[i]
		dateStr := ts.Schedules.ObservationDates[i].Format("2006-01-02")
		autocallProbByDate[dateStr] = float64(acCnt) / n
		couponProbByDate[dateStr] = float64(cpCnt) / n

		if acCnt > 0 {
			sum := total.autocallAmountSum[i]
			prob := float64(acCnt) / n
			cashflows = append(cashflows, Cashflow{
				Date:           ts.Schedules.ObservationDates[i],
				PaymentDate:    ts.Schedules.PaymentDates[i],
				Type:           CashflowAutocallRedemption,
				ExpectedAmount: sum / float64(acCnt) / obsDF[i],
				DiscountFactor: obsDF[i],
				PVContribution: sum / n,
				Probability:    prob,
			})
		}
		if cpCnt > 0 {
			sum := total.couponAmountSum[i]
			prob := float64(cpCnt) / n
			cashflows = append(cashflows, Cashflow{
				Date:           ts.Schedules.ObservationDates[i],
				PaymentDate:    ts.Schedules.PaymentDates[i],
				Type:           CashflowCoupon,
				ExpectedAmount: sum / float64(cpCnt) / obsDF[i],
				DiscountFactor: obsDF[i],
				PVContribution: sum / n,
				Probability:    prob,
			})
		}
	}

	if total.noKICountAtMaturity > 0 {
		sum := total.noKIAmountSum
		cnt := total.noKICountAtMaturity
		cashflows = append(cashflows, Cashflow{
			Date:           ts.Meta.MaturityDate,
			PaymentDate:    ts.Meta.MaturityPaymentDate,
			Type:           CashflowMaturityNoKI,
			ExpectedAmount: sum / float64(cnt) / maturityDF,
			DiscountFactor: maturityDF,
			PVContribution: sum / n,
			Probability:    float64(cnt) / n,
		})
	}
	if total.kiCountAtMaturity > 0 {
		sum := total.kiAmountSum
		cnt := total.kiCountAtMaturity
		cashflows = append(cashflows, Cashflow{
			Date:           ts.Meta.MaturityDate,
			PaymentDate:    ts.Meta.MaturityPaymentDate,
			Type:           CashflowMaturityWithKI,
			ExpectedAmount: sum / float64(cnt) / maturityDF,
			DiscountFactor: maturityDF,
			PVContribution: sum / n,
			Probability:    float64(cnt) / n,
		})
	}

	decomposition := PVDecomposition{
		CouponPV:             total.sumCouponPV / n,
		AutocallRedemptionPV: total.sumAutocallPV / n,
		MaturityRedemptionPV: total.sumMaturityPV / n,
		TotalPV:              meanPV,
	}

	return Result{
		PV:                  meanPV,
		PVStdError:          stdErr,
		AutocallProbability: float64(total.autocallCount) / n,
		KIProbability:       float64(total.kiCount) / n,
		ExpectedCouponCount: total.sumCouponCount / n,
		ExpectedLifeYears:   total.sumLifeYears / n,
		AutocallProbByDate:  autocallProbByDate,
		CouponProbByDate:    couponProbByDate,
		NumPaths:            numPaths,
		NumSteps:            len(g.Steps),
		CashflowReport:      cashflows,
		PVDecomposition:     decomposition,
	}, nil
}

// performance computes worst-of (or best-of) relative performance across
// assets at a given step (spec §4.5).
func performance(stepSpots, initial []float32, worstOf bool) float64 {
	best := float64(stepSpots[0]) / float64(initial[0])
	for a := 1; a < len(stepSpots); a++ {
		r := float64(stepSpots[a]) / float64(initial[a])
		if worstOf {
			if r < best {
				best = r
			}
		} else if r > best {
			best = r
		}
	}
	return best
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
