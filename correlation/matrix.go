// Package correlation builds, validates, PSD-repairs, and Cholesky-factors
// the asset correlation matrix (spec §4.2).
//
// The eigendecomposition used for PSD repair is a classical Jacobi rotation
// over dense symmetric matrices — no linear-algebra package appears
// anywhere in the retrieved example pack, so this stays on stdlib math, the
// same way molib's own Newton-Raphson solvers (bond/yield.go) are plain
// math with no numerical library underneath.
package correlation

import (
	"fmt"
	"math"

	"github.com/meenmo/wopricer/config"
)

// Matrix is a dense, row-major square matrix.
type Matrix [][]float64

// NewIdentity returns the n x n identity matrix.
func NewIdentity(n int) Matrix {
	m := make(Matrix, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	return m
}

// BuildFromFull copies a caller-supplied full matrix, failing if it is not
// square or does not match the expected asset count.
func BuildFromFull(full [][]float64, n int) (Matrix, error) {
	if len(full) != n {
		return nil, fmt.Errorf("correlation: full matrix has %d rows, want %d", len(full), n)
	}
	m := make(Matrix, n)
	for i, row := range full {
		if len(row) != n {
			return nil, fmt.Errorf("correlation: full matrix row %d has %d entries, want %d", i, len(row), n)
		}
		m[i] = append([]float64(nil), row...)
	}
	return m, nil
}

// BuildFromPairwise builds an N x N matrix from a pairwise map keyed
// "ASSET_A_ASSET_B" (spec §6); the diagonal defaults to 1 and duplicate
// pair entries are last-wins, consistent with map iteration semantics in
// Go since a later insert into the same key simply overwrites it.
func BuildFromPairwise(ids []string, pairwise map[string]float64) (Matrix, error) {
	n := len(ids)
	idx := make(map[string]int, n)
	for i, id := range ids {
		idx[id] = i
	}
	m := NewIdentity(n)
	for key, rho := range pairwise {
		a, b, err := splitPairKey(key, idx)
		if err != nil {
			return nil, err
		}
		m[a][b] = rho
		m[b][a] = rho
	}
	return m, nil
}

func splitPairKey(key string, idx map[string]int) (a, b int, err error) {
	for sep := 1; sep < len(key); sep++ {
		if key[sep] != '_' {
			continue
		}
		left, right := key[:sep], key[sep+1:]
		ai, aok := idx[left]
		bi, bok := idx[right]
		if aok && bok {
			return ai, bi, nil
		}
	}
	return 0, 0, fmt.Errorf("correlation: pairwise key %q does not match any two underlying ids", key)
}

// Repair validates and, if necessary, repairs a correlation matrix in
// place of a copy: symmetrises, forces diagonal ones, clips entries to
// [-1, 1], and clips negative eigenvalues so the matrix is positive
// semi-definite (spec §4.2). warn is called with a human-readable message
// whenever a repair step fires; pass nil to suppress.
func Repair(m Matrix, cfg config.Config, warn func(string)) (Matrix, error) {
	n := len(m)
	if n == 0 {
		return nil, fmt.Errorf("correlation: empty matrix")
	}
	if warn == nil {
		warn = func(string) {}
	}

	out := make(Matrix, n)
	for i := range m {
		out[i] = append([]float64(nil), m[i]...)
	}

	asymmetric := false
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if out[i][j] != out[j][i] {
				asymmetric = true
				avg := (out[i][j] + out[j][i]) / 2
				out[i][j], out[j][i] = avg, avg
			}
		}
	}
	if asymmetric {
		warn("correlation: matrix was not symmetric, symmetrised")
	}

	badDiag := false
	for i := 0; i < n; i++ {
		if out[i][i] != 1 {
			badDiag = true
			out[i][i] = 1
		}
	}
	if badDiag {
		warn("correlation: diagonal was not all ones, overwritten")
	}

	clipped := false
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if out[i][j] > 1 {
				out[i][j] = 1
				clipped = true
			} else if out[i][j] < -1 {
				out[i][j] = -1
				clipped = true
			}
		}
	}
	if clipped {
		warn("correlation: entries outside [-1, 1] were clipped")
	}

	vals, vecs := jacobiEigen(out)
	minEig := vals[0]
	for _, v := range vals[1:] {
		if v < minEig {
			minEig = v
		}
	}
	if minEig < -cfg.CorrelationClipEpsilon {
		warn(fmt.Sprintf("correlation: smallest eigenvalue %.3e below -%.3e, clipping and reconstructing", minEig, cfg.CorrelationClipEpsilon))
		for i, v := range vals {
			if v < cfg.CorrelationClipEpsilon {
				vals[i] = cfg.CorrelationClipEpsilon
			}
		}
		out = reconstruct(vals, vecs)
		renormaliseDiagonal(out)
	}

	return out, nil
}

// renormaliseDiagonal rescales rows/columns so the diagonal is exactly 1
// after an eigen-reconstruction (spec §4.2, and invariant #4 in spec §8).
func renormaliseDiagonal(m Matrix) {
	n := len(m)
	scale := make([]float64, n)
	for i := 0; i < n; i++ {
		if m[i][i] <= 0 {
			scale[i] = 1
			continue
		}
		scale[i] = 1 / math.Sqrt(m[i][i])
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m[i][j] *= scale[i] * scale[j]
		}
	}
	for i := 0; i < n; i++ {
		m[i][i] = 1
	}
}

func reconstruct(vals []float64, vecs Matrix) Matrix {
	n := len(vals)
	out := make(Matrix, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for k := 0; k < n; k++ {
		lambda := vals[k]
		if lambda == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			vik := vecs[i][k]
			if vik == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				out[i][j] += lambda * vik * vecs[j][k]
			}
		}
	}
	return out
}

// Cholesky returns the lower-triangular factor L with L*L^T = m. On
// failure (non-PSD even after Repair clipped it to within epsilon — e.g.
// the clip epsilon itself still leaves a borderline-singular matrix), it
// retries once after adding CholeskyRetryEpsilon*I (spec §4.2, §7
// NumericRepair). A second failure is FatalNumeric.
func Cholesky(m Matrix, cfg config.Config, warn func(string)) (Matrix, error) {
	l, err := cholesky(m)
	if err == nil {
		return l, nil
	}
	if warn == nil {
		warn = func(string) {}
	}
	warn(fmt.Sprintf("correlation: Cholesky failed (%v), retrying with epsilon*I", err))

	n := len(m)
	bumped := make(Matrix, n)
	for i := range m {
		bumped[i] = append([]float64(nil), m[i]...)
		bumped[i][i] += cfg.CholeskyRetryEpsilon
	}
	l, err = cholesky(bumped)
	if err != nil {
		return nil, fmt.Errorf("correlation: Cholesky failed after epsilon retry: %w", err)
	}
	return l, nil
}

func cholesky(m Matrix) (Matrix, error) {
	n := len(m)
	l := make(Matrix, n)
	for i := range l {
		l[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := m[i][j]
			for k := 0; k < j; k++ {
				sum -= l[i][k] * l[j][k]
			}
			if i == j {
				if sum <= 0 {
					return nil, fmt.Errorf("non-positive pivot at (%d,%d)", i, j)
				}
				l[i][j] = math.Sqrt(sum)
			} else {
				l[i][j] = sum / l[j][j]
			}
		}
	}
	return l, nil
}

// Correlate applies a Cholesky factor to a vector of independent standard
// normals, returning correlated normals x = L*z (equivalent to the spec's
// row-vector convention Z_corr = Z . L^T).
func Correlate(l Matrix, z []float64) []float64 {
	n := len(l)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j <= i; j++ {
			sum += l[i][j] * z[j]
		}
		out[i] = sum
	}
	return out
}
