// Package config holds solver and run defaults shared across the engine.
//
// These were previously scattered as magic numbers in molib's curve
// bootstrap; here they cover the pricer's own numeric knobs instead
// (correlation repair, Cholesky retry, default bump sizes, block size).
package config

// Config holds solver and simulation parameters.
type Config struct {
	// CorrelationClipEpsilon is the floor applied to eigenvalues when
	// repairing a non-PSD correlation matrix (spec §4.2): when the smallest
	// eigenvalue is below -CorrelationClipEpsilon, every eigenvalue is
	// replaced by max(lambda, CorrelationClipEpsilon).
	CorrelationClipEpsilon float64

	// CholeskyRetryEpsilon scales the identity matrix added to a correlation
	// matrix when the first Cholesky factorization fails.
	CholeskyRetryEpsilon float64

	// DefaultBlockSize is the path-block size used when RunConfig.BlockSize
	// is left at zero.
	DefaultBlockSize int

	// DefaultDeltaBump is the relative spot bump for Delta (spec §4.6).
	DefaultDeltaBump float64

	// DefaultVegaBump is the absolute vol-point bump for Vega (spec §4.6).
	DefaultVegaBump float64

	// DefaultRhoBump is the absolute rate bump for Rho (spec §4.6).
	DefaultRhoBump float64

	// MinVariance is the floor for sigma^2*dt below which the Brownian-bridge
	// hit probability is treated as 0 in the interior (spec §4.4.5).
	MinVariance float64

	// DividendFloor is the spot floor applied after a discrete dividend
	// subtraction (spec §4.4.2).
	DividendFloor float64
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	CorrelationClipEpsilon: 1e-8,
	CholeskyRetryEpsilon:   1e-10,
	DefaultBlockSize:       10_000,
	DefaultDeltaBump:       0.01,
	DefaultVegaBump:        0.01,
	DefaultRhoBump:         1e-4,
	MinVariance:            1e-14,
	DividendFloor:          0.01,
}

// cfg is the active configuration. Defaults to DefaultConfig.
var cfg = DefaultConfig

// SetConfig replaces the active configuration.
func SetConfig(c Config) {
	cfg = c
}

// GetConfig returns the active configuration.
func GetConfig() Config {
	return cfg
}
