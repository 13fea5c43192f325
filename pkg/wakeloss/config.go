package wakeloss

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/openwind/wakeloss/pkg/freestream"
	"github.com/openwind/wakeloss/pkg/stats"
	"github.com/openwind/wakeloss/pkg/windbin"
)

// Range is an analysis parameter that is either a fixed scalar or a (low,
// high) interval. Deterministic runs use the central value; Monte Carlo
// trials sample uniformly within the interval.
type Range struct {
	Lo float64
	Hi float64
}

// Scalar returns a fixed-value Range.
func Scalar(v float64) Range { return Range{Lo: v, Hi: v} }

// Interval returns a (low, high) Range.
func Interval(lo, hi float64) Range { return Range{Lo: lo, Hi: hi} }

// IsScalar reports whether the range collapses to one value.
func (r Range) IsScalar() bool { return r.Lo == r.Hi }

// Mid returns the central value.
func (r Range) Mid() float64 { return (r.Lo + r.Hi) / 2 }

// Sample draws uniformly from the interval; a scalar returns itself.
func (r Range) Sample(rng *rand.Rand) float64 {
	if r.IsScalar() {
		return r.Lo
	}
	return r.Lo + rng.Float64()*(r.Hi-r.Lo)
}

// SampleInt draws an integer uniformly from [Lo, Hi].
func (r Range) SampleInt(rng *rand.Rand) int {
	lo, hi := int(r.Lo), int(r.Hi)
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

// Config is the full set of parameters governing one analysis run. It is
// immutable once the run starts: Run applies overrides by producing a fresh
// value, never by mutating shared state.
type Config struct {
	// WindDirectionAssetIDs are the candidate turbines used for the plant
	// wind-direction reference and freestream selection. Empty means infer:
	// every asset in the observation series is a candidate.
	WindDirectionAssetIDs []string

	UQ     bool
	NumSim int
	Seed   uint64

	StartDate time.Time // POR window start; zero = open
	EndDate   time.Time // POR window end; zero = open
	EndDateLT time.Time // end of the reanalysis window; zero = end of data

	WDBinWidth            float64 // degrees
	WDBinWidthUQHalfWidth float64 // per-trial perturbation half-width, degrees
	WindBinMADThresh      float64 // outlier rejection threshold, in MADs
	MinBinSamples         int     // sector viability floor

	// FreestreamSectorWidth is the symmetric freestream sector width centered
	// on the prevailing wind direction; an interval is sampled per UQ trial.
	FreestreamSectorWidth Range
	// FreestreamSectorBounds, when set, overrides the width computation with
	// explicit (low, high) direction bounds.
	FreestreamSectorBounds    *freestream.SectorBounds
	FreestreamDeficitThresh   float64
	FreestreamPowerMethod     stats.Method
	FreestreamWindSpeedMethod stats.Method

	CorrectForDerating bool

	NumYearsLT                Range
	NoWakesWSThreshLTCorr     float64 // m/s
	AssumeNoWakesHighWSLTCorr bool
	WSBinWidthLTCorr          float64 // m/s
	ReanalysisProducts        []string

	CorrectForWSHeterogeneity bool

	// BootstrapBlock is the block length for the per-trial block resample of
	// POR timestamps.
	BootstrapBlock time.Duration
}

// DefaultConfig returns the defaults for the given mode. UQ mode widens the
// freestream sector width and LT horizon into sampling intervals.
func DefaultConfig(uq bool) Config {
	cfg := Config{
		UQ:                        uq,
		Seed:                      42,
		WDBinWidth:                5,
		WDBinWidthUQHalfWidth:     2,
		WindBinMADThresh:          7,
		MinBinSamples:             windbin.DefaultMinSamples,
		FreestreamSectorWidth:     Scalar(90),
		FreestreamDeficitThresh:   freestream.DefaultDeficitThresh,
		FreestreamPowerMethod:     stats.Mean,
		FreestreamWindSpeedMethod: stats.Mean,
		CorrectForDerating:        true,
		NumYearsLT:                Scalar(20),
		NoWakesWSThreshLTCorr:     13,
		AssumeNoWakesHighWSLTCorr: true,
		WSBinWidthLTCorr:          1,
		ReanalysisProducts:        []string{"merra2", "era5"},
		BootstrapBlock:            24 * time.Hour,
	}
	if uq {
		cfg.FreestreamSectorWidth = Interval(50, 110)
		cfg.NumYearsLT = Interval(10, 20)
	}
	return cfg
}

// Overrides is the per-invocation subset of Config that Run accepts. Nil
// fields keep the constructed value; set fields replace it in a fresh copy.
type Overrides struct {
	WindDirectionAssetIDs []string
	NumSim                *int
	Seed                  *uint64

	StartDate *time.Time
	EndDate   *time.Time
	EndDateLT *time.Time

	WDBinWidth       *float64
	WindBinMADThresh *float64

	FreestreamSectorWidth     *Range
	FreestreamSectorBounds    *freestream.SectorBounds
	FreestreamDeficitThresh   *float64
	FreestreamPowerMethod     *stats.Method
	FreestreamWindSpeedMethod *stats.Method

	CorrectForDerating *bool

	NumYearsLT                *Range
	NoWakesWSThreshLTCorr     *float64
	AssumeNoWakesHighWSLTCorr *bool
	ReanalysisProducts        []string

	CorrectForWSHeterogeneity *bool
}

// With returns a copy of c with the overrides applied.
func (c Config) With(o *Overrides) Config {
	if o == nil {
		return c
	}
	if o.WindDirectionAssetIDs != nil {
		c.WindDirectionAssetIDs = o.WindDirectionAssetIDs
	}
	if o.NumSim != nil {
		c.NumSim = *o.NumSim
	}
	if o.Seed != nil {
		c.Seed = *o.Seed
	}
	if o.StartDate != nil {
		c.StartDate = *o.StartDate
	}
	if o.EndDate != nil {
		c.EndDate = *o.EndDate
	}
	if o.EndDateLT != nil {
		c.EndDateLT = *o.EndDateLT
	}
	if o.WDBinWidth != nil {
		c.WDBinWidth = *o.WDBinWidth
	}
	if o.WindBinMADThresh != nil {
		c.WindBinMADThresh = *o.WindBinMADThresh
	}
	if o.FreestreamSectorWidth != nil {
		c.FreestreamSectorWidth = *o.FreestreamSectorWidth
	}
	if o.FreestreamSectorBounds != nil {
		c.FreestreamSectorBounds = o.FreestreamSectorBounds
	}
	if o.FreestreamDeficitThresh != nil {
		c.FreestreamDeficitThresh = *o.FreestreamDeficitThresh
	}
	if o.FreestreamPowerMethod != nil {
		c.FreestreamPowerMethod = *o.FreestreamPowerMethod
	}
	if o.FreestreamWindSpeedMethod != nil {
		c.FreestreamWindSpeedMethod = *o.FreestreamWindSpeedMethod
	}
	if o.CorrectForDerating != nil {
		c.CorrectForDerating = *o.CorrectForDerating
	}
	if o.NumYearsLT != nil {
		c.NumYearsLT = *o.NumYearsLT
	}
	if o.NoWakesWSThreshLTCorr != nil {
		c.NoWakesWSThreshLTCorr = *o.NoWakesWSThreshLTCorr
	}
	if o.AssumeNoWakesHighWSLTCorr != nil {
		c.AssumeNoWakesHighWSLTCorr = *o.AssumeNoWakesHighWSLTCorr
	}
	if o.ReanalysisProducts != nil {
		c.ReanalysisProducts = o.ReanalysisProducts
	}
	if o.CorrectForWSHeterogeneity != nil {
		c.CorrectForWSHeterogeneity = *o.CorrectForWSHeterogeneity
	}
	return c
}

// Validate enforces the configuration-error taxonomy. It checks only the
// config itself; input cross-checks (candidate membership, product lookup)
// happen against the engine's data.
func (c Config) Validate() error {
	if c.WDBinWidth <= 0 {
		return fmt.Errorf("%w: wd bin width %v", ErrConfig, c.WDBinWidth)
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.StartDate.After(c.EndDate) {
		return fmt.Errorf("%w: start date %s after end date %s", ErrConfig,
			c.StartDate.Format(time.DateOnly), c.EndDate.Format(time.DateOnly))
	}
	if !c.FreestreamPowerMethod.Valid() {
		return fmt.Errorf("%w: freestream power method %q", ErrConfig, c.FreestreamPowerMethod)
	}
	if !c.FreestreamWindSpeedMethod.Valid() {
		return fmt.Errorf("%w: freestream wind speed method %q", ErrConfig, c.FreestreamWindSpeedMethod)
	}
	if c.FreestreamSectorWidth.Lo > c.FreestreamSectorWidth.Hi || c.FreestreamSectorWidth.Lo <= 0 {
		return fmt.Errorf("%w: freestream sector width [%v, %v]", ErrConfig,
			c.FreestreamSectorWidth.Lo, c.FreestreamSectorWidth.Hi)
	}
	if c.NumYearsLT.Lo > c.NumYearsLT.Hi || c.NumYearsLT.Lo <= 0 {
		return fmt.Errorf("%w: num years LT [%v, %v]", ErrConfig, c.NumYearsLT.Lo, c.NumYearsLT.Hi)
	}
	if len(c.ReanalysisProducts) == 0 {
		return fmt.Errorf("%w: no reanalysis products", ErrConfig)
	}
	if c.UQ && c.NumSim <= 0 {
		return fmt.Errorf("%w: UQ mode needs num sim > 0", ErrConfig)
	}
	return nil
}
