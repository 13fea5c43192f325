package wakeloss

import (
	"github.com/google/uuid"

	"github.com/openwind/wakeloss/pkg/types"
)

// Stat is one reported metric. Deterministic runs carry the point estimate in
// Mean with Std zero; UQ runs carry the across-trial mean and population
// standard deviation.
type Stat struct {
	Mean float64
	Std  float64
}

// Percent returns the mean scaled to percent for reporting.
func (s Stat) Percent() types.Percent { return types.Percent(s.Mean) }

// Estimate is a wake-loss estimate at plant and turbine granularity. Turbine
// entries follow asset order.
type Estimate struct {
	Plant    Stat
	Turbines []Stat
}

// Result is the immutable outcome of one analysis run.
type Result struct {
	RunID    uuid.UUID
	UQ       bool
	Trials   int
	AssetIDs []string

	POR Estimate
	LT  Estimate

	// POR energy totals, filled in deterministic mode only (a bootstrap
	// trial's totals are not meaningful to report).
	ActualEnergy   types.Energy
	ExpectedEnergy types.Energy
}
