package freestream

import (
	"math"

	"github.com/openwind/wakeloss/pkg/plant"
	"github.com/openwind/wakeloss/pkg/stats"
	"github.com/openwind/wakeloss/pkg/windbin"
)

// Reference is the per-timestep freestream reference signal. Steps flagged
// unusable carry NaN and must not contribute to energy totals.
type Reference struct {
	WindSpeed []float64
	Power     []float64
	Usable    []bool

	// DeratedDrops counts (turbine, timestep) exclusions applied under the
	// derating policy while other freestream turbines still covered the step.
	DeratedDrops int
	// UnusableSteps counts timesteps with no surviving freestream coverage.
	UnusableSteps int
}

// BuildOptions control reference aggregation.
type BuildOptions struct {
	WindSpeedMethod    stats.Method
	PowerMethod        stats.Method
	CorrectForDerating bool
}

// Build aggregates wind speed and power across the freestream turbines into
// one reference sample per timestep. Timesteps excluded by the binner, or
// left with no freestream turbine after the derating policy, are unusable.
func Build(s *plant.Series, binned *windbin.Binned, freestream []int, opts BuildOptions) *Reference {
	n := s.Len()
	ref := &Reference{
		WindSpeed: make([]float64, n),
		Power:     make([]float64, n),
		Usable:    make([]bool, n),
	}
	ws := make([]float64, 0, len(freestream))
	pw := make([]float64, 0, len(freestream))
	for t := 0; t < n; t++ {
		ref.WindSpeed[t] = math.NaN()
		ref.Power[t] = math.NaN()
		if binned.Sector[t] < 0 || binned.Excluded[t] || !binned.Usable[binned.Sector[t]] {
			continue
		}
		ws = ws[:0]
		pw = pw[:0]
		dropped := 0
		for _, i := range freestream {
			if opts.CorrectForDerating && s.IsDerated(i, t) {
				dropped++
				continue
			}
			w, p := s.WindSpeed[i][t], s.Power[i][t]
			if math.IsNaN(w) || math.IsNaN(p) {
				continue
			}
			ws = append(ws, w)
			pw = append(pw, p)
		}
		if len(ws) == 0 {
			ref.UnusableSteps++
			continue
		}
		ref.DeratedDrops += dropped
		ref.WindSpeed[t] = stats.Aggregate(opts.WindSpeedMethod, ws)
		ref.Power[t] = stats.Aggregate(opts.PowerMethod, pw)
		ref.Usable[t] = true
	}
	return ref
}
