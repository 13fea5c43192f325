// Package windbin buckets wind-direction samples into fixed-width sectors
// wrapping across north, and rejects in-sector outliers by median absolute
// deviation before the samples feed reference-signal computation.
package windbin

import (
	"errors"
	"fmt"
	"math"

	"github.com/openwind/wakeloss/pkg/stats"
)

var (
	// ErrBadWidth indicates a non-positive sector width.
	ErrBadWidth = errors.New("windbin: sector width must be > 0")
)

// DefaultMinSamples is the minimum sample count below which a sector is
// flagged unusable and excluded from freestream-selection voting.
const DefaultMinSamples = 5

// Binner assigns wind directions to sectors of Width degrees, centered on
// multiples of Width (sector 0 spans [-Width/2, Width/2) around north).
type Binner struct {
	Width      float64
	MinSamples int     // sectors with fewer usable samples are unusable
	MADThresh  float64 // outlier rejection threshold in MADs; <= 0 disables
}

// New returns a Binner with the default minimum sample count.
func New(width, madThresh float64) (*Binner, error) {
	if width <= 0 || math.IsNaN(width) {
		return nil, fmt.Errorf("%w: got %v", ErrBadWidth, width)
	}
	return &Binner{Width: width, MinSamples: DefaultMinSamples, MADThresh: madThresh}, nil
}

// NumSectors returns the number of sectors covering the circle.
func (b *Binner) NumSectors() int {
	return int(math.Ceil(360 / b.Width))
}

// Sector returns the sector index for a direction in degrees, or -1 for NaN.
func (b *Binner) Sector(dir float64) int {
	if math.IsNaN(dir) {
		return -1
	}
	idx := int(math.Mod(math.Mod(dir, 360)+360+b.Width/2, 360) / b.Width)
	if n := b.NumSectors(); idx >= n {
		idx = n - 1
	}
	return idx
}

// Center returns the direction at the center of the sector, in [0, 360).
func (b *Binner) Center(sector int) float64 {
	return math.Mod(float64(sector)*b.Width, 360)
}

// Binned is the per-timestep sector assignment plus the exclusion and
// usability flags derived from it.
type Binned struct {
	Binner *Binner

	Sector   []int  // per timestep; -1 when the direction was NaN
	Excluded []bool // per timestep; MAD outlier within its sector
	Usable   []bool // per sector; enough surviving samples to vote
	Counts   []int  // per sector; surviving sample count
}

// Bin assigns each direction sample to a sector and applies MAD outlier
// rejection on values (typically the reference wind speed): within a sector,
// samples deviating from the sector median by more than MADThresh median
// absolute deviations are excluded from subsequent reference computation.
// The raw inputs are left untouched.
func (b *Binner) Bin(dirs, values []float64) *Binned {
	n := len(dirs)
	out := &Binned{
		Binner:   b,
		Sector:   make([]int, n),
		Excluded: make([]bool, n),
		Usable:   make([]bool, b.NumSectors()),
		Counts:   make([]int, b.NumSectors()),
	}
	perSector := make([][]int, b.NumSectors())
	for t, d := range dirs {
		s := b.Sector(d)
		out.Sector[t] = s
		if s < 0 || (t < len(values) && math.IsNaN(values[t])) {
			if s >= 0 {
				out.Excluded[t] = true
			}
			continue
		}
		perSector[s] = append(perSector[s], t)
	}

	for s, members := range perSector {
		if b.MADThresh > 0 && len(members) > 0 {
			vals := make([]float64, len(members))
			for i, t := range members {
				vals[i] = values[t]
			}
			med := stats.MedianOf(vals)
			mad := stats.MAD(vals)
			if mad > 0 {
				for i, t := range members {
					if math.Abs(vals[i]-med) > b.MADThresh*mad {
						out.Excluded[t] = true
					}
				}
			}
		}
		count := 0
		for _, t := range members {
			if !out.Excluded[t] {
				count++
			}
		}
		out.Counts[s] = count
		out.Usable[s] = count >= b.MinSamples
	}
	return out
}
