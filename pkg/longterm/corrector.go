// Package longterm reweights the period-of-record wake-loss relationship
// against a multi-year reanalysis wind-resource climatology. The POR data
// gives bin-wise plant efficiency versus wind condition; the reanalysis gives
// the long-term joint wind-speed/direction frequency those efficiencies
// should be weighted by.
package longterm

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/openwind/wakeloss/pkg/plant"
	"github.com/openwind/wakeloss/pkg/windbin"
)

var (
	// ErrBadSpan indicates a non-positive projection horizon.
	ErrBadSpan = errors.New("longterm: num years must be > 0")

	// ErrNoCoverage indicates that no long-term wind condition bin has POR
	// coverage, leaving nothing to reweight.
	ErrNoCoverage = errors.New("longterm: no POR coverage for long-term distribution")

	// ErrShapeMismatch indicates POR inputs of inconsistent length.
	ErrShapeMismatch = errors.New("longterm: POR input shape mismatch")
)

// DefaultWSBinWidth is the wind-speed bin width of the joint distribution.
const DefaultWSBinWidth = 1.0 // m/s

// Corrector computes long-term corrected wake losses. The direction binner
// must be the same one used for the POR sectors so that reanalysis directions
// land in comparable bins.
type Corrector struct {
	Binner        *windbin.Binner
	WSBinWidth    float64
	NoWakesThresh float64 // m/s; bins centered above this are assumed wake-free
	AssumeNoWakes bool
}

// Result is the LT-corrected wake loss at plant and turbine level, fractions
// in asset order.
type Result struct {
	Plant    float64
	Turbines []float64

	// CoveredFraction is the share of long-term frequency mass that fell in
	// bins with POR coverage; the complement was dropped and renormalized.
	CoveredFraction float64
}

// Correct builds the long-term joint wind-speed/direction distribution from
// rean over the numYears window ending at endDate, and reweights the POR
// bin-wise efficiency by it. The POR inputs are per-timestep: reference wind
// speed, assigned sector, usability flag, and per-asset actual and expected
// power.
func (c *Corrector) Correct(rean *plant.Reanalysis, numYears int, endDate time.Time,
	refWS []float64, sector []int, usable []bool,
	actual, expected [][]float64) (*Result, error) {

	if numYears <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadSpan, numYears)
	}
	n := len(usable)
	if len(refWS) != n || len(sector) != n {
		return nil, ErrShapeMismatch
	}
	for i := range actual {
		if len(actual[i]) != n || len(expected[i]) != n {
			return nil, ErrShapeMismatch
		}
	}

	if endDate.IsZero() && rean.Len() > 0 {
		endDate = rean.Times[rean.Len()-1]
	}
	window, err := rean.Window(endDate.AddDate(-numYears, 0, 0), endDate)
	if err != nil {
		return nil, fmt.Errorf("longterm window %s: %w", rean.Product, err)
	}

	wsWidth := c.WSBinWidth
	if wsWidth <= 0 {
		wsWidth = DefaultWSBinWidth
	}

	freq := c.jointFrequency(window, wsWidth)
	wsBins, sectors := freq.Dims()

	// POR bin-wise accumulation
	nAssets := len(actual)
	sumA := make([][]float64, nAssets)
	sumE := make([][]float64, nAssets)
	for i := range sumA {
		sumA[i] = make([]float64, wsBins*sectors)
		sumE[i] = make([]float64, wsBins*sectors)
	}
	counts := make([]int, wsBins*sectors)
	for t := 0; t < n; t++ {
		if !usable[t] || math.IsNaN(refWS[t]) || sector[t] < 0 {
			continue
		}
		w := int(math.Floor(refWS[t] / wsWidth))
		if w < 0 || w >= wsBins || sector[t] >= sectors {
			continue // POR condition outside the long-term span carries no LT weight
		}
		b := w*sectors + sector[t]
		counted := false
		for i := 0; i < nAssets; i++ {
			a, e := actual[i][t], expected[i][t]
			if math.IsNaN(a) || math.IsNaN(e) {
				continue
			}
			sumA[i][b] += a
			sumE[i][b] += e
			counted = true
		}
		if counted {
			counts[b]++
		}
	}

	// Reweight: per bin, per turbine, LT energy share is
	// frequency * mean expected power, discounted by the POR efficiency.
	num := make([]float64, nAssets)
	den := make([]float64, nAssets)
	covered := 0.0
	for w := 0; w < wsBins; w++ {
		noWakes := c.AssumeNoWakes && (float64(w)+0.5)*wsWidth > c.NoWakesThresh
		for s := 0; s < sectors; s++ {
			f := freq.At(w, s)
			if f == 0 {
				continue
			}
			b := w*sectors + s
			if counts[b] == 0 {
				continue
			}
			covered += f
			for i := 0; i < nAssets; i++ {
				if sumE[i][b] <= 0 {
					continue
				}
				meanExp := sumE[i][b] / float64(counts[b])
				eff := sumA[i][b] / sumE[i][b]
				if noWakes {
					eff = 1
				}
				num[i] += f * meanExp * eff
				den[i] += f * meanExp
			}
		}
	}
	if covered == 0 {
		return nil, fmt.Errorf("%w: product %s", ErrNoCoverage, rean.Product)
	}

	res := &Result{Turbines: make([]float64, nAssets), CoveredFraction: covered}
	var plantNum, plantDen float64
	for i := 0; i < nAssets; i++ {
		if den[i] == 0 {
			return nil, fmt.Errorf("%w: turbine %d", ErrNoCoverage, i)
		}
		res.Turbines[i] = 1 - num[i]/den[i]
		plantNum += num[i]
		plantDen += den[i]
	}
	res.Plant = 1 - plantNum/plantDen
	return res, nil
}

// jointFrequency bins the windowed reanalysis samples into a wind-speed by
// sector matrix of relative frequencies.
func (c *Corrector) jointFrequency(r *plant.Reanalysis, wsWidth float64) *mat.Dense {
	maxWS := 0.0
	for _, ws := range r.WindSpeed {
		if !math.IsNaN(ws) && ws > maxWS {
			maxWS = ws
		}
	}
	wsBins := int(math.Ceil(maxWS/wsWidth)) + 1
	sectors := c.Binner.NumSectors()
	freq := mat.NewDense(wsBins, sectors, nil)

	total := 0.0
	for k := 0; k < r.Len(); k++ {
		ws, wd := r.WindSpeed[k], r.WindDirection[k]
		if math.IsNaN(ws) || math.IsNaN(wd) {
			continue
		}
		w := int(math.Floor(ws / wsWidth))
		s := c.Binner.Sector(wd)
		if w < 0 || w >= wsBins || s < 0 {
			continue
		}
		freq.Set(w, s, freq.At(w, s)+1)
		total++
	}
	if total > 0 {
		freq.Scale(1/total, freq)
	}
	return freq
}
