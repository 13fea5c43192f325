// Package freestream identifies the turbines that see undisturbed wind for
// the sectors of interest and aggregates them into the reference wind-speed
// and power signals that stand in for the theoretical, wake-free condition.
package freestream

import (
	"errors"
	"fmt"
	"math"

	"github.com/openwind/wakeloss/pkg/plant"
	"github.com/openwind/wakeloss/pkg/stats"
	"github.com/openwind/wakeloss/pkg/windbin"
)

var (
	// ErrNoFreestream indicates that no candidate turbine classified as
	// freestream; wake loss cannot be computed without a reference.
	ErrNoFreestream = errors.New("freestream: no freestream turbine among candidates")

	// ErrNoUsableSectors indicates that every sector inside the freestream
	// bounds was flagged unusable after outlier rejection.
	ErrNoUsableSectors = errors.New("freestream: no usable sector within freestream bounds")

	// ErrUnknownCandidate indicates a candidate id absent from the asset set.
	ErrUnknownCandidate = errors.New("freestream: unknown candidate asset")
)

// DefaultDeficitThresh is the relative power deficit below which a candidate
// counts as unobstructed. The exact statistic is a tunable: 5% tolerates
// normal turbine-to-turbine scatter while still catching wake signatures.
const DefaultDeficitThresh = 0.05

// SectorBounds is the wind-direction range [Low, High] (degrees) over which
// freestream candidates must show no wake signature. Low > High means the
// range wraps across north.
type SectorBounds struct {
	Low  float64
	High float64
}

// Contains reports whether dir falls inside the bounds.
func (b SectorBounds) Contains(dir float64) bool {
	d := math.Mod(math.Mod(dir, 360)+360, 360)
	lo := math.Mod(math.Mod(b.Low, 360)+360, 360)
	hi := math.Mod(math.Mod(b.High, 360)+360, 360)
	if lo <= hi {
		return d >= lo && d <= hi
	}
	return d >= lo || d <= hi
}

// BoundsFromWidth returns bounds of the given width centered on center.
func BoundsFromWidth(center, width float64) SectorBounds {
	return SectorBounds{
		Low:  math.Mod(math.Mod(center-width/2, 360)+360, 360),
		High: math.Mod(math.Mod(center+width/2, 360)+360, 360),
	}
}

// PrevailingCenter returns the center direction of the most populated usable
// sector, used to place scalar-width freestream bounds.
func PrevailingCenter(binned *windbin.Binned) (float64, error) {
	best, bestCount := -1, -1
	for s, c := range binned.Counts {
		if binned.Usable[s] && c > bestCount {
			best, bestCount = s, c
		}
	}
	if best < 0 {
		return 0, ErrNoUsableSectors
	}
	return binned.Binner.Center(best), nil
}

// Select classifies the candidate turbines as freestream or waked over the
// sectors inside bounds. A candidate is freestream when, in every usable
// sector it has samples for, its mean power deficit relative to the median of
// the candidates' sector means stays at or below deficitThresh. The returned
// slice holds asset indices into s.Assets, in asset order.
func Select(s *plant.Series, binned *windbin.Binned, candidates []string, bounds SectorBounds, deficitThresh float64) ([]int, error) {
	if deficitThresh <= 0 {
		deficitThresh = DefaultDeficitThresh
	}
	cand := make([]int, 0, len(candidates))
	for _, id := range candidates {
		i := s.Assets.Index(id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCandidate, id)
		}
		cand = append(cand, i)
	}

	// usable sectors whose center lies inside the freestream bounds
	var sectors []int
	for sec := 0; sec < binned.Binner.NumSectors(); sec++ {
		if binned.Usable[sec] && bounds.Contains(binned.Binner.Center(sec)) {
			sectors = append(sectors, sec)
		}
	}
	if len(sectors) == 0 {
		return nil, fmt.Errorf("%w: bounds [%.1f, %.1f]", ErrNoUsableSectors, bounds.Low, bounds.High)
	}

	// mean power per candidate per sector, over surviving samples
	meanPower := make(map[int]map[int]float64) // sector -> asset index -> mean
	for _, sec := range sectors {
		meanPower[sec] = make(map[int]float64)
		for _, i := range cand {
			var sum float64
			var n int
			for t := 0; t < s.Len(); t++ {
				if binned.Sector[t] != sec || binned.Excluded[t] {
					continue
				}
				if p := s.Power[i][t]; !math.IsNaN(p) {
					sum += p
					n++
				}
			}
			if n > 0 {
				meanPower[sec][i] = sum / float64(n)
			}
		}
	}

	var out []int
	for _, i := range cand {
		freestream := true
		for _, sec := range sectors {
			mine, ok := meanPower[sec][i]
			if !ok {
				continue // no samples for this candidate here; other sectors decide
			}
			peers := make([]float64, 0, len(cand))
			for _, j := range cand {
				if m, ok := meanPower[sec][j]; ok {
					peers = append(peers, m)
				}
			}
			ref := stats.MedianOf(peers)
			if ref <= 0 {
				continue
			}
			if 1-mine/ref > deficitThresh {
				freestream = false
				break
			}
		}
		if freestream {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoFreestream
	}
	return out, nil
}
