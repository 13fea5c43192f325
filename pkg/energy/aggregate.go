// Package energy converts instantaneous power samples into energy totals for
// the period of record: actual energy from observed turbine power, expected
// energy from the theoretical power applied to the freestream reference.
package energy

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoUsableSteps indicates that no timestep contributed energy.
	ErrNoUsableSteps = errors.New("energy: no usable timesteps")

	// ErrBadInterval indicates a non-positive sampling interval.
	ErrBadInterval = errors.New("energy: interval must be > 0")

	// ErrShapeMismatch indicates actual/expected series of different shape.
	ErrShapeMismatch = errors.New("energy: actual and expected shape mismatch")
)

// Totals holds actual and expected energy in kWh, per turbine and summed to
// plant level. Per-turbine slices follow asset order.
type Totals struct {
	Actual   []float64
	Expected []float64

	PlantActual   float64
	PlantExpected float64

	Steps int // usable timesteps that contributed
}

// Aggregate integrates power to energy over the usable timesteps:
// energy += power * intervalHours, per turbine, for both the observed and the
// expected series. A (turbine, timestep) cell where either side is NaN is
// skipped on both sides, keeping the actual/expected ratio consistent.
func Aggregate(actual, expected [][]float64, usable []bool, intervalHours float64) (*Totals, error) {
	if intervalHours <= 0 {
		return nil, fmt.Errorf("%w: %v h", ErrBadInterval, intervalHours)
	}
	if len(actual) != len(expected) {
		return nil, ErrShapeMismatch
	}
	nAssets := len(actual)
	tot := &Totals{
		Actual:   make([]float64, nAssets),
		Expected: make([]float64, nAssets),
	}
	counted := make([]bool, len(usable))
	for i := 0; i < nAssets; i++ {
		if len(actual[i]) != len(usable) || len(expected[i]) != len(usable) {
			return nil, ErrShapeMismatch
		}
		for t, ok := range usable {
			if !ok {
				continue
			}
			a, e := actual[i][t], expected[i][t]
			if math.IsNaN(a) || math.IsNaN(e) {
				continue
			}
			tot.Actual[i] += a * intervalHours
			tot.Expected[i] += e * intervalHours
			counted[t] = true
		}
	}
	for _, ok := range counted {
		if ok {
			tot.Steps++
		}
	}
	if tot.Steps == 0 {
		return nil, ErrNoUsableSteps
	}
	for i := 0; i < nAssets; i++ {
		tot.PlantActual += tot.Actual[i]
		tot.PlantExpected += tot.Expected[i]
	}
	return tot, nil
}

// WakeLoss returns the normalized loss ratio 1 - actual/expected. It is not
// clamped: a turbine out-performing its theoretical curve yields a negative
// loss.
func WakeLoss(actual, expected float64) (float64, error) {
	if expected == 0 {
		return 0, fmt.Errorf("%w: zero expected energy", ErrNoUsableSteps)
	}
	return 1 - actual/expected, nil
}
