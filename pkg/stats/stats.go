// Package stats holds the small aggregation statistics the wake-loss engine is
// built from. Where gonum provides a primitive (mean, sample moments) it is
// used directly; the circular and median-based helpers are thin additions on
// top of it.
package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Method selects the statistic used to aggregate values across turbines.
type Method string

const (
	Mean   Method = "mean"
	Median Method = "median"
)

// Valid reports whether m is a known aggregation method.
func (m Method) Valid() bool { return m == Mean || m == Median }

// Aggregate reduces xs with the chosen method. Empty input returns NaN so
// callers can detect unusable time steps explicitly.
func Aggregate(m Method, xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	if m == Median {
		return MedianOf(xs)
	}
	return stat.Mean(xs, nil)
}

// MedianOf returns the median of xs without mutating it.
func MedianOf(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	s := slices.Clone(xs)
	slices.Sort(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// MAD returns the median absolute deviation of xs about its median.
func MAD(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	med := MedianOf(xs)
	dev := make([]float64, len(xs))
	for i, x := range xs {
		dev[i] = math.Abs(x - med)
	}
	return MedianOf(dev)
}

// CircularMeanDeg returns the circular mean of directions given in degrees,
// normalized to [0, 360).
func CircularMeanDeg(degs []float64) float64 {
	if len(degs) == 0 {
		return math.NaN()
	}
	var sinSum, cosSum float64
	for _, d := range degs {
		r := d * math.Pi / 180
		sinSum += math.Sin(r)
		cosSum += math.Cos(r)
	}
	deg := math.Atan2(sinSum, cosSum) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// MeanStd returns the mean and population standard deviation (divisor n) of
// xs. gonum's stat.StdDev uses the sample divisor, which is not what the
// reported Monte Carlo summaries use.
func MeanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return math.NaN(), math.NaN()
	}
	mean = stat.Mean(xs, nil)
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

// SafeDiv returns n/d, or 0 when the denominator is effectively zero.
func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}
