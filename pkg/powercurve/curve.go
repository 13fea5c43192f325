// Package powercurve models the wind-speed to power relationship used to
// compute expected (theoretical) turbine output from the freestream reference
// wind speed. A curve is either supplied (manufacturer data) or fit
// empirically from freestream observations.
package powercurve

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
)

var (
	// ErrNoData indicates an empirical fit with no usable samples.
	ErrNoData = errors.New("powercurve: no usable samples")

	// ErrTooFewPoints indicates a curve with fewer than two points.
	ErrTooFewPoints = errors.New("powercurve: need at least two points")
)

// Point is one tabulated (wind speed, power) pair.
type Point struct {
	WindSpeed float64 // m/s
	Power     float64 // kW
}

// Curve is a piecewise-linear power curve. Points are kept sorted by wind
// speed; outside the tabulated span the curve extends flat, so a reference
// sample beyond the last bin never produces NaN expected power.
type Curve struct {
	Points []Point
}

// New builds a curve from points, sorting them by wind speed.
func New(points []Point) (*Curve, error) {
	if len(points) < 2 {
		return nil, ErrTooFewPoints
	}
	ps := make([]Point, len(points))
	copy(ps, points)
	sort.Slice(ps, func(i, j int) bool { return ps[i].WindSpeed < ps[j].WindSpeed })
	return &Curve{Points: ps}, nil
}

// At returns the power at wind speed ws by linear interpolation between the
// two bracketing points. NaN in gives NaN out.
func (c *Curve) At(ws float64) float64 {
	if math.IsNaN(ws) {
		return math.NaN()
	}
	ps := c.Points
	if ws <= ps[0].WindSpeed {
		return ps[0].Power
	}
	if ws >= ps[len(ps)-1].WindSpeed {
		return ps[len(ps)-1].Power
	}
	for i := 0; i < len(ps)-1; i++ {
		p1, p2 := ps[i], ps[i+1]
		if p1.WindSpeed <= ws && ws <= p2.WindSpeed {
			return interpolate(p1, p2, ws)
		}
	}
	return math.NaN()
}

func interpolate(p1, p2 Point, ws float64) float64 {
	return p1.Power + (ws-p1.WindSpeed)*((p2.Power-p1.Power)/(p2.WindSpeed-p1.WindSpeed))
}

// FitEmpirical bins the (ws, power) samples into wind-speed bins of binWidth
// and returns the curve of bin-mean power at bin-mean wind speed. NaN samples
// are skipped. Bins with no samples simply contribute no point.
func FitEmpirical(ws, power []float64, binWidth float64) (*Curve, error) {
	if binWidth <= 0 {
		return nil, fmt.Errorf("powercurve: bin width must be > 0, got %v", binWidth)
	}
	type acc struct {
		sumWS, sumP float64
		n           int
	}
	bins := make(map[int]*acc)
	for i := range ws {
		if math.IsNaN(ws[i]) || math.IsNaN(power[i]) {
			continue
		}
		k := int(math.Floor(ws[i] / binWidth))
		a := bins[k]
		if a == nil {
			a = &acc{}
			bins[k] = a
		}
		a.sumWS += ws[i]
		a.sumP += power[i]
		a.n++
	}
	if len(bins) == 0 {
		return nil, ErrNoData
	}
	points := make([]Point, 0, len(bins))
	for _, a := range bins {
		points = append(points, Point{
			WindSpeed: a.sumWS / float64(a.n),
			Power:     a.sumP / float64(a.n),
		})
	}
	if len(points) < 2 {
		// a single-bin dataset still needs a usable flat curve
		points = append(points, Point{WindSpeed: points[0].WindSpeed + binWidth, Power: points[0].Power})
	}
	return New(points)
}

// LoadCSV reads a curve from a CSV file with header wind_speed_ms,power_kw.
func LoadCSV(path string) (*Curve, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open power curve: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		return nil, fmt.Errorf("read power curve header: %w", err)
	}
	var points []Point
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read power curve: %w", err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("powercurve: row needs 2 fields")
		}
		ws, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parse wind speed: %w", err)
		}
		p, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse power: %w", err)
		}
		points = append(points, Point{WindSpeed: ws, Power: p})
	}
	return New(points)
}
