package plant

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// Turbine is one asset of the plant with its site coordinates.
type Turbine struct {
	ID  string
	Lat float64
	Lon float64
}

// AssetSet is the ordered collection of plant turbines. Reported per-turbine
// metrics follow this order.
type AssetSet []Turbine

// IDs returns the turbine ids in asset order.
func (a AssetSet) IDs() []string {
	ids := make([]string, len(a))
	for i, t := range a {
		ids[i] = t.ID
	}
	return ids
}

// Index returns the position of id in the set, or -1.
func (a AssetSet) Index(id string) int {
	for i, t := range a {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether every id is a member of the set.
func (a AssetSet) Contains(ids ...string) bool {
	for _, id := range ids {
		if a.Index(id) < 0 {
			return false
		}
	}
	return true
}

// Series is the validated SCADA observation series: one row per timestamp,
// one column set per turbine. Missing samples are NaN.
type Series struct {
	Assets   AssetSet
	Times    []time.Time
	Interval time.Duration

	// Per-turbine columns indexed [asset][timestep], in Assets order.
	Power         [][]float64 // kW
	WindSpeed     [][]float64 // m/s
	WindDirection [][]float64 // degrees, [0, 360)
	Derated       [][]bool    // nil when the plant supplies no derating flags
}

// Len returns the number of timesteps.
func (s *Series) Len() int { return len(s.Times) }

// IntervalHours returns the sampling interval in hours, the factor that
// converts a kW sample into kWh.
func (s *Series) IntervalHours() float64 { return s.Interval.Hours() }

// IsDerated reports whether turbine i is flagged derated at timestep t.
func (s *Series) IsDerated(i, t int) bool {
	if s.Derated == nil {
		return false
	}
	return s.Derated[i][t]
}

// Validate checks the shape contract the engine depends on.
func (s *Series) Validate() error {
	if len(s.Assets) == 0 || len(s.Times) == 0 {
		return ErrEmptySeries
	}
	if s.Interval <= 0 {
		return fmt.Errorf("%w: interval %v", ErrIrregularInterval, s.Interval)
	}
	n := len(s.Times)
	for _, cols := range [][][]float64{s.Power, s.WindSpeed, s.WindDirection} {
		if len(cols) != len(s.Assets) {
			return ErrRaggedSeries
		}
		for _, col := range cols {
			if len(col) != n {
				return ErrRaggedSeries
			}
		}
	}
	if s.Derated != nil {
		if len(s.Derated) != len(s.Assets) {
			return ErrRaggedSeries
		}
		for _, col := range s.Derated {
			if len(col) != n {
				return ErrRaggedSeries
			}
		}
	}
	for t := 1; t < n; t++ {
		if s.Times[t].Sub(s.Times[t-1]) != s.Interval {
			return fmt.Errorf("%w: gap at %s", ErrIrregularInterval, s.Times[t])
		}
	}
	return nil
}

// Window returns a copy of the series restricted to [start, end]. Zero bounds
// leave the corresponding side open.
func (s *Series) Window(start, end time.Time) (*Series, error) {
	lo, hi := 0, s.Len()
	if !start.IsZero() {
		for lo < hi && s.Times[lo].Before(start) {
			lo++
		}
	}
	if !end.IsZero() {
		for hi > lo && s.Times[hi-1].After(end) {
			hi--
		}
	}
	if lo >= hi {
		return nil, ErrEmptyWindow
	}
	idx := make([]int, hi-lo)
	for i := range idx {
		idx[i] = lo + i
	}
	return s.Select(idx), nil
}

// Select returns a new series holding the given timestep indices, in order.
// It is the primitive behind both windowing and bootstrap resampling; the
// receiver is never modified.
func (s *Series) Select(idx []int) *Series {
	out := &Series{
		Assets:        s.Assets,
		Times:         make([]time.Time, len(idx)),
		Interval:      s.Interval,
		Power:         make([][]float64, len(s.Assets)),
		WindSpeed:     make([][]float64, len(s.Assets)),
		WindDirection: make([][]float64, len(s.Assets)),
	}
	if s.Derated != nil {
		out.Derated = make([][]bool, len(s.Assets))
	}
	for k, t := range idx {
		out.Times[k] = s.Times[t]
	}
	for i := range s.Assets {
		out.Power[i] = make([]float64, len(idx))
		out.WindSpeed[i] = make([]float64, len(idx))
		out.WindDirection[i] = make([]float64, len(idx))
		for k, t := range idx {
			out.Power[i][k] = s.Power[i][t]
			out.WindSpeed[i][k] = s.WindSpeed[i][t]
			out.WindDirection[i][k] = s.WindDirection[i][t]
		}
		if s.Derated != nil {
			out.Derated[i] = make([]bool, len(idx))
			for k, t := range idx {
				out.Derated[i][k] = s.Derated[i][t]
			}
		}
	}
	return out
}

// Reanalysis is one external long-term wind-resource series.
type Reanalysis struct {
	Product       string
	Times         []time.Time
	WindSpeed     []float64 // m/s
	WindDirection []float64 // degrees
}

// Len returns the number of samples.
func (r *Reanalysis) Len() int { return len(r.Times) }

// Window returns a copy restricted to [start, end], with the same open-bound
// convention as Series.Window.
func (r *Reanalysis) Window(start, end time.Time) (*Reanalysis, error) {
	lo, hi := 0, r.Len()
	if !start.IsZero() {
		for lo < hi && r.Times[lo].Before(start) {
			lo++
		}
	}
	if !end.IsZero() {
		for hi > lo && r.Times[hi-1].After(end) {
			hi--
		}
	}
	if lo >= hi {
		return nil, ErrEmptyWindow
	}
	return &Reanalysis{
		Product:       r.Product,
		Times:         slices.Clone(r.Times[lo:hi]),
		WindSpeed:     slices.Clone(r.WindSpeed[lo:hi]),
		WindDirection: slices.Clone(r.WindDirection[lo:hi]),
	}, nil
}

// SpeedupMap is the spatial wind-speed heterogeneity correction: a per-turbine
// speedup factor tabulated at evenly spaced wind-direction sector centers.
type SpeedupMap struct {
	SectorWidth float64              // degrees between tabulated centers
	Factors     map[string][]float64 // asset id -> factor per sector center, starting at 0°
}

// Factor returns the speedup factor for the turbine at wind direction wd,
// linearly interpolated between the two neighbouring tabulated sectors
// (wrapping across north). Turbines absent from the map get 1.
func (m *SpeedupMap) Factor(assetID string, wd float64) float64 {
	f, ok := m.Factors[assetID]
	if !ok || len(f) == 0 {
		return 1
	}
	n := len(f)
	pos := math.Mod(wd, 360) / m.SectorWidth
	lo := int(math.Floor(pos)) % n
	hi := (lo + 1) % n
	frac := pos - math.Floor(pos)
	return f[lo]*(1-frac) + f[hi]*frac
}
