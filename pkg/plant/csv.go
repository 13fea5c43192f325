package plant

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"time"
)

// Accepted timestamp layouts, tried in order.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrBadRecord, s)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// LoadAssets reads the asset set from a CSV file with header
// asset_id,lat,lon. Order in the file defines the reporting order.
func LoadAssets(path string) (AssetSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open assets: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		return nil, fmt.Errorf("read assets header: %w", err)
	}
	var assets AssetSet
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read assets: %w", err)
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("%w: assets row needs 3 fields", ErrBadRecord)
		}
		lat, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse lat: %w", err)
		}
		lon, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("parse lon: %w", err)
		}
		assets = append(assets, Turbine{ID: rec[0], Lat: lat, Lon: lon})
	}
	if len(assets) == 0 {
		return nil, ErrEmptySeries
	}
	return assets, nil
}

// LoadSCADA reads a long-format SCADA export with header
// timestamp,asset_id,power_kw,wind_speed_ms,wind_direction_deg,derated
// and pivots it into a Series over the given asset set. Cells never seen in
// the file are NaN. The derated column is optional.
func LoadSCADA(path string, assets AssetSet) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scada: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read scada header: %w", err)
	}
	hasDerated := len(header) >= 6

	type cell struct {
		power, ws, wd float64
		derated       bool
	}
	cells := make(map[time.Time]map[string]cell)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read scada: %w", err)
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("%w: scada row needs 5 fields", ErrBadRecord)
		}
		ts, err := parseTime(rec[0])
		if err != nil {
			return nil, err
		}
		id := rec[1]
		if assets.Index(id) < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, id)
		}
		var c cell
		if c.power, err = parseFloat(rec[2]); err != nil {
			return nil, fmt.Errorf("parse power: %w", err)
		}
		if c.ws, err = parseFloat(rec[3]); err != nil {
			return nil, fmt.Errorf("parse wind speed: %w", err)
		}
		if c.wd, err = parseFloat(rec[4]); err != nil {
			return nil, fmt.Errorf("parse wind direction: %w", err)
		}
		if hasDerated && len(rec) >= 6 {
			c.derated = rec[5] == "1" || rec[5] == "true"
		}
		if cells[ts] == nil {
			cells[ts] = make(map[string]cell)
		}
		cells[ts][id] = c
	}
	if len(cells) == 0 {
		return nil, ErrEmptySeries
	}

	times := make([]time.Time, 0, len(cells))
	for ts := range cells {
		times = append(times, ts)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	s := &Series{
		Assets:        assets,
		Times:         times,
		Power:         make([][]float64, len(assets)),
		WindSpeed:     make([][]float64, len(assets)),
		WindDirection: make([][]float64, len(assets)),
	}
	if len(times) > 1 {
		s.Interval = times[1].Sub(times[0])
	}
	if hasDerated {
		s.Derated = make([][]bool, len(assets))
	}
	for i, a := range assets {
		s.Power[i] = make([]float64, len(times))
		s.WindSpeed[i] = make([]float64, len(times))
		s.WindDirection[i] = make([]float64, len(times))
		if hasDerated {
			s.Derated[i] = make([]bool, len(times))
		}
		for t, ts := range times {
			c, ok := cells[ts][a.ID]
			if !ok {
				c = cell{power: math.NaN(), ws: math.NaN(), wd: math.NaN()}
			}
			s.Power[i][t] = c.power
			s.WindSpeed[i][t] = c.ws
			s.WindDirection[i][t] = c.wd
			if hasDerated {
				s.Derated[i][t] = c.derated
			}
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadReanalysis reads one reanalysis product series with header
// timestamp,wind_speed_ms,wind_direction_deg.
func LoadReanalysis(product, path string) (*Reanalysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reanalysis %s: %w", product, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		return nil, fmt.Errorf("read reanalysis header: %w", err)
	}
	out := &Reanalysis{Product: product}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read reanalysis: %w", err)
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("%w: reanalysis row needs 3 fields", ErrBadRecord)
		}
		ts, err := parseTime(rec[0])
		if err != nil {
			return nil, err
		}
		ws, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse wind speed: %w", err)
		}
		wd, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("parse wind direction: %w", err)
		}
		out.Times = append(out.Times, ts)
		out.WindSpeed = append(out.WindSpeed, ws)
		out.WindDirection = append(out.WindDirection, wd)
	}
	if out.Len() == 0 {
		return nil, ErrEmptySeries
	}
	return out, nil
}

// LoadSpeedupMap reads the heterogeneity correction table. The header names
// the tabulated sector centers (asset_id,0,30,60,...); centers must be evenly
// spaced starting at 0.
func LoadSpeedupMap(path string) (*SpeedupMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open speedup map: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read speedup header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: speedup map needs at least one sector column", ErrBadRecord)
	}
	nSectors := len(header) - 1
	m := &SpeedupMap{
		SectorWidth: 360.0 / float64(nSectors),
		Factors:     make(map[string][]float64),
	}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read speedup map: %w", err)
		}
		if len(rec) != nSectors+1 {
			return nil, fmt.Errorf("%w: speedup row width", ErrBadRecord)
		}
		factors := make([]float64, nSectors)
		for i := 0; i < nSectors; i++ {
			factors[i], err = strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("parse speedup factor: %w", err)
			}
		}
		m.Factors[rec[0]] = factors
	}
	return m, nil
}
