package plant

import (
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeries(t *testing.T, n int) *Series {
	t.Helper()
	assets := AssetSet{
		{ID: "T1", Lat: 46.26, Lon: 5.59},
		{ID: "T2", Lat: 46.26, Lon: 5.60},
	}
	s := &Series{
		Assets:        assets,
		Times:         make([]time.Time, n),
		Interval:      10 * time.Minute,
		Power:         make([][]float64, 2),
		WindSpeed:     make([][]float64, 2),
		WindDirection: make([][]float64, 2),
		Derated:       make([][]bool, 2),
	}
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	for k := 0; k < n; k++ {
		s.Times[k] = start.Add(time.Duration(k) * s.Interval)
	}
	for i := 0; i < 2; i++ {
		s.Power[i] = make([]float64, n)
		s.WindSpeed[i] = make([]float64, n)
		s.WindDirection[i] = make([]float64, n)
		s.Derated[i] = make([]bool, n)
		for k := 0; k < n; k++ {
			s.Power[i][k] = 100 + float64(i*10+k)
			s.WindSpeed[i][k] = 8
			s.WindDirection[i][k] = 270
		}
	}
	return s
}

func TestSeriesValidate(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		require.NoError(t, testSeries(t, 6).Validate())
	})
	t.Run("empty", func(t *testing.T) {
		s := &Series{}
		assert.ErrorIs(t, s.Validate(), ErrEmptySeries)
	})
	t.Run("ragged", func(t *testing.T) {
		s := testSeries(t, 6)
		s.Power[1] = s.Power[1][:3]
		assert.ErrorIs(t, s.Validate(), ErrRaggedSeries)
	})
	t.Run("gap", func(t *testing.T) {
		s := testSeries(t, 6)
		s.Times[3] = s.Times[3].Add(time.Minute)
		assert.ErrorIs(t, s.Validate(), ErrIrregularInterval)
	})
}

func TestSeriesWindow(t *testing.T) {
	s := testSeries(t, 10)

	t.Run("closed_both_sides", func(t *testing.T) {
		w, err := s.Window(s.Times[2], s.Times[7])
		require.NoError(t, err)
		assert.Equal(t, 6, w.Len())
		assert.Equal(t, s.Times[2], w.Times[0])
		assert.Equal(t, s.Power[0][2], w.Power[0][0])
	})
	t.Run("open_start", func(t *testing.T) {
		w, err := s.Window(time.Time{}, s.Times[4])
		require.NoError(t, err)
		assert.Equal(t, 5, w.Len())
	})
	t.Run("empty", func(t *testing.T) {
		_, err := s.Window(s.Times[9].Add(time.Hour), time.Time{})
		assert.ErrorIs(t, err, ErrEmptyWindow)
	})
	t.Run("source_untouched", func(t *testing.T) {
		_, err := s.Window(s.Times[2], s.Times[7])
		require.NoError(t, err)
		assert.Equal(t, 10, s.Len())
	})
}

func TestSeriesSelect(t *testing.T) {
	s := testSeries(t, 5)
	s.Derated[1][4] = true

	r := s.Select([]int{4, 4, 0})
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, s.Power[0][4], r.Power[0][0])
	assert.Equal(t, s.Power[0][4], r.Power[0][1])
	assert.Equal(t, s.Power[0][0], r.Power[0][2])
	assert.True(t, r.Derated[1][0])
	assert.False(t, r.Derated[1][2])
}

func TestReanalysisWindow(t *testing.T) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &Reanalysis{Product: "merra2"}
	for i := 0; i < 24; i++ {
		r.Times = append(r.Times, start.Add(time.Duration(i)*time.Hour))
		r.WindSpeed = append(r.WindSpeed, float64(i))
		r.WindDirection = append(r.WindDirection, 180)
	}

	w, err := r.Window(r.Times[6], r.Times[11])
	require.NoError(t, err)
	assert.Equal(t, 6, w.Len())
	assert.Equal(t, 6.0, w.WindSpeed[0])

	_, err = r.Window(r.Times[23].Add(time.Hour), time.Time{})
	assert.ErrorIs(t, err, ErrEmptyWindow)
}

func TestSpeedupMapFactor(t *testing.T) {
	m := &SpeedupMap{
		SectorWidth: 90,
		Factors: map[string][]float64{
			"T1": {1.0, 1.2, 0.8, 1.0},
		},
	}

	t.Run("at_center", func(t *testing.T) {
		assert.InDelta(t, 1.2, m.Factor("T1", 90), 1e-12)
	})
	t.Run("interpolated", func(t *testing.T) {
		assert.InDelta(t, 1.1, m.Factor("T1", 45), 1e-12)
	})
	t.Run("wraps_north", func(t *testing.T) {
		// halfway between the 270 center (1.0) and the 0 center (1.0)
		assert.InDelta(t, 1.0, m.Factor("T1", 315), 1e-12)
	})
	t.Run("unknown_asset_is_unity", func(t *testing.T) {
		assert.Equal(t, 1.0, m.Factor("T9", 123))
	})
}

func TestLoadCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()

	assetsCSV := dir + "/assets.csv"
	scadaCSV := dir + "/scada.csv"
	reanCSV := dir + "/merra2.csv"
	speedupCSV := dir + "/speedup.csv"

	writeFile(t, assetsCSV, "asset_id,lat,lon\nT1,46.26,5.59\nT2,46.26,5.60\n")
	writeFile(t, scadaCSV,
		"timestamp,asset_id,power_kw,wind_speed_ms,wind_direction_deg,derated\n"+
			"2015-01-01 00:00,T1,500,8.1,270,0\n"+
			"2015-01-01 00:00,T2,480,7.9,268,0\n"+
			"2015-01-01 00:10,T1,510,8.3,271,1\n"+
			"2015-01-01 00:10,T2,,,272,0\n")
	writeFile(t, reanCSV,
		"timestamp,wind_speed_ms,wind_direction_deg\n"+
			"2000-01-01 00:00,7.2,250\n"+
			"2000-01-01 01:00,7.4,252\n")
	writeFile(t, speedupCSV, "asset_id,0,90,180,270\nT1,1.0,1.1,1.0,0.9\n")

	assets, err := LoadAssets(assetsCSV)
	require.NoError(t, err)
	require.Equal(t, []string{"T1", "T2"}, assets.IDs())

	s, err := LoadSCADA(scadaCSV, assets)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 10*time.Minute, s.Interval)
	assert.Equal(t, 500.0, s.Power[0][0])
	assert.True(t, s.IsDerated(0, 1))
	assert.True(t, math.IsNaN(s.Power[1][1])) // empty cell pivots to NaN

	rean, err := LoadReanalysis("merra2", reanCSV)
	require.NoError(t, err)
	assert.Equal(t, "merra2", rean.Product)
	assert.Equal(t, 2, rean.Len())

	m, err := LoadSpeedupMap(speedupCSV)
	require.NoError(t, err)
	assert.InDelta(t, 90.0, m.SectorWidth, 1e-12)
	assert.InDelta(t, 1.1, m.Factor("T1", 90), 1e-12)
}

func TestLoadSCADAUnknownAsset(t *testing.T) {
	dir := t.TempDir()
	scadaCSV := dir + "/scada.csv"
	writeFile(t, scadaCSV,
		"timestamp,asset_id,power_kw,wind_speed_ms,wind_direction_deg\n"+
			"2015-01-01 00:00,T9,500,8.1,270\n")

	_, err := LoadSCADA(scadaCSV, AssetSet{{ID: "T1"}})
	assert.ErrorIs(t, err, ErrUnknownAsset)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
