package longterm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openwind/wakeloss/pkg/plant"
	"github.com/openwind/wakeloss/pkg/windbin"
)

// makeReanalysis spreads the given (ws, wd) samples hourly backwards from a
// fixed end date.
func makeReanalysis(ws, wd []float64) *plant.Reanalysis {
	end := time.Date(2015, 11, 25, 0, 0, 0, 0, time.UTC)
	r := &plant.Reanalysis{Product: "merra2"}
	for i := range ws {
		r.Times = append(r.Times, end.Add(time.Duration(i-len(ws))*time.Hour))
		r.WindSpeed = append(r.WindSpeed, ws[i])
		r.WindDirection = append(r.WindDirection, wd[i])
	}
	return r
}

func westerlyCorrector(t *testing.T) *Corrector {
	t.Helper()
	b, err := windbin.New(90, 0)
	require.NoError(t, err)
	return &Corrector{Binner: b, WSBinWidth: 1}
}

// porFixture: one turbine, two wind-speed regimes in the west sector.
// Low bin (5.5 m/s): eff 0.9 at 100 kW expected. High bin (10.5 m/s):
// eff 0.95 at 200 kW expected.
func porFixture() (refWS []float64, sector []int, usable []bool, actual, expected [][]float64) {
	refWS = []float64{5.5, 5.5, 10.5, 10.5}
	sector = []int{3, 3, 3, 3}
	usable = []bool{true, true, true, true}
	actual = [][]float64{{90, 90, 190, 190}}
	expected = [][]float64{{100, 100, 200, 200}}
	return
}

func TestCorrectReweighting(t *testing.T) {
	c := westerlyCorrector(t)
	refWS, sector, usable, actual, expected := porFixture()

	// long-term resource: 25% low-speed, 75% high-speed, all westerly
	rean := makeReanalysis(
		[]float64{5.5, 10.5, 10.5, 10.5},
		[]float64{270, 270, 270, 270},
	)

	res, err := c.Correct(rean, 1, time.Time{}, refWS, sector, usable, actual, expected)
	require.NoError(t, err)

	// num = 0.25*100*0.9 + 0.75*200*0.95 = 165
	// den = 0.25*100 + 0.75*200 = 175
	assert.InDelta(t, 1-165.0/175.0, res.Plant, 1e-9)
	require.Len(t, res.Turbines, 1)
	assert.InDelta(t, res.Plant, res.Turbines[0], 1e-12)
	assert.InDelta(t, 1.0, res.CoveredFraction, 1e-9)
}

func TestCorrectNoWakesCutoff(t *testing.T) {
	c := westerlyCorrector(t)
	c.AssumeNoWakes = true
	c.NoWakesThresh = 8

	refWS, sector, usable, actual, expected := porFixture()
	rean := makeReanalysis(
		[]float64{5.5, 10.5, 10.5, 10.5},
		[]float64{270, 270, 270, 270},
	)

	res, err := c.Correct(rean, 1, time.Time{}, refWS, sector, usable, actual, expected)
	require.NoError(t, err)

	// the high-speed bin is assumed wake-free: eff forced to 1
	// num = 0.25*100*0.9 + 0.75*200*1 = 172.5
	assert.InDelta(t, 1-172.5/175.0, res.Plant, 1e-9)
}

func TestCorrectDropsUncoveredBins(t *testing.T) {
	c := westerlyCorrector(t)
	refWS, sector, usable, actual, expected := porFixture()

	// half the long-term mass sits at 20 m/s, which the POR never saw
	rean := makeReanalysis(
		[]float64{5.5, 10.5, 10.5, 10.5, 20, 20, 20, 20},
		[]float64{270, 270, 270, 270, 270, 270, 270, 270},
	)

	res, err := c.Correct(rean, 1, time.Time{}, refWS, sector, usable, actual, expected)
	require.NoError(t, err)

	// uncovered mass drops out; the covered bins renormalize to the same mix
	assert.InDelta(t, 1-165.0/175.0, res.Plant, 1e-9)
	assert.InDelta(t, 0.5, res.CoveredFraction, 1e-9)
}

func TestCorrectWindowing(t *testing.T) {
	c := westerlyCorrector(t)
	refWS, sector, usable, actual, expected := porFixture()

	// 2 years of data: old year all high-speed, recent year balanced.
	end := time.Date(2015, 11, 25, 0, 0, 0, 0, time.UTC)
	r := &plant.Reanalysis{Product: "era5"}
	add := func(ts time.Time, ws float64) {
		r.Times = append(r.Times, ts)
		r.WindSpeed = append(r.WindSpeed, ws)
		r.WindDirection = append(r.WindDirection, 270)
	}
	add(end.AddDate(-2, 0, 1), 10.5)
	add(end.AddDate(-2, 0, 2), 10.5)
	add(end.AddDate(0, -6, 0), 5.5)
	add(end.AddDate(0, -3, 0), 10.5)

	res, err := c.Correct(r, 1, end, refWS, sector, usable, actual, expected)
	require.NoError(t, err)

	// only the recent year counts: 50/50 mix
	// num = 0.5*100*0.9 + 0.5*200*0.95 = 140; den = 150
	assert.InDelta(t, 1-140.0/150.0, res.Plant, 1e-9)
}

func TestCorrectErrors(t *testing.T) {
	c := westerlyCorrector(t)
	refWS, sector, usable, actual, expected := porFixture()

	t.Run("bad_span", func(t *testing.T) {
		rean := makeReanalysis([]float64{5.5}, []float64{270})
		_, err := c.Correct(rean, 0, time.Time{}, refWS, sector, usable, actual, expected)
		assert.ErrorIs(t, err, ErrBadSpan)
	})
	t.Run("no_overlap", func(t *testing.T) {
		// long-term wind entirely easterly; POR saw only westerlies
		rean := makeReanalysis([]float64{5.5, 10.5}, []float64{90, 90})
		_, err := c.Correct(rean, 1, time.Time{}, refWS, sector, usable, actual, expected)
		assert.ErrorIs(t, err, ErrNoCoverage)
	})
	t.Run("empty_window", func(t *testing.T) {
		rean := makeReanalysis([]float64{5.5}, []float64{270})
		_, err := c.Correct(rean, 1, time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
			refWS, sector, usable, actual, expected)
		assert.ErrorIs(t, err, plant.ErrEmptyWindow)
	})
	t.Run("shape_mismatch", func(t *testing.T) {
		rean := makeReanalysis([]float64{5.5}, []float64{270})
		_, err := c.Correct(rean, 1, time.Time{}, refWS[:2], sector, usable, actual, expected)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})
}
