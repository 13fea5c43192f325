package wakeloss

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openwind/wakeloss/pkg/freestream"
	"github.com/openwind/wakeloss/pkg/stats"
)

func mustDuration(t *testing.T, s string) time.Duration {
	t.Helper()
	d, err := time.ParseDuration(s)
	require.NoError(t, err)
	return d
}

func TestRange(t *testing.T) {
	t.Run("scalar", func(t *testing.T) {
		r := Scalar(90)
		assert.True(t, r.IsScalar())
		assert.Equal(t, 90.0, r.Mid())
		rng := rand.New(rand.NewPCG(0, 0))
		assert.Equal(t, 90.0, r.Sample(rng))
		assert.Equal(t, 90, r.SampleInt(rng))
	})

	t.Run("interval", func(t *testing.T) {
		r := Interval(50, 110)
		assert.False(t, r.IsScalar())
		assert.Equal(t, 80.0, r.Mid())
		rng := rand.New(rand.NewPCG(0, 0))
		for i := 0; i < 200; i++ {
			v := r.Sample(rng)
			assert.GreaterOrEqual(t, v, 50.0)
			assert.Less(t, v, 110.0)
		}
	})

	t.Run("sample_int_covers_bounds", func(t *testing.T) {
		r := Interval(10, 20)
		rng := rand.New(rand.NewPCG(0, 0))
		seen := map[int]bool{}
		for i := 0; i < 500; i++ {
			v := r.SampleInt(rng)
			assert.GreaterOrEqual(t, v, 10)
			assert.LessOrEqual(t, v, 20)
			seen[v] = true
		}
		assert.True(t, seen[10])
		assert.True(t, seen[20])
	})
}

func TestDefaultConfig(t *testing.T) {
	det := DefaultConfig(false)
	assert.False(t, det.UQ)
	assert.True(t, det.FreestreamSectorWidth.IsScalar())
	assert.True(t, det.NumYearsLT.IsScalar())
	assert.NoError(t, det.Validate())

	uq := DefaultConfig(true)
	assert.True(t, uq.UQ)
	assert.Equal(t, Interval(50, 110), uq.FreestreamSectorWidth)
	assert.Equal(t, Interval(10, 20), uq.NumYearsLT)
	assert.ErrorIs(t, uq.Validate(), ErrConfig, "UQ defaults still need NumSim")
	uq.NumSim = 100
	assert.NoError(t, uq.Validate())
}

func TestConfigWith(t *testing.T) {
	base := DefaultConfig(false)

	t.Run("nil_is_identity", func(t *testing.T) {
		assert.Equal(t, base, base.With(nil))
	})

	t.Run("set_fields_replace", func(t *testing.T) {
		end := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
		bounds := freestream.SectorBounds{Low: 225, High: 315}
		got := base.With(&Overrides{
			WDBinWidth:             ptr(10.0),
			EndDate:                ptr(end),
			FreestreamSectorBounds: &bounds,
			FreestreamPowerMethod:  ptr(stats.Median),
			NumYearsLT:             ptr(Interval(10, 20)),
			ReanalysisProducts:     []string{"era5"},
			CorrectForDerating:     ptr(false),
		})
		assert.Equal(t, 10.0, got.WDBinWidth)
		assert.Equal(t, end, got.EndDate)
		assert.Equal(t, &bounds, got.FreestreamSectorBounds)
		assert.Equal(t, stats.Median, got.FreestreamPowerMethod)
		assert.Equal(t, Interval(10, 20), got.NumYearsLT)
		assert.Equal(t, []string{"era5"}, got.ReanalysisProducts)
		assert.False(t, got.CorrectForDerating)

		// untouched fields keep their constructed values
		assert.Equal(t, base.WindBinMADThresh, got.WindBinMADThresh)
		assert.Equal(t, base.NoWakesWSThreshLTCorr, got.NoWakesWSThreshLTCorr)
	})

	t.Run("receiver_unchanged", func(t *testing.T) {
		before := base
		_ = base.With(&Overrides{WDBinWidth: ptr(1.0)})
		assert.Equal(t, before, base)
	})
}

func TestConfigValidate(t *testing.T) {
	mk := func(mutate func(*Config)) Config {
		cfg := DefaultConfig(false)
		mutate(&cfg)
		return cfg
	}
	tests := []struct {
		name   string
		cfg    Config
		wantOK bool
	}{
		{"defaults", DefaultConfig(false), true},
		{"zero_bin_width", mk(func(c *Config) { c.WDBinWidth = 0 }), false},
		{"negative_bin_width", mk(func(c *Config) { c.WDBinWidth = -5 }), false},
		{"inverted_dates", mk(func(c *Config) {
			c.StartDate = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
			c.EndDate = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
		}), false},
		{"bad_power_method", mk(func(c *Config) { c.FreestreamPowerMethod = "mode" }), false},
		{"bad_ws_method", mk(func(c *Config) { c.FreestreamWindSpeedMethod = "" }), false},
		{"inverted_sector_width", mk(func(c *Config) { c.FreestreamSectorWidth = Range{Lo: 110, Hi: 50} }), false},
		{"zero_sector_width", mk(func(c *Config) { c.FreestreamSectorWidth = Scalar(0) }), false},
		{"inverted_lt_years", mk(func(c *Config) { c.NumYearsLT = Range{Lo: 20, Hi: 10} }), false},
		{"no_products", mk(func(c *Config) { c.ReanalysisProducts = nil }), false},
		{"uq_without_trials", mk(func(c *Config) { c.UQ = true }), false},
		{"uq_with_trials", mk(func(c *Config) { c.UQ = true; c.NumSim = 50 }), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantOK {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrConfig)
			}
		})
	}
}
