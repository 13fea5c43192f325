package wakeloss

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/openwind/wakeloss/pkg/energy"
	"github.com/openwind/wakeloss/pkg/freestream"
	"github.com/openwind/wakeloss/pkg/longterm"
	"github.com/openwind/wakeloss/pkg/plant"
	"github.com/openwind/wakeloss/pkg/powercurve"
	"github.com/openwind/wakeloss/pkg/stats"
	"github.com/openwind/wakeloss/pkg/types"
	"github.com/openwind/wakeloss/pkg/windbin"
)

// Analysis is one configured wake-loss analysis over a plant dataset. The
// observation series, reanalysis series and configuration are read-only
// shared inputs; Run never mutates them.
type Analysis struct {
	scada      *plant.Series
	reanalysis map[string]*plant.Reanalysis
	speedup    *plant.SpeedupMap
	curve      *powercurve.Curve
	cfg        Config

	log      *slog.Logger
	progress func(done, total int)
}

// Option configures optional collaborators of an Analysis.
type Option func(*Analysis)

// WithLogger sets the logger used for partial-data warnings.
func WithLogger(l *slog.Logger) Option { return func(a *Analysis) { a.log = l } }

// WithSpeedupMap supplies the heterogeneity correction table required when
// CorrectForWSHeterogeneity is enabled.
func WithSpeedupMap(m *plant.SpeedupMap) Option { return func(a *Analysis) { a.speedup = m } }

// WithPowerCurve supplies a theoretical power curve; without one the curve is
// fit empirically from the freestream reference samples.
func WithPowerCurve(c *powercurve.Curve) Option { return func(a *Analysis) { a.curve = c } }

// WithProgress registers a callback invoked after each completed trial.
func WithProgress(fn func(done, total int)) Option { return func(a *Analysis) { a.progress = fn } }

// New validates the inputs against cfg and returns a ready analysis.
func New(scada *plant.Series, reanalysis map[string]*plant.Reanalysis, cfg Config, opts ...Option) (*Analysis, error) {
	if err := scada.Validate(); err != nil {
		return nil, err
	}
	a := &Analysis{
		scada:      scada,
		reanalysis: reanalysis,
		cfg:        cfg,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.check(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// check cross-validates cfg against the engine's data.
func (a *Analysis) check(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, id := range cfg.WindDirectionAssetIDs {
		if a.scada.Assets.Index(id) < 0 {
			return fmt.Errorf("%w: wind direction asset %s not in asset set", ErrConfig, id)
		}
	}
	for _, product := range cfg.ReanalysisProducts {
		if _, ok := a.reanalysis[product]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownProduct, product)
		}
	}
	if cfg.CorrectForWSHeterogeneity && a.speedup == nil {
		return fmt.Errorf("%w: heterogeneity correction enabled without a speedup map", ErrConfig)
	}
	return nil
}

// Run executes the analysis with the given per-invocation overrides applied
// to a fresh copy of the construction-time configuration. Repeating the same
// call yields an identical Result (up to the RunID).
func (a *Analysis) Run(o *Overrides) (*Result, error) {
	cfg := a.cfg.With(o)
	if err := a.check(cfg); err != nil {
		return nil, err
	}
	por, err := a.scada.Window(cfg.StartDate, cfg.EndDate)
	if err != nil {
		return nil, fmt.Errorf("POR window: %w", err)
	}
	if cfg.UQ {
		return a.runUQ(cfg, por)
	}
	return a.runDeterministic(cfg, por)
}

func (a *Analysis) runDeterministic(cfg Config, por *plant.Series) (*Result, error) {
	p := trialParams{
		product:     cfg.ReanalysisProducts[0],
		wdBinWidth:  cfg.WDBinWidth,
		bounds:      cfg.FreestreamSectorBounds,
		sectorWidth: cfg.FreestreamSectorWidth.Mid(),
		numYears:    int(math.Round(cfg.NumYearsLT.Mid())),
	}
	out, err := a.runPipeline(cfg, por, p)
	if err != nil {
		return nil, err
	}
	res := &Result{
		RunID:    uuid.New(),
		Trials:   1,
		AssetIDs: por.Assets.IDs(),
		POR:      pointEstimate(out.porPlant, out.porTurbines),
		LT:       pointEstimate(out.ltPlant, out.ltTurbines),
	}
	res.ActualEnergy = out.actualEnergy
	res.ExpectedEnergy = out.expectedEnergy
	return res, nil
}

func pointEstimate(plantLoss float64, turbines []float64) Estimate {
	est := Estimate{Plant: Stat{Mean: plantLoss}, Turbines: make([]Stat, len(turbines))}
	for i, v := range turbines {
		est.Turbines[i] = Stat{Mean: v}
	}
	return est
}

// trialParams are the per-run (or per-trial) resolved analysis choices.
type trialParams struct {
	product     string
	wdBinWidth  float64
	bounds      *freestream.SectorBounds
	sectorWidth float64
	numYears    int
	resample    []int // nil: no bootstrap
}

// pipelineOutput is the outcome of one full pass of the analysis chain.
type pipelineOutput struct {
	porPlant    float64
	porTurbines []float64
	ltPlant     float64
	ltTurbines  []float64

	actualEnergy   types.Energy
	expectedEnergy types.Energy
}

// runPipeline runs binning, freestream selection, reference building, energy
// aggregation and long-term correction once. It is a pure function of
// (series, cfg, params); the receiver contributes only static collaborators.
func (a *Analysis) runPipeline(cfg Config, por *plant.Series, p trialParams) (*pipelineOutput, error) {
	s := por
	if p.resample != nil {
		s = por.Select(p.resample)
	}

	candidates := cfg.WindDirectionAssetIDs
	if len(candidates) == 0 {
		candidates = s.Assets.IDs()
	}
	candIdx := make([]int, len(candidates))
	for i, id := range candidates {
		candIdx[i] = s.Assets.Index(id)
	}

	// plant wind-direction and wind-speed reference over the candidates
	n := s.Len()
	wdRef := make([]float64, n)
	wsRef := make([]float64, n)
	dirs := make([]float64, 0, len(candIdx))
	speeds := make([]float64, 0, len(candIdx))
	for t := 0; t < n; t++ {
		dirs = dirs[:0]
		speeds = speeds[:0]
		for _, i := range candIdx {
			if d := s.WindDirection[i][t]; !math.IsNaN(d) {
				dirs = append(dirs, d)
			}
			if w := s.WindSpeed[i][t]; !math.IsNaN(w) {
				speeds = append(speeds, w)
			}
		}
		wdRef[t] = stats.CircularMeanDeg(dirs)
		wsRef[t] = stats.Aggregate(stats.Mean, speeds)
	}

	binner, err := windbin.New(p.wdBinWidth, cfg.WindBinMADThresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfig, err)
	}
	if cfg.MinBinSamples > 0 {
		binner.MinSamples = cfg.MinBinSamples
	}
	binned := binner.Bin(wdRef, wsRef)

	bounds := p.bounds
	if bounds == nil {
		center, err := freestream.PrevailingCenter(binned)
		if err != nil {
			return nil, err
		}
		b := freestream.BoundsFromWidth(center, p.sectorWidth)
		bounds = &b
	}

	selected, err := freestream.Select(s, binned, candidates, *bounds, cfg.FreestreamDeficitThresh)
	if err != nil {
		return nil, err
	}

	ref := freestream.Build(s, binned, selected, freestream.BuildOptions{
		WindSpeedMethod:    cfg.FreestreamWindSpeedMethod,
		PowerMethod:        cfg.FreestreamPowerMethod,
		CorrectForDerating: cfg.CorrectForDerating,
	})
	if ref.DeratedDrops > 0 || ref.UnusableSteps > 0 {
		a.log.Warn("reference coverage reduced",
			"derated_exclusions", ref.DeratedDrops,
			"unusable_steps", ref.UnusableSteps)
	}

	curve := a.curve
	if curve == nil {
		curve, err = powercurve.FitEmpirical(maskUsable(ref.WindSpeed, ref.Usable), maskUsable(ref.Power, ref.Usable), cfg.WSBinWidthLTCorr)
		if err != nil {
			return nil, err
		}
	}

	// expected power per turbine from the (optionally speedup-scaled)
	// reference wind speed
	expected := make([][]float64, len(s.Assets))
	for i, asset := range s.Assets {
		expected[i] = make([]float64, n)
		for t := 0; t < n; t++ {
			if !ref.Usable[t] {
				expected[i][t] = math.NaN()
				continue
			}
			ws := ref.WindSpeed[t]
			if cfg.CorrectForWSHeterogeneity {
				ws *= a.speedup.Factor(asset.ID, wdRef[t])
			}
			expected[i][t] = curve.At(ws)
		}
	}

	totals, err := energy.Aggregate(s.Power, expected, ref.Usable, s.IntervalHours())
	if err != nil {
		return nil, err
	}

	out := &pipelineOutput{
		porTurbines:    make([]float64, len(s.Assets)),
		actualEnergy:   types.Energy(totals.PlantActual),
		expectedEnergy: types.Energy(totals.PlantExpected),
	}
	if out.porPlant, err = energy.WakeLoss(totals.PlantActual, totals.PlantExpected); err != nil {
		return nil, err
	}
	for i := range s.Assets {
		if out.porTurbines[i], err = energy.WakeLoss(totals.Actual[i], totals.Expected[i]); err != nil {
			return nil, fmt.Errorf("turbine %s: %w", s.Assets[i].ID, err)
		}
	}

	corrector := &longterm.Corrector{
		Binner:        binner,
		WSBinWidth:    cfg.WSBinWidthLTCorr,
		NoWakesThresh: cfg.NoWakesWSThreshLTCorr,
		AssumeNoWakes: cfg.AssumeNoWakesHighWSLTCorr,
	}
	lt, err := corrector.Correct(a.reanalysis[p.product], p.numYears, cfg.EndDateLT,
		ref.WindSpeed, binned.Sector, ref.Usable, s.Power, expected)
	if err != nil {
		return nil, err
	}
	out.ltPlant = lt.Plant
	out.ltTurbines = lt.Turbines
	return out, nil
}

func maskUsable(xs []float64, usable []bool) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		if usable[i] {
			out[i] = x
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
