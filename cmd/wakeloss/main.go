package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/spf13/cobra"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/openwind/wakeloss/pkg/plant"
	"github.com/openwind/wakeloss/pkg/powercurve"
	"github.com/openwind/wakeloss/pkg/stats"
	"github.com/openwind/wakeloss/pkg/wakeloss"
)

type opts struct {
	// inputs
	assetsPath     string
	scadaPath      string
	reanalysis     []string // product=path
	speedupPath    string
	powerCurvePath string
	configPath     string

	// analysis window and candidates
	candidates []string
	start      string
	end        string
	endLT      string

	// mode
	uq     bool
	numSim int
	seed   uint64

	// outputs
	csvPath  string
	jsonPath string
	verbose  bool
}

// params are the tunable analysis parameters, loadable from a YAML file or
// environment. The defaults match the library's deterministic defaults.
type params struct {
	WDBinWidth      float64 `yaml:"wd_bin_width" env:"WAKELOSS_WD_BIN_WIDTH" env-default:"5"`
	WDBinWidthUQ    float64 `yaml:"wd_bin_width_uq_half_width" env:"WAKELOSS_WD_BIN_WIDTH_UQ" env-default:"2"`
	MADThresh       float64 `yaml:"wind_bin_mad_thresh" env:"WAKELOSS_MAD_THRESH" env-default:"7"`
	MinBinSamples   int     `yaml:"min_bin_samples" env:"WAKELOSS_MIN_BIN_SAMPLES" env-default:"5"`
	SectorWidthLo   float64 `yaml:"freestream_sector_width_lo" env:"WAKELOSS_SECTOR_WIDTH_LO" env-default:"90"`
	SectorWidthHi   float64 `yaml:"freestream_sector_width_hi" env:"WAKELOSS_SECTOR_WIDTH_HI" env-default:"90"`
	DeficitThresh   float64 `yaml:"freestream_deficit_thresh" env:"WAKELOSS_DEFICIT_THRESH" env-default:"0.05"`
	PowerMethod     string  `yaml:"freestream_power_method" env:"WAKELOSS_POWER_METHOD" env-default:"mean"`
	WindSpeedMethod string  `yaml:"freestream_wind_speed_method" env:"WAKELOSS_WS_METHOD" env-default:"mean"`
	DeratingCorr    bool    `yaml:"correct_for_derating" env:"WAKELOSS_CORRECT_DERATING" env-default:"true"`
	NumYearsLo      float64 `yaml:"num_years_lt_lo" env:"WAKELOSS_NUM_YEARS_LO" env-default:"20"`
	NumYearsHi      float64 `yaml:"num_years_lt_hi" env:"WAKELOSS_NUM_YEARS_HI" env-default:"20"`
	NoWakesThresh   float64 `yaml:"no_wakes_ws_thresh" env:"WAKELOSS_NO_WAKES_THRESH" env-default:"13"`
	AssumeNoWakes   bool    `yaml:"assume_no_wakes_high_ws" env:"WAKELOSS_ASSUME_NO_WAKES" env-default:"true"`
	WSBinWidth      float64 `yaml:"ws_bin_width" env:"WAKELOSS_WS_BIN_WIDTH" env-default:"1"`
	Heterogeneity   bool    `yaml:"correct_for_ws_heterogeneity" env:"WAKELOSS_HETEROGENEITY" env-default:"false"`
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "wakeloss --assets assets.csv --scada scada.csv --reanalysis merra2=merra2.csv [flags]",
		Short: "Wind plant wake-loss estimation from operational data",
		Long: `The wakeloss tool estimates the fraction of potential energy a wind plant
loses to aerodynamic wake effects, for the observed period of record and as a
long-term corrected figure against a multi-year reanalysis climatology.

It ingests SCADA observations and reanalysis series from CSV, identifies the
unwaked (freestream) turbines per wind-direction sector, integrates actual
versus potential energy and reports plant and per-turbine losses. With --uq it
wraps the estimate in Monte Carlo trials and reports mean and standard
deviation.

Examples:
  wakeloss --assets assets.csv --scada scada.csv --reanalysis merra2=m2.csv --reanalysis era5=e5.csv
  wakeloss --assets assets.csv --scada scada.csv --reanalysis era5=e5.csv --uq --num-sim 100 --csv out.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(o)
		},
	}

	root.Flags().StringVar(&o.assetsPath, "assets", "", "asset metadata CSV (asset_id,lat,lon)")
	root.Flags().StringVar(&o.scadaPath, "scada", "", "SCADA observations CSV (long format)")
	root.Flags().StringArrayVar(&o.reanalysis, "reanalysis", nil, "reanalysis series as product=path, repeatable")
	root.Flags().StringVar(&o.speedupPath, "speedup", "", "wind-speed speedup factor map CSV")
	root.Flags().StringVar(&o.powerCurvePath, "power-curve", "", "theoretical power curve CSV (wind_speed_ms,power_kw)")
	root.Flags().StringVar(&o.configPath, "config", "", "analysis parameter YAML file")

	root.Flags().StringSliceVar(&o.candidates, "wind-direction-assets", nil, "turbines used for the direction reference (default: all)")
	root.Flags().StringVar(&o.start, "start", "", "POR window start (YYYY-MM-DD)")
	root.Flags().StringVar(&o.end, "end", "", "POR window end (YYYY-MM-DD)")
	root.Flags().StringVar(&o.endLT, "end-lt", "", "end of the long-term reanalysis window (YYYY-MM-DD)")

	root.Flags().BoolVar(&o.uq, "uq", false, "run Monte Carlo uncertainty quantification")
	root.Flags().IntVar(&o.numSim, "num-sim", 100, "number of Monte Carlo trials")
	root.Flags().Uint64Var(&o.seed, "seed", 42, "random seed for UQ trials")

	root.Flags().StringVar(&o.csvPath, "csv", "", "write per-turbine results to CSV file")
	root.Flags().StringVar(&o.jsonPath, "json", "", "write the full result to JSON file")
	root.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")

	_ = root.MarkFlagRequired("assets")
	_ = root.MarkFlagRequired("scada")
	_ = root.MarkFlagRequired("reanalysis")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(o opts) error {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var p params
	var err error
	if o.configPath != "" {
		err = cleanenv.ReadConfig(o.configPath, &p)
	} else {
		err = cleanenv.ReadEnv(&p)
	}
	if err != nil {
		return fmt.Errorf("parameters: %w", err)
	}

	assets, err := plant.LoadAssets(o.assetsPath)
	if err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	scada, err := plant.LoadSCADA(o.scadaPath, assets)
	if err != nil {
		return fmt.Errorf("scada: %w", err)
	}
	log.Debug("loaded observations", "assets", len(assets), "steps", scada.Len(), "interval", scada.Interval)

	reanalysis := make(map[string]*plant.Reanalysis, len(o.reanalysis))
	products := make([]string, 0, len(o.reanalysis))
	for _, spec := range o.reanalysis {
		product, path, ok := strings.Cut(spec, "=")
		if !ok {
			return fmt.Errorf("reanalysis %q: want product=path", spec)
		}
		r, err := plant.LoadReanalysis(product, path)
		if err != nil {
			return fmt.Errorf("reanalysis %s: %w", product, err)
		}
		reanalysis[product] = r
		products = append(products, product)
	}

	cfg, err := buildConfig(o, p, products)
	if err != nil {
		return err
	}

	var engineOpts []wakeloss.Option
	engineOpts = append(engineOpts, wakeloss.WithLogger(log))
	if o.speedupPath != "" {
		m, err := plant.LoadSpeedupMap(o.speedupPath)
		if err != nil {
			return fmt.Errorf("speedup map: %w", err)
		}
		engineOpts = append(engineOpts, wakeloss.WithSpeedupMap(m))
	}
	if o.powerCurvePath != "" {
		c, err := powercurve.LoadCSV(o.powerCurvePath)
		if err != nil {
			return fmt.Errorf("power curve: %w", err)
		}
		engineOpts = append(engineOpts, wakeloss.WithPowerCurve(c))
	}

	var bar *pb.ProgressBar
	if o.uq {
		bar = pb.New(cfg.NumSim)
		bar.Output = os.Stderr
		bar.ShowTimeLeft = true
		bar.Start()
		engineOpts = append(engineOpts, wakeloss.WithProgress(func(done, total int) {
			bar.Set(done)
		}))
	}

	a, err := wakeloss.New(scada, reanalysis, cfg, engineOpts...)
	if err != nil {
		return err
	}
	res, err := a.Run(nil)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	printSummary(res)

	if o.csvPath != "" {
		if err := writeCSV(o.csvPath, res); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	if o.jsonPath != "" {
		if err := writeJSON(o.jsonPath, res); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	}
	return nil
}

func buildConfig(o opts, p params, products []string) (wakeloss.Config, error) {
	cfg := wakeloss.DefaultConfig(o.uq)
	cfg.WindDirectionAssetIDs = o.candidates
	cfg.NumSim = o.numSim
	cfg.Seed = o.seed
	cfg.ReanalysisProducts = products

	cfg.WDBinWidth = p.WDBinWidth
	cfg.WDBinWidthUQHalfWidth = p.WDBinWidthUQ
	cfg.WindBinMADThresh = p.MADThresh
	cfg.MinBinSamples = p.MinBinSamples
	cfg.FreestreamSectorWidth = wakeloss.Interval(p.SectorWidthLo, p.SectorWidthHi)
	cfg.FreestreamDeficitThresh = p.DeficitThresh
	cfg.FreestreamPowerMethod = stats.Method(p.PowerMethod)
	cfg.FreestreamWindSpeedMethod = stats.Method(p.WindSpeedMethod)
	cfg.CorrectForDerating = p.DeratingCorr
	cfg.NumYearsLT = wakeloss.Interval(p.NumYearsLo, p.NumYearsHi)
	cfg.NoWakesWSThreshLTCorr = p.NoWakesThresh
	cfg.AssumeNoWakesHighWSLTCorr = p.AssumeNoWakes
	cfg.WSBinWidthLTCorr = p.WSBinWidth
	cfg.CorrectForWSHeterogeneity = p.Heterogeneity

	var err error
	if cfg.StartDate, err = parseDate(o.start); err != nil {
		return cfg, fmt.Errorf("start: %w", err)
	}
	if cfg.EndDate, err = parseDate(o.end); err != nil {
		return cfg, fmt.Errorf("end: %w", err)
	}
	if cfg.EndDateLT, err = parseDate(o.endLT); err != nil {
		return cfg, fmt.Errorf("end-lt: %w", err)
	}
	return cfg, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}

func printSummary(res *wakeloss.Result) {
	fmt.Println()
	if res.UQ {
		fmt.Printf("wake losses over %d Monte Carlo trials (run %s):\n\n", res.Trials, res.RunID)
	} else {
		fmt.Printf("wake losses, deterministic run %s:\n\n", res.RunID)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if res.UQ {
		fmt.Fprintln(tw, "TURBINE\tPOR LOSS\tPOR STD\tLT LOSS\tLT STD")
		fmt.Fprintln(tw, "-------\t--------\t-------\t-------\t------")
		for i, id := range res.AssetIDs {
			fmt.Fprintf(tw, "%s\t%.3f %%\t%.3f %%\t%.3f %%\t%.3f %%\n", id,
				res.POR.Turbines[i].Mean*100, res.POR.Turbines[i].Std*100,
				res.LT.Turbines[i].Mean*100, res.LT.Turbines[i].Std*100)
		}
		fmt.Fprintf(tw, "PLANT\t%.3f %%\t%.3f %%\t%.3f %%\t%.3f %%\n",
			res.POR.Plant.Mean*100, res.POR.Plant.Std*100,
			res.LT.Plant.Mean*100, res.LT.Plant.Std*100)
	} else {
		fmt.Fprintln(tw, "TURBINE\tPOR LOSS\tLT LOSS")
		fmt.Fprintln(tw, "-------\t--------\t-------")
		for i, id := range res.AssetIDs {
			fmt.Fprintf(tw, "%s\t%.3f %%\t%.3f %%\n", id,
				res.POR.Turbines[i].Mean*100, res.LT.Turbines[i].Mean*100)
		}
		fmt.Fprintf(tw, "PLANT\t%.3f %%\t%.3f %%\n", res.POR.Plant.Mean*100, res.LT.Plant.Mean*100)
	}
	tw.Flush()

	if !res.UQ {
		fmt.Println()
		fmt.Printf("- energy (actual):    %s\n", res.ActualEnergy.Humanized())
		fmt.Printf("- energy (potential): %s\n", res.ExpectedEnergy.Humanized())
	}
	fmt.Println()
}

func writeCSV(path string, res *wakeloss.Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"asset_id", "por_loss", "por_std", "lt_loss", "lt_std"}); err != nil {
		return err
	}
	writeRow := func(id string, por, lt wakeloss.Stat) error {
		return w.Write([]string{
			id,
			strconv.FormatFloat(por.Mean, 'g', -1, 64),
			strconv.FormatFloat(por.Std, 'g', -1, 64),
			strconv.FormatFloat(lt.Mean, 'g', -1, 64),
			strconv.FormatFloat(lt.Std, 'g', -1, 64),
		})
	}
	for i, id := range res.AssetIDs {
		if err := writeRow(id, res.POR.Turbines[i], res.LT.Turbines[i]); err != nil {
			return err
		}
	}
	if err := writeRow("PLANT", res.POR.Plant, res.LT.Plant); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeJSON(path string, res *wakeloss.Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
