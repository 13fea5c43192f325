package wakeloss

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/openwind/wakeloss/pkg/plant"
	"github.com/openwind/wakeloss/pkg/stats"
)

// runUQ executes cfg.NumSim independent trials of the pipeline and folds the
// outcomes into mean/std summaries. Trials are embarrassingly parallel: each
// draws from its own (seed, trial) PCG stream and writes only its own slot,
// so the result is identical for any worker count.
func (a *Analysis) runUQ(cfg Config, por *plant.Series) (*Result, error) {
	trials := cfg.NumSim
	outcomes := make([]*pipelineOutput, trials)
	errs := make([]error, trials)

	workers := runtime.NumCPU()
	if workers > trials {
		workers = trials
	}
	idxCh := make(chan int)
	var wg sync.WaitGroup
	var done atomic.Int64
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				outcomes[i], errs[i] = a.runTrial(cfg, por, i)
				if a.progress != nil {
					a.progress(int(done.Add(1)), trials)
				}
			}
		}()
	}
	for i := 0; i < trials; i++ {
		idxCh <- i
	}
	close(idxCh)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("%w: trial %d: %v", ErrTrialFailed, i, err)
		}
	}

	nAssets := len(outcomes[0].porTurbines)
	res := &Result{
		RunID:    uuid.New(),
		UQ:       true,
		Trials:   trials,
		AssetIDs: por.Assets.IDs(),
		POR:      Estimate{Turbines: make([]Stat, nAssets)},
		LT:       Estimate{Turbines: make([]Stat, nAssets)},
	}

	// single aggregation pass in trial order keeps the reported statistics
	// independent of completion order
	buf := make([]float64, trials)
	collect := func(pick func(*pipelineOutput) float64) Stat {
		for i, out := range outcomes {
			buf[i] = pick(out)
		}
		mean, std := stats.MeanStd(buf)
		return Stat{Mean: mean, Std: std}
	}
	res.POR.Plant = collect(func(o *pipelineOutput) float64 { return o.porPlant })
	res.LT.Plant = collect(func(o *pipelineOutput) float64 { return o.ltPlant })
	for i := 0; i < nAssets; i++ {
		res.POR.Turbines[i] = collect(func(o *pipelineOutput) float64 { return o.porTurbines[i] })
		res.LT.Turbines[i] = collect(func(o *pipelineOutput) float64 { return o.ltTurbines[i] })
	}
	return res, nil
}

// runTrial resolves the per-trial random analysis choices and runs the
// pipeline once. The draw order is fixed (product, bin width, sector width,
// LT years, bootstrap) so that a given (seed, trial) pair always produces the
// same choices.
func (a *Analysis) runTrial(cfg Config, por *plant.Series, trial int) (*pipelineOutput, error) {
	rng := rand.New(rand.NewPCG(cfg.Seed, uint64(trial)))

	var p trialParams
	p.product = cfg.ReanalysisProducts[rng.IntN(len(cfg.ReanalysisProducts))]

	p.wdBinWidth = cfg.WDBinWidth + (rng.Float64()*2-1)*cfg.WDBinWidthUQHalfWidth
	if p.wdBinWidth < 1 {
		p.wdBinWidth = 1
	}

	if cfg.FreestreamSectorBounds != nil {
		p.bounds = cfg.FreestreamSectorBounds
	} else {
		p.sectorWidth = cfg.FreestreamSectorWidth.Sample(rng)
	}

	p.numYears = cfg.NumYearsLT.SampleInt(rng)
	p.resample = blockResample(rng, por.Len(), blockLen(cfg.BootstrapBlock, por.Interval))

	return a.runPipeline(cfg, por, p)
}

// blockLen converts the bootstrap block duration into a sample count.
func blockLen(block, interval time.Duration) int {
	if interval <= 0 || block <= interval {
		return 1
	}
	return int(block / interval)
}

// blockResample draws contiguous blocks of length blockLen with replacement
// and concatenates them, trimmed to n indices.
func blockResample(rng *rand.Rand, n, blockLen int) []int {
	if blockLen > n {
		blockLen = n
	}
	idx := make([]int, 0, n+blockLen)
	for len(idx) < n {
		start := rng.IntN(n - blockLen + 1)
		for k := 0; k < blockLen; k++ {
			idx = append(idx, start+k)
		}
	}
	return idx[:n]
}
