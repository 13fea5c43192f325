package wakeloss

import "errors"

var (
	// ErrConfig indicates an invalid analysis configuration; the run fails
	// before any computation.
	ErrConfig = errors.New("wakeloss: invalid configuration")

	// ErrUnknownProduct indicates a configured reanalysis product with no
	// loaded series.
	ErrUnknownProduct = errors.New("wakeloss: unknown reanalysis product")

	// ErrTrialFailed wraps a Monte Carlo trial failure. A failed trial fails
	// the whole run; silently skipping it would bias the reported statistics.
	ErrTrialFailed = errors.New("wakeloss: trial failed")
)
