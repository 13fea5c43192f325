package plant

import "errors"

var (
	// ErrEmptySeries indicates an observation series with no timestamps or no turbines.
	ErrEmptySeries = errors.New("plant: empty observation series")

	// ErrRaggedSeries indicates per-turbine columns of unequal length.
	ErrRaggedSeries = errors.New("plant: ragged observation series")

	// ErrIrregularInterval indicates timestamps that are not uniformly spaced.
	ErrIrregularInterval = errors.New("plant: irregular sampling interval")

	// ErrUnknownAsset indicates a turbine id referenced but not present in the asset set.
	ErrUnknownAsset = errors.New("plant: unknown asset id")

	// ErrEmptyWindow indicates a date window that selects no samples.
	ErrEmptyWindow = errors.New("plant: empty analysis window")

	// ErrBadRecord indicates a malformed CSV record during loading.
	ErrBadRecord = errors.New("plant: malformed record")
)
