// Package plant holds the validated inputs the wake-loss engine consumes:
// the time-indexed SCADA observation series, the turbine asset set, long-term
// reanalysis wind-resource series, and the optional wind-speedup heterogeneity
// map. It also provides the CSV loaders used by the CLI.
//
// The engine's input contract (enforced by Series.Validate):
//
//   - every turbine shares the same, uniformly spaced timestamp index;
//   - power, wind speed and wind direction are present for every
//     (turbine, timestamp) cell (NaN marks a missing sample);
//   - the derated flags, when present, cover the same grid.
//
// Upstream concerns (schema validation of raw SCADA exports, northing
// calibration of wind directions) are assumed already applied; this package
// only checks the shape the engine depends on.
package plant
