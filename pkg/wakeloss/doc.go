// Package wakeloss estimates the energy a wind plant loses to aerodynamic
// wake effects, at plant and turbine granularity, for the observed period of
// record (POR) and as a long-term (LT) corrected figure reweighted against a
// multi-year reanalysis climatology.
//
// The analysis chain is: bucket plant wind directions into sectors, identify
// the freestream (unwaked) turbines for the sectors of interest, aggregate
// them into a reference signal, integrate actual versus expected energy over
// the POR, and reweight the bin-wise efficiency by the long-term wind
// distribution. An Analysis either runs that chain once (deterministic mode)
// or wraps it in Monte Carlo trials with perturbed inputs and reports
// mean/standard-deviation summaries (UQ mode).
//
// All randomness is owned by the run: trial t draws from a PCG stream seeded
// with (Config.Seed, t), so results are bit-for-bit reproducible for a given
// seed and configuration, independent of execution order and parallelism.
package wakeloss
