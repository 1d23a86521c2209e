// Package pipeline wires extraction, table building, derived metrics,
// normalisation, statistics and export into one run, and drives the
// replicate merge over the workbooks earlier runs exported.
//
// Every stage runs inside its own span and leaves a StageRecord on the
// result. Optional stages with nothing to do are recorded as skipped; any
// other failure aborts the run.
package pipeline
