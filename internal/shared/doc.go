// Package shared holds code used across packages that belongs to no
// single stage of the pipeline.
//
// The testutil subpackage provides test helpers: a buffered slog handler
// for asserting on reported warnings, and writers for measurement export
// fixtures with the two-line preamble the analysis software emits.
package shared
