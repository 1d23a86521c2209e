// Package exporter writes pipeline results to disk.
//
// Every metric family becomes one xlsx workbook with up to four sheets:
// the organoid-level table, its tidy form, the per-group table and the
// per-group tidy form. Tidy tables can also be written as UTF-8 CSV with
// a BOM so spreadsheet tools open them cleanly.
//
// Statistics reports are plain text files in the statistics directory,
// with Tukey tables duplicated as CSV.
//
// ReadTidySheet loads a tidy sheet back, which the replicate merge uses to
// recover organoid identity from earlier runs.
package exporter
