// Package dataprocessing turns raw measurement exports into per-organoid
// value sequences.
//
// # Architecture
//
// Three pieces cooperate:
//
// 1. FilenameParser: decodes batch, group, timepoint and organoid index
// from a file path using the configured token grammar
// 2. ReadMeasurementFile: reads a delimited export, skipping the preamble
// lines that precede the header row
// 3. DataExtractor: matches files per measurement kind, reads the target
// columns and removes negative distance artifacts
//
// # Usage
//
//	parser := dataprocessing.NewFilenameParser(dataprocessing.GrammarFromConfig(cfg.Experiment))
//	extractor := dataprocessing.NewDataExtractor(parser, files.NewDiscovery(paths.InputDir),
//	    dataprocessing.ReaderOptions{HeaderSkip: 2}, logger)
//	m, err := extractor.Extract(ctx, cfg.Experiment.Inputs)
//
// Identities are decoded once here. Later stages key everything by
// domain.Identity and never parse labels again.
package dataprocessing
