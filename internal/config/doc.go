// Package config loads the run configuration for the organoid pipeline.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables use the ORGANOID_ prefix followed by the
// section and field names:
//
//	ORGANOID_EXPERIMENT_INPUT_DIR=Data_Raw
//	ORGANOID_EXPERIMENT_TIMEPOINTS=1days,5days
//	ORGANOID_EXPERIMENT_THRESHOLDS_ABOVE=40
//	ORGANOID_LOGGING_LEVEL=debug
//
// List-of-record settings (groups, batches, explicit order, input specs)
// are only read from the file.
//
// # Validation
//
// Struct tags are checked with validator/v10, followed by cross-field
// rules: fixed thresholds must be ordered, the quantile threshold needs a
// declared reference group, and group display names must be unique.
//
// # Usage
//
//	cfg, err := config.Load("experiment.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ordering := cfg.Ordering()
//	paths := config.NewPaths(cfg)
package config
