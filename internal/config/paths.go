package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains every location a run reads from or writes to.
// This is the single source of truth for output file names.
type Paths struct {
	InputDir      string
	OutputDir     string
	DataDir       string
	StatisticsDir string
	MergeDir      string
}

// NewPaths resolves the configured directories. Relative data and
// statistics directories live under the output directory.
func NewPaths(cfg *Config) *Paths {
	out := cfg.Output.Dir
	return &Paths{
		InputDir:      cfg.Experiment.InputDir,
		OutputDir:     out,
		DataDir:       under(out, cfg.Output.DataDir),
		StatisticsDir: under(out, cfg.Output.StatisticsDir),
		MergeDir:      cfg.Merge.OutputDir,
	}
}

func under(root, dir string) string {
	if dir == "" {
		return root
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// EnsureDirectories creates the output directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.OutputDir, p.DataDir, p.StatisticsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// InputPattern joins a glob pattern onto the input directory.
func (p *Paths) InputPattern(pattern string) string {
	if pattern == "" || filepath.IsAbs(pattern) {
		return pattern
	}
	return filepath.Join(p.InputDir, pattern)
}

// WorkbookPath returns the workbook for a metric family.
func (p *Paths) WorkbookPath(family string) string {
	return filepath.Join(p.DataDir, family+".xlsx")
}

// TidyCSVPath returns the tidy CSV export for a metric family.
func (p *Paths) TidyCSVPath(family string) string {
	return filepath.Join(p.DataDir, family+"_tidy.csv")
}

// StatisticsPath returns a statistics report file.
func (p *Paths) StatisticsPath(name string) string {
	return filepath.Join(p.StatisticsDir, name+".txt")
}

// ForMerge returns paths that place every merge output in the merge
// directory.
func (p *Paths) ForMerge() *Paths {
	return &Paths{
		InputDir:      p.InputDir,
		OutputDir:     p.MergeDir,
		DataDir:       p.MergeDir,
		StatisticsDir: p.MergeDir,
		MergeDir:      p.MergeDir,
	}
}

// LogPathResolution logs the resolved locations
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Resolved run paths",
		slog.String("input_dir", p.InputDir),
		slog.String("output_dir", p.OutputDir),
		slog.String("data_dir", p.DataDir),
		slog.String("statistics_dir", p.StatisticsDir))
}
