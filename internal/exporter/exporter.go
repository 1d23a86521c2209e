package exporter

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"organoidcli/internal/config"
	apperrors "organoidcli/internal/errors"
	"organoidcli/internal/infrastructure"
	"organoidcli/pkg/contracts/domain"
)

// Exporter writes metric families and statistics reports to the output
// tree.
type Exporter struct {
	paths    *config.Paths
	opts     config.OutputConfig
	csv      *CSVWriter
	workbook *WorkbookWriter
	logger   *slog.Logger
}

// NewExporter creates an exporter. A nil logger uses the global one.
func NewExporter(paths *config.Paths, opts config.OutputConfig, logger *slog.Logger) *Exporter {
	logger = infrastructure.WithComponent(logger, "exporter")
	return &Exporter{
		paths:    paths,
		opts:     opts,
		csv:      NewCSVWriter(paths, logger),
		workbook: NewWorkbookWriter(logger),
		logger:   logger,
	}
}

// Export writes each family's workbook and, when enabled, its tidy CSV.
// It returns the paths written.
func (e *Exporter) Export(ctx context.Context, families ...Family) ([]string, error) {
	var written []string
	for _, fam := range families {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if e.opts.Workbooks {
			path := e.paths.WorkbookPath(fam.Name)
			if err := e.workbook.Write(path, fam.Sheets); err != nil {
				return written, err
			}
			written = append(written, path)
		}
		if !e.opts.TidyCSV {
			continue
		}
		for _, tidy := range fam.Tidy {
			if tidy.Len() == 0 {
				continue
			}
			if err := e.csv.WriteTidy(tidy); err != nil {
				return written, apperrors.NewStorageError("failed to write tidy CSV", err).WithContext("family", tidy.Name)
			}
			written = append(written, e.paths.TidyCSVPath(tidy.Name))
		}
	}
	e.logger.InfoContext(ctx, "Exported metric families",
		slog.Int("families", len(families)),
		slog.Int("files", len(written)))
	return written, nil
}

// WriteReport writes a statistics text report. It does nothing when text
// reports are disabled.
func (e *Exporter) WriteReport(ctx context.Context, name, text string) (string, error) {
	if !e.opts.StatisticsText {
		return "", nil
	}
	path := e.paths.StatisticsPath(name)
	if err := WriteText(path, text); err != nil {
		return "", err
	}
	e.logger.DebugContext(ctx, "Wrote statistics report", slog.String("path", path))
	return path, nil
}

// WriteComparisons writes a Tukey table next to its text report.
func (e *Exporter) WriteComparisons(ctx context.Context, name string, comparisons []domain.PairwiseComparison) (string, error) {
	if !e.opts.StatisticsText || len(comparisons) == 0 {
		return "", nil
	}
	path := filepath.Join(e.paths.StatisticsDir, name+"_tukey.csv")
	if err := e.csv.WriteComparisons(path, comparisons); err != nil {
		return "", apperrors.NewStorageError("failed to write comparisons", err).WithContext("path", path)
	}
	return path, nil
}

// WriteText writes text to path, creating its directory.
func WriteText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return storageError(path, "failed to create directory", err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return storageError(path, "failed to write report", err)
	}
	return nil
}
