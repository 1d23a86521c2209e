package merge

import (
	"context"
	"log/slog"
	"path/filepath"

	"organoidcli/internal/config"
	apperrors "organoidcli/internal/errors"
	"organoidcli/internal/exporter"
	"organoidcli/internal/infrastructure"
	"organoidcli/internal/tables"
	"organoidcli/internal/validation"
	"organoidcli/pkg/contracts/domain"
)

// Replicate is one independently processed run, reloaded from disk.
type Replicate struct {
	Location  string
	CellCount *domain.WideTable[domain.Identity]
	Invaded   *domain.WideTable[domain.Identity]
	Distance  *domain.WideTable[domain.Identity]
}

// Source loads replicates from their result locations.
type Source interface {
	Load(ctx context.Context, location string) (*Replicate, error)
}

// WorkbookSource reads the tidy sheets a run exported.
type WorkbookSource struct {
	cfg       config.MergeConfig
	validator *validation.FileValidator
	logger    *slog.Logger
}

// NewWorkbookSource creates a source. A nil logger uses the global one.
func NewWorkbookSource(cfg config.MergeConfig, logger *slog.Logger) *WorkbookSource {
	return &WorkbookSource{
		cfg:       cfg,
		validator: validation.NewFileValidator(logger),
		logger:    infrastructure.WithComponent(logger, "merge_source"),
	}
}

// Load reads the cell count, invaded and distance sheets found under
// location. File names may be glob patterns; the first match is used.
// Cell counts are required; the other tables are skipped when their file
// is not configured.
func (s *WorkbookSource) Load(ctx context.Context, location string) (*Replicate, error) {
	rep := &Replicate{Location: location}
	var err error

	if rep.CellCount, err = s.table(location, s.cfg.CellCount, config.FamilyCellCount); err != nil {
		return nil, err
	}
	if rep.CellCount == nil {
		return nil, apperrors.NewConfigError("merge.cell_count.file is required", nil)
	}
	if rep.Invaded, err = s.table(location, s.cfg.Invaded, config.FamilyAbove); err != nil {
		return nil, err
	}
	if rep.Distance, err = s.table(location, s.cfg.Distance, config.FamilyDistance); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Loaded replicate",
		slog.String("location", location),
		slog.Int("organoids", rep.CellCount.Width()))
	return rep, nil
}

func (s *WorkbookSource) table(location string, spec config.WorkbookSpec, name string) (*domain.WideTable[domain.Identity], error) {
	if spec.File == "" {
		return nil, nil
	}
	path, err := s.validator.FirstWorkbook(filepath.Join(location, spec.File))
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateExcelFile(path, spec.Sheet); err != nil {
		return nil, err
	}

	tidy, err := exporter.ReadTidySheet(path, spec.Sheet)
	if err != nil {
		return nil, err
	}
	for _, r := range tidy.Rows {
		if r.Organoid == 0 {
			return nil, apperrors.NewValidationError("replicate sheet has rows without organoid identity").
				WithContext("path", path).
				WithContext("sheet", spec.Sheet)
		}
	}
	tidy.Name = name
	return tables.FromTidy(tidy, domain.TidyRow.Identity), nil
}
