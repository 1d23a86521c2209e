package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"organoidcli/internal/config"
	"organoidcli/internal/dataprocessing"
	"organoidcli/internal/derived"
	apperrors "organoidcli/internal/errors"
	"organoidcli/internal/exporter"
	"organoidcli/internal/files"
	"organoidcli/internal/infrastructure"
	"organoidcli/internal/normalize"
	"organoidcli/internal/statistics"
	"organoidcli/internal/tables"
	"organoidcli/internal/validation"
	"organoidcli/pkg/contracts/domain"
)

// Pipeline runs one experiment from raw exports to workbooks and reports.
// Stages run one after another on the calling goroutine.
type Pipeline struct {
	cfg        *config.Config
	paths      *config.Paths
	ordering   *domain.GroupOrdering
	extractor  *dataprocessing.DataExtractor
	engine     *derived.Engine
	normalizer *normalize.Normalizer
	runner     statistics.Runner
	exporter   *exporter.Exporter
	validator  *validation.FileValidator
	telemetry  *infrastructure.Telemetry
	logger     *slog.Logger
}

// New wires a pipeline from a validated configuration. Telemetry may be
// nil, in which case no spans or metrics are recorded.
func New(cfg *config.Config, telemetry *infrastructure.Telemetry, logger *slog.Logger) *Pipeline {
	logger = infrastructure.WithComponent(logger, "pipeline")
	paths := config.NewPaths(cfg)
	ordering := cfg.Ordering()

	inputs := cfg.Experiment.Inputs
	opts := dataprocessing.ReaderOptions{HeaderSkip: inputs.HeaderSkip, Delimiter: ','}
	if d := []rune(inputs.Delimiter); len(d) == 1 {
		opts.Delimiter = d[0]
	}

	return &Pipeline{
		cfg:      cfg,
		paths:    paths,
		ordering: ordering,
		extractor: dataprocessing.NewDataExtractor(
			dataprocessing.NewFilenameParser(dataprocessing.GrammarFromConfig(cfg.Experiment)),
			files.NewDiscovery(paths.InputDir),
			opts,
			logger,
		),
		engine:     derived.NewEngine(logger),
		normalizer: normalize.NewNormalizer(ordering, logger),
		runner:     statistics.NewGonumRunner(cfg.Statistics.Alpha, logger),
		exporter:   exporter.NewExporter(paths, cfg.Output, logger),
		validator:  validation.NewFileValidator(logger),
		telemetry:  telemetry,
		logger:     logger,
	}
}

// WithRunner replaces the statistics backend.
func (p *Pipeline) WithRunner(r statistics.Runner) *Pipeline {
	p.runner = r
	return p
}

// Run executes every stage. The first failing stage aborts the run and
// its error is returned together with the partial stage records.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	res := &Result{
		RunID:    infrastructure.GetRunID(ctx),
		Ordering: p.ordering,
		Tables:   newTableSet(),
		Anova:    make(map[string]*domain.AnovaResult),
		Kruskal:  make(map[string]*domain.KruskalResult),
	}

	p.logger.InfoContext(ctx, "Starting run",
		slog.String("experiment", p.cfg.Experiment.Name),
		slog.String("input_dir", p.paths.InputDir),
		slog.Int("groups", p.ordering.Len()))
	p.paths.LogPathResolution(p.logger)

	stages := []struct {
		name string
		fn   func(context.Context, *Result) error
	}{
		{StageExtract, p.extract},
		{StageTables, p.buildTables},
		{StageDerived, p.derive},
		{StageNormalize, p.normalize},
		{StageStatistics, p.runStatistics},
		{StageExport, p.export},
	}
	for _, s := range stages {
		fn := s.fn
		if err := p.runStage(ctx, &res.Stages, s.name, func(ctx context.Context) error {
			return fn(ctx, res)
		}); err != nil {
			return res, err
		}
	}

	p.logger.InfoContext(ctx, "Run complete",
		slog.String("run_id", res.RunID),
		slog.Int("tables", res.Tables.Len()),
		slog.Int("files_written", len(res.Written)))
	return res, nil
}

func (p *Pipeline) extract(ctx context.Context, res *Result) error {
	if _, err := p.validator.ValidateInputDirectory(p.paths.InputDir, p.cfg.Experiment.Inputs.Distance.Pattern); err != nil {
		return err
	}
	m, err := p.extractor.Extract(ctx, p.cfg.Experiment.Inputs)
	if err != nil {
		return err
	}
	if len(m.Distance) == 0 {
		return apperrors.NewExtractionError(p.paths.InputPattern(p.cfg.Experiment.Inputs.Distance.Pattern), "no distance files matched", nil)
	}
	res.Measurements = m

	if p.telemetry != nil {
		pm := p.telemetry.Metrics
		pm.FilesExtracted.Add(ctx, int64(m.FilesRead))
		pm.FilesSkipped.Add(ctx, int64(m.FilesSkipped))
		pm.NegativeExcluded.Add(ctx, int64(m.NegativeExcluded))
		pm.Organoids.Add(ctx, int64(len(m.Distance)))
	}
	return nil
}

func (p *Pipeline) buildTables(ctx context.Context, res *Result) error {
	m := res.Measurements
	ordered, undeclared := p.ordering.OrderIdentities(m.Identities())
	res.Undeclared = undeclared
	if len(undeclared) > 0 {
		labels := make([]string, len(undeclared))
		for i, id := range undeclared {
			labels[i] = id.String()
		}
		p.logger.WarnContext(ctx, "Organoids outside the declared groups are dropped",
			slog.Int("count", len(undeclared)),
			slog.Any("organoids", labels))
	}

	distance := m.Distance
	if p.cfg.Experiment.ShiftToMinimum {
		distance = dataprocessing.ShiftToMinimum(distance)
	}
	res.Tables.Add(tables.BuildWide(config.FamilyDistance, distance, ordered))

	if m.Intensity != nil {
		res.Tables.Add(tables.BuildWide(config.FamilyIntensity, m.Intensity, ordered))
	}
	if m.Position != nil {
		res.Positions = tables.BuildPositions(config.FamilyPosition, m.Position, ordered)
	}
	if m.Volume != nil {
		volume := m.Volume
		if m.FullVolume != nil {
			volume = derived.OrganoidVolumes(*m.FullVolume, volume)
		} else {
			p.logger.WarnContext(ctx, "No full volume reference, exporting surface model volumes as read")
		}
		res.Tables.Add(tables.BuildScalar(config.FamilyVolume, volume, ordered))
	}
	if m.Area != nil {
		area := m.Area
		if m.FullArea != nil {
			area = derived.OrganoidAreas(*m.FullArea, area)
		} else {
			p.logger.WarnContext(ctx, "No full area reference, exporting surface model areas as read")
		}
		res.Tables.Add(tables.BuildScalar(config.FamilyArea, area, ordered))
	}
	return nil
}

func (p *Pipeline) derive(ctx context.Context, res *Result) error {
	dts, _ := res.Tables.Get(config.FamilyDistance)
	exp := p.cfg.Experiment

	above, err := p.engine.ResolveAbove(ctx, dts, exp.Thresholds, exp.Invasion)
	if err != nil {
		return err
	}
	res.Above = above

	opts := derived.Options{Above: above}
	if exp.Thresholds.Below != nil {
		opts.Below = derived.FixedThreshold(*exp.Thresholds.Below)
	}

	metrics, err := p.engine.Compute(ctx, dts, opts)
	if err != nil {
		return err
	}
	res.Derived = metrics

	res.Tables.Add(metrics.Filtered)
	res.Tables.Add(metrics.CellCount)
	res.Tables.Add(metrics.Above)
	res.Tables.Add(metrics.Below)
	if metrics.Above != nil {
		frac, skipped := normalize.Divide(config.FamilyFraction, metrics.Above, metrics.CellCount)
		if skipped > 0 {
			p.logger.WarnContext(ctx, "Organoids without cells have no invaded fraction",
				slog.Int("count", skipped))
		}
		res.Tables.Add(frac)
	}
	return nil
}

// normalize divides every count family by the run's baselines.
// Normalisation to total cells is required. The below-count and
// own-first-timepoint tables are skipped with a warning when a condition's
// baseline is zero, as for a control with no invaded cells at the first
// timepoint.
func (p *Pipeline) normalize(ctx context.Context, res *Result) error {
	metrics := res.Derived
	counts := []*domain.WideTable[domain.Identity]{metrics.CellCount, metrics.Above, metrics.Below}
	multiTimepoint := len(p.ordering.Timepoints()) > 1

	if metrics.Below == nil {
		p.logger.WarnContext(ctx, "No below-threshold counts, skipping normalisation to below")
	}
	if !multiTimepoint {
		p.logger.DebugContext(ctx, "Single timepoint, skipping normalisation to own first timepoint")
	}

	for _, values := range counts {
		if values == nil {
			continue
		}
		total, err := p.normalizer.ToMetricBaseline(ctx, values, metrics.CellCount, config.SuffixNormTotal)
		if err != nil {
			return err
		}
		res.Tables.Add(total)

		if metrics.Below != nil {
			below, err := p.normalizer.ToMetricBaseline(ctx, values, metrics.Below, config.SuffixNormBelow)
			if err = p.addOptional(ctx, res, values.Name()+config.SuffixNormBelow, below, err); err != nil {
				return err
			}
		}
		if multiTimepoint {
			own, err := p.normalizer.ToOwnFirstTimepoint(ctx, values, normalize.OwnReference(p.cfg.Experiment.OwnBaseline), config.SuffixNormOwn)
			if err = p.addOptional(ctx, res, values.Name()+config.SuffixNormOwn, own, err); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) addOptional(ctx context.Context, res *Result, family string, t *domain.WideTable[domain.Identity], err error) error {
	if errors.Is(err, apperrors.ErrEmptyGroup) {
		p.logger.WarnContext(ctx, "Baseline is zero or missing, skipping normalised table",
			slog.String("family", family),
			slog.String("error", err.Error()))
		res.SkippedTables = append(res.SkippedTables, family)
		return nil
	}
	if err != nil {
		return err
	}
	res.Tables.Add(t)
	return nil
}
