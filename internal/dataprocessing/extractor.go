package dataprocessing

import (
	"context"
	"log/slog"
	"math"

	"organoidcli/internal/config"
	apperrors "organoidcli/internal/errors"
	"organoidcli/internal/files"
	"organoidcli/internal/infrastructure"
	"organoidcli/pkg/contracts/domain"
)

// Positions holds one organoid's per-cell coordinates, row-aligned.
type Positions struct {
	X, Y, Z []float64
}

// Axis returns the values of one coordinate.
func (p Positions) Axis(a domain.Axis) []float64 {
	switch a {
	case domain.AxisX:
		return p.X
	case domain.AxisY:
		return p.Y
	default:
		return p.Z
	}
}

// Measurements is everything read for one run. Distances have had
// negative artifacts removed, along with the matching rows of intensity
// and position data. Nothing here is modified after Extract returns.
type Measurements struct {
	Distance   map[domain.Identity][]float64
	Intensity  map[domain.Identity][]float64
	Position   map[domain.Identity]Positions
	Volume     map[domain.Identity]float64
	Area       map[domain.Identity]float64
	FullVolume *float64
	FullArea   *float64

	FilesRead        int
	FilesSkipped     int
	NegativeExcluded int
}

// Identities returns every organoid with distance data.
func (m *Measurements) Identities() []domain.Identity {
	out := make([]domain.Identity, 0, len(m.Distance))
	for id := range m.Distance {
		out = append(out, id)
	}
	return out
}

// ColumnResult is the raw output of one extraction pass.
type ColumnResult struct {
	Columns map[domain.Identity][][]float64
	Read    int
	Skipped int
}

// DataExtractor reads measurement exports into per-organoid sequences.
type DataExtractor struct {
	parser    *FilenameParser
	discovery *files.Discovery
	opts      ReaderOptions
	logger    *slog.Logger
}

// NewDataExtractor creates an extractor. A nil logger uses the global one.
func NewDataExtractor(parser *FilenameParser, discovery *files.Discovery, opts ReaderOptions, logger *slog.Logger) *DataExtractor {
	return &DataExtractor{
		parser:    parser,
		discovery: discovery,
		opts:      opts,
		logger:    infrastructure.WithComponent(logger, "extractor"),
	}
}

// ExtractColumns reads the selected columns of every file matching spec.
// Files whose path contains an exclude substring are skipped before their
// name is parsed. Identities are parsed from the path below the input
// directory. A filename without a required identity token, an
// unreadable file or a repeated identity fails the whole extraction.
func (e *DataExtractor) ExtractColumns(ctx context.Context, spec config.InputSpec) (*ColumnResult, error) {
	kept, skipped, err := e.discovery.Match(spec.Pattern, spec.Exclude)
	if err != nil {
		return nil, apperrors.NewExtractionError(spec.Pattern, "invalid file pattern", err)
	}
	if len(spec.Columns) == 0 {
		return nil, apperrors.NewExtractionError(spec.Pattern, "no target column configured", nil)
	}

	selectors := make([]ColumnSelector, len(spec.Columns))
	for i, c := range spec.Columns {
		selectors[i] = ParseColumnSelector(c)
	}

	res := &ColumnResult{
		Columns: make(map[domain.Identity][][]float64, len(kept)),
		Skipped: len(skipped),
	}
	origin := make(map[domain.Identity]string, len(kept))

	for _, f := range kept {
		id, err := e.parser.Parse(f.RelPath)
		if err != nil {
			return nil, err
		}
		if prev, dup := origin[id]; dup {
			return nil, apperrors.NewExtractionError(f.Path, "identity already extracted from another file", nil).
				WithContext("identity", id.String()).
				WithContext("first_path", prev)
		}

		mf, err := ReadMeasurementFile(f.Path, e.opts)
		if err != nil {
			return nil, err
		}
		cols := make([][]float64, len(selectors))
		for i, sel := range selectors {
			if cols[i], err = mf.Column(sel); err != nil {
				return nil, err
			}
		}

		origin[id] = f.Path
		res.Columns[id] = cols
		res.Read++
	}

	e.logger.InfoContext(ctx, "Extracted measurement files",
		slog.String("pattern", spec.Pattern),
		slog.Int("read", res.Read),
		slog.Int("skipped", res.Skipped))

	return res, nil
}

// Sequences extracts the first selected column per organoid. Missing
// cells are kept as NaN so paired channels stay row-aligned.
func (e *DataExtractor) Sequences(ctx context.Context, spec config.InputSpec) (map[domain.Identity][]float64, *ColumnResult, error) {
	res, err := e.ExtractColumns(ctx, spec)
	if err != nil {
		return nil, nil, err
	}
	out := make(map[domain.Identity][]float64, len(res.Columns))
	for id, cols := range res.Columns {
		out[id] = cols[0]
	}
	return out, res, nil
}

// Scalars extracts one value per organoid. A file with several rows keeps
// only the largest value, which discards spurious secondary surfaces.
func (e *DataExtractor) Scalars(ctx context.Context, spec config.InputSpec) (map[domain.Identity]float64, *ColumnResult, error) {
	res, err := e.ExtractColumns(ctx, spec)
	if err != nil {
		return nil, nil, err
	}
	out := make(map[domain.Identity]float64, len(res.Columns))
	for id, cols := range res.Columns {
		out[id] = maxValue(cols[0])
	}
	return out, res, nil
}

// Positions extracts X, Y and Z columns per organoid.
func (e *DataExtractor) Positions(ctx context.Context, spec config.InputSpec) (map[domain.Identity]Positions, *ColumnResult, error) {
	if len(spec.Columns) != len(domain.Axes) {
		return nil, nil, apperrors.NewExtractionError(spec.Pattern, "position extraction needs exactly three columns", nil)
	}
	res, err := e.ExtractColumns(ctx, spec)
	if err != nil {
		return nil, nil, err
	}
	out := make(map[domain.Identity]Positions, len(res.Columns))
	for id, cols := range res.Columns {
		out[id] = Positions{X: cols[0], Y: cols[1], Z: cols[2]}
	}
	return out, res, nil
}

// Reference reads a single value from the first file matching spec. The
// file is not tied to an organoid, so its name is not parsed.
func (e *DataExtractor) Reference(ctx context.Context, spec config.InputSpec) (float64, error) {
	kept, _, err := e.discovery.Match(spec.Pattern, spec.Exclude)
	if err != nil {
		return 0, apperrors.NewExtractionError(spec.Pattern, "invalid file pattern", err)
	}
	if len(kept) == 0 {
		return 0, apperrors.NewExtractionError(spec.Pattern, "no reference file found", nil)
	}
	if len(spec.Columns) == 0 {
		return 0, apperrors.NewExtractionError(spec.Pattern, "no target column configured", nil)
	}

	mf, err := ReadMeasurementFile(kept[0].Path, e.opts)
	if err != nil {
		return 0, err
	}
	values, err := mf.Column(ParseColumnSelector(spec.Columns[0]))
	if err != nil {
		return 0, err
	}
	for _, v := range values {
		if !math.IsNaN(v) {
			e.logger.DebugContext(ctx, "Read reference value",
				slog.String("path", kept[0].Path),
				slog.Float64("value", v))
			return v, nil
		}
	}
	return 0, apperrors.NewExtractionError(kept[0].Path, "reference file has no value", nil)
}

// Extract reads every configured measurement kind.
func (e *DataExtractor) Extract(ctx context.Context, inputs config.InputsConfig) (*Measurements, error) {
	m := &Measurements{}

	distance, res, err := e.Sequences(ctx, inputs.Distance)
	if err != nil {
		return nil, err
	}
	m.count(res)

	var intensity map[domain.Identity][]float64
	if inputs.Intensity.Enabled() {
		if intensity, res, err = e.Sequences(ctx, inputs.Intensity); err != nil {
			return nil, err
		}
		m.count(res)
	}

	var positions map[domain.Identity]Positions
	if inputs.Position.Enabled() {
		if positions, res, err = e.Positions(ctx, inputs.Position); err != nil {
			return nil, err
		}
		m.count(res)
	}

	if inputs.Volume.Enabled() {
		if m.Volume, res, err = e.Scalars(ctx, inputs.Volume); err != nil {
			return nil, err
		}
		m.count(res)
	}
	if inputs.Area.Enabled() {
		if m.Area, res, err = e.Scalars(ctx, inputs.Area); err != nil {
			return nil, err
		}
		m.count(res)
	}
	if inputs.FullVolume.Enabled() {
		v, err := e.Reference(ctx, inputs.FullVolume)
		if err != nil {
			return nil, err
		}
		m.FullVolume = &v
	}
	if inputs.FullArea.Enabled() {
		v, err := e.Reference(ctx, inputs.FullArea)
		if err != nil {
			return nil, err
		}
		m.FullArea = &v
	}

	cleaned, err := ExcludeNegative(distance, intensity, positions)
	if err != nil {
		return nil, err
	}
	m.Distance = cleaned.Distance
	m.Intensity = cleaned.Intensity
	m.Position = cleaned.Position
	m.NegativeExcluded = cleaned.Excluded

	e.logger.InfoContext(ctx, "Extraction complete",
		slog.Int("organoids", len(m.Distance)),
		slog.Int("files_read", m.FilesRead),
		slog.Int("files_skipped", m.FilesSkipped),
		slog.Int("negative_excluded", m.NegativeExcluded))

	return m, nil
}

func (m *Measurements) count(res *ColumnResult) {
	m.FilesRead += res.Read
	m.FilesSkipped += res.Skipped
}

func maxValue(values []float64) float64 {
	best := math.Inf(-1)
	for _, v := range values {
		if !math.IsNaN(v) && v > best {
			best = v
		}
	}
	return best
}
