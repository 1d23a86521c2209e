package derived

import (
	"context"
	"fmt"
	"log/slog"

	"organoidcli/internal/config"
	apperrors "organoidcli/internal/errors"
	"organoidcli/internal/infrastructure"
	"organoidcli/pkg/contracts/domain"
)

// Options selects the optional count tables. A nil threshold skips its
// table.
type Options struct {
	Above Threshold
	Below Threshold
}

// Metrics holds every table derived from one run's distances.
type Metrics struct {
	CellCount *domain.WideTable[domain.Identity]
	Above     *domain.WideTable[domain.Identity]
	Below     *domain.WideTable[domain.Identity]

	// Filtered holds distances below each organoid's own outlier bound.
	Filtered      *domain.WideTable[domain.Identity]
	OutlierBounds map[domain.Identity]float64

	// Stats holds one single-value table per described statistic, and
	// Beyond the number of cells exceeding that statistic.
	Stats  map[domain.StatName]*domain.WideTable[domain.Identity]
	Beyond map[domain.StatName]*domain.WideTable[domain.Identity]
}

// Engine builds derived metric tables from a distance table.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an engine. A nil logger uses the global one.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: infrastructure.WithComponent(logger, "derived")}
}

// ResolveAbove picks the above-threshold: a fixed value wins, otherwise
// the reference-group rule applies when configured, using either a named
// statistic of the pooled reference distances or the mean per-organoid
// quantile. A nil result means nothing is configured.
func (e *Engine) ResolveAbove(ctx context.Context, dts *domain.WideTable[domain.Identity], thresholds config.ThresholdConfig, invasion config.InvasionConfig) (Threshold, error) {
	if thresholds.Above != nil {
		return FixedThreshold(*thresholds.Above), nil
	}
	if !invasion.Enabled() {
		return nil, nil
	}

	var (
		t    Threshold
		rule string
		err  error
	)
	if invasion.Statistic != "" {
		rule = invasion.Statistic
		t, err = StatisticThreshold(dts, domain.StatName(invasion.Statistic), invasion.ReferenceGroup)
	} else {
		rule = fmt.Sprintf("quantile %g", invasion.Quantile)
		t, err = InvasionThreshold(dts, invasion.Quantile, invasion.ReferenceGroup)
	}
	if err != nil {
		return nil, err
	}
	for batch, v := range t {
		e.logger.InfoContext(ctx, "Derived invasion threshold",
			slog.String("batch", batch),
			slog.String("reference_group", invasion.ReferenceGroup),
			slog.String("rule", rule),
			slog.Float64("threshold", v))
	}
	return t, nil
}

// Compute derives every metric table. Organoids without distance data
// keep empty columns in the statistic tables and zero counts elsewhere.
func (e *Engine) Compute(ctx context.Context, dts *domain.WideTable[domain.Identity], opts Options) (*Metrics, error) {
	keys := dts.Keys()
	m := &Metrics{
		OutlierBounds: make(map[domain.Identity]float64, len(keys)),
		Stats:         make(map[domain.StatName]*domain.WideTable[domain.Identity], len(domain.DescribedStats)),
		Beyond:        make(map[domain.StatName]*domain.WideTable[domain.Identity], len(domain.DescribedStats)),
	}

	cn := make([]domain.Column[domain.Identity], 0, len(keys))
	filtered := make([]domain.Column[domain.Identity], 0, len(keys))
	stats := make(map[domain.StatName][]domain.Column[domain.Identity])
	beyond := make(map[domain.StatName][]domain.Column[domain.Identity])

	for _, col := range dts.Columns() {
		id := col.Key
		cn = append(cn, domain.Column[domain.Identity]{Key: id, Values: []float64{float64(col.Len())}})

		if col.Len() == 0 {
			e.logger.WarnContext(ctx, "Organoid has no distance data",
				slog.String("organoid", id.String()))
			filtered = append(filtered, domain.Column[domain.Identity]{Key: id})
			for _, name := range domain.DescribedStats {
				stats[name] = append(stats[name], domain.Column[domain.Identity]{Key: id})
				beyond[name] = append(beyond[name], domain.Column[domain.Identity]{Key: id})
			}
			continue
		}

		kept, bound, err := RemoveOutliers(col.Values)
		if err != nil {
			return nil, err
		}
		m.OutlierBounds[id] = bound
		filtered = append(filtered, domain.Column[domain.Identity]{Key: id, Values: kept})

		s, err := Describe(col.Values)
		if err != nil {
			return nil, err
		}
		above, err := CountAboveEachStat(col.Values, domain.DescribedStats)
		if err != nil {
			return nil, err
		}
		for _, name := range domain.DescribedStats {
			v, err := s.Value(name)
			if err != nil {
				return nil, err
			}
			stats[name] = append(stats[name], domain.Column[domain.Identity]{Key: id, Values: []float64{v}})
			beyond[name] = append(beyond[name], domain.Column[domain.Identity]{Key: id, Values: []float64{float64(above[name])}})
		}
	}

	m.CellCount = domain.NewWideTable(config.FamilyCellCount, cn)
	m.Filtered = domain.NewWideTable(config.FamilyFiltered, filtered)
	for _, name := range domain.DescribedStats {
		m.Stats[name] = domain.NewWideTable(StatsFamily(name), stats[name])
		m.Beyond[name] = domain.NewWideTable(BeyondFamily(name), beyond[name])
	}

	var err error
	if opts.Above == nil {
		e.logger.WarnContext(ctx, "No above-threshold configured, skipping above counts")
	} else {
		if m.Above, err = countTable(config.FamilyAbove, dts, opts.Above, CountAbove); err != nil {
			return nil, err
		}
		if n := countAtThreshold(dts, opts.Above); n > 0 {
			e.logger.DebugContext(ctx, "Cells lie exactly on the above-threshold and are counted in neither table",
				slog.Int("cells", n))
		}
	}
	if opts.Below == nil {
		e.logger.WarnContext(ctx, "No below-threshold configured, skipping below counts")
	} else if m.Below, err = countTable(config.FamilyBelow, dts, opts.Below, CountBelow); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "Derived metrics computed",
		slog.Int("organoids", len(keys)),
		slog.Bool("above", m.Above != nil),
		slog.Bool("below", m.Below != nil))
	return m, nil
}

func countTable(name string, dts *domain.WideTable[domain.Identity], t Threshold, count func([]float64, float64) int) (*domain.WideTable[domain.Identity], error) {
	cols := dts.Columns()
	for i, c := range cols {
		cut, ok := t.For(c.Key.Batch)
		if !ok {
			return nil, apperrors.NewEmptyGroupError(c.Key.Group, "no threshold for batch").
				WithContext("batch", c.Key.Batch).
				WithContext("family", name)
		}
		cols[i].Values = []float64{float64(count(c.Values, cut))}
	}
	return domain.NewWideTable(name, cols), nil
}

func countAtThreshold(dts *domain.WideTable[domain.Identity], t Threshold) int {
	n := 0
	for _, c := range dts.Columns() {
		if cut, ok := t.For(c.Key.Batch); ok {
			n += CountEqual(c.Values, cut)
		}
	}
	return n
}

// StatsFamily names the table of one described statistic.
func StatsFamily(name domain.StatName) string {
	return config.FamilyStats + "_" + string(name)
}

// BeyondFamily names the table of cells beyond one statistic.
func BeyondFamily(name domain.StatName) string {
	return config.FamilyBeyondStat + "_" + string(name)
}
