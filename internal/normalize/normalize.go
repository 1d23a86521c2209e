// Package normalize divides metric tables by baselines taken from a
// reference subset of the experiment.
package normalize

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "organoidcli/internal/errors"
	"organoidcli/internal/infrastructure"
	"organoidcli/internal/tables"
	"organoidcli/pkg/contracts/domain"
)

// Baseline maps a condition (batch and group, no timepoint) to its
// divisor.
type Baseline map[domain.GroupKey]float64

// For returns the divisor for a column's condition.
func (b Baseline) For(k domain.GroupKey) (float64, bool) {
	v, ok := b[k.Condition()]
	return v, ok
}

// BaselineAverage averages each group column of a combined table over the
// columns accepted by include. Groups outside the subset, or with no
// values, get no entry.
func BaselineAverage(combined *domain.WideTable[domain.GroupKey], include func(domain.GroupKey) bool) Baseline {
	sums := make(map[domain.GroupKey]float64)
	counts := make(map[domain.GroupKey]int)
	for _, col := range combined.Columns() {
		if !include(col.Key) || col.Len() == 0 {
			continue
		}
		c := col.Key.Condition()
		for _, v := range col.Values {
			sums[c] += v
		}
		counts[c] += col.Len()
	}
	out := make(Baseline, len(sums))
	for c, s := range sums {
		out[c] = s / float64(counts[c])
	}
	return out
}

// ToBaseline divides every value by the baseline of its column's
// condition. Empty columns stay empty. A column with values but no usable
// baseline fails with EmptyGroupError since the ratio is undefined.
func ToBaseline[K domain.ColumnKey](name string, values *domain.WideTable[K], baseline Baseline) (*domain.WideTable[K], error) {
	cols := values.Columns()
	for i, c := range cols {
		if c.Len() == 0 {
			continue
		}
		div, ok := baseline.For(c.Key.Key())
		if !ok || div == 0 {
			return nil, apperrors.NewEmptyGroupError(c.Key.Key().Condition().String(), "no usable baseline for column").
				WithContext("column", c.Key.String()).
				WithContext("family", name)
		}
		for j := range c.Values {
			cols[i].Values[j] /= div
		}
	}
	return domain.NewWideTable(name, cols), nil
}

// OwnReference selects the statistic taken at the first timepoint.
type OwnReference string

const (
	OwnMin  OwnReference = "min"
	OwnMean OwnReference = "mean"
)

// ToOwnFirstTimepoint divides each condition's values at every timepoint
// by that condition's own minimum or mean at the baseline timepoint.
func ToOwnFirstTimepoint[K domain.ColumnKey](name string, values *domain.WideTable[K], ordering *domain.GroupOrdering, ref OwnReference) (*domain.WideTable[K], error) {
	combined := tables.Combine(values, ordering)

	baseline := make(Baseline)
	for _, col := range combined.Columns() {
		if !ordering.IsBaseline(col.Key) || col.Len() == 0 {
			continue
		}
		switch ref {
		case OwnMin:
			lo := col.Values[0]
			for _, v := range col.Values[1:] {
				if v < lo {
					lo = v
				}
			}
			baseline[col.Key.Condition()] = lo
		case OwnMean:
			sum := 0.0
			for _, v := range col.Values {
				sum += v
			}
			baseline[col.Key.Condition()] = sum / float64(col.Len())
		default:
			return nil, apperrors.NewValidationError(fmt.Sprintf("unknown own-baseline statistic %q", ref))
		}
	}
	return ToBaseline(name, values, baseline)
}

// Divide computes numerator/denominator element by element for columns
// present in both tables. Cells without a partner, or with a zero
// denominator, are left missing and counted.
func Divide(name string, num, den *domain.WideTable[domain.Identity]) (*domain.WideTable[domain.Identity], int) {
	skipped := 0
	cols := num.Columns()
	for i, c := range cols {
		out := make([]float64, 0, c.Len())
		for j, v := range c.Values {
			d, ok := den.Cell(c.Key, j)
			if !ok || d == 0 {
				skipped++
				continue
			}
			out = append(out, v/d)
		}
		cols[i].Values = out
	}
	return domain.NewWideTable(name, cols), skipped
}

// Normalizer applies the run's normalisations using one shared ordering.
type Normalizer struct {
	ordering *domain.GroupOrdering
	logger   *slog.Logger
}

// NewNormalizer creates a normalizer. A nil logger uses the global one.
func NewNormalizer(ordering *domain.GroupOrdering, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		ordering: ordering,
		logger:   infrastructure.WithComponent(logger, "normalize"),
	}
}

// Baseline averages a metric over the baseline timepoint, per condition.
func (n *Normalizer) Baseline(ctx context.Context, metric *domain.WideTable[domain.Identity]) Baseline {
	b := BaselineAverage(tables.Combine(metric, n.ordering), n.ordering.IsBaseline)
	n.logger.DebugContext(ctx, "Computed baseline",
		slog.String("family", metric.Name()),
		slog.String("timepoint", n.ordering.BaselineTimepoint()),
		slog.Int("conditions", len(b)))
	return b
}

// ToMetricBaseline normalises values by the baseline of another metric
// (or the same one). The result is named family+suffix.
func (n *Normalizer) ToMetricBaseline(ctx context.Context, values, baselineMetric *domain.WideTable[domain.Identity], suffix string) (*domain.WideTable[domain.Identity], error) {
	out, err := ToBaseline(values.Name()+suffix, values, n.Baseline(ctx, baselineMetric))
	if err != nil {
		return nil, fmt.Errorf("normalize %s by %s: %w", values.Name(), baselineMetric.Name(), err)
	}
	return out, nil
}

// ToOwnFirstTimepoint normalises values by their own condition at the
// baseline timepoint.
func (n *Normalizer) ToOwnFirstTimepoint(ctx context.Context, values *domain.WideTable[domain.Identity], ref OwnReference, suffix string) (*domain.WideTable[domain.Identity], error) {
	out, err := ToOwnFirstTimepoint(values.Name()+suffix, values, n.ordering, ref)
	if err != nil {
		return nil, fmt.Errorf("normalize %s to first timepoint: %w", values.Name(), err)
	}
	n.logger.DebugContext(ctx, "Normalized to first timepoint",
		slog.String("family", out.Name()),
		slog.String("reference", string(ref)))
	return out, nil
}
