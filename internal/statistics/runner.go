// Package statistics runs group-comparison tests over combined tables and
// renders their plain-text reports.
package statistics

import (
	"fmt"
	"log/slog"

	apperrors "organoidcli/internal/errors"
	"organoidcli/internal/infrastructure"
	"organoidcli/pkg/contracts/domain"
)

// DefaultAlpha is the significance level of post-hoc comparisons.
const DefaultAlpha = 0.05

// Runner is a statistical test backend. Every group passed to a test must
// hold at least two observations.
type Runner interface {
	Anova(family string, groups *domain.WideTable[domain.GroupKey]) (*domain.AnovaResult, error)
	Kruskal(family string, groups *domain.WideTable[domain.GroupKey]) (*domain.KruskalResult, error)
	Regression(y, x []float64) (*domain.RegressionResult, error)
}

// GonumRunner implements Runner with gonum's stat and distuv packages.
type GonumRunner struct {
	alpha  float64
	logger *slog.Logger
}

// NewGonumRunner creates a runner. A non-positive alpha uses DefaultAlpha.
func NewGonumRunner(alpha float64, logger *slog.Logger) *GonumRunner {
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	return &GonumRunner{
		alpha:  alpha,
		logger: infrastructure.WithComponent(logger, "statistics"),
	}
}

var _ Runner = (*GonumRunner)(nil)

type sample struct {
	label  string
	values []float64
}

// samples checks the shared preconditions and returns the group samples
// in column order.
func samples(groups *domain.WideTable[domain.GroupKey]) ([]sample, error) {
	if groups.Width() < 2 {
		return nil, apperrors.NewStatisticalPreconditionError("at least two groups are required").
			WithContext("groups", groups.Width())
	}
	out := make([]sample, 0, groups.Width())
	for _, col := range groups.Columns() {
		if col.Len() < 2 {
			return nil, apperrors.NewStatisticalPreconditionError(
				fmt.Sprintf("group %s has %d observations, at least 2 are required", col.Key, col.Len())).
				WithContext("group", col.Key.String())
		}
		out = append(out, sample{label: col.Key.String(), values: col.Values})
	}
	return out, nil
}

func labels(ss []sample) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.label
	}
	return out
}

// DropEmpty removes groups without observations so declared but unused
// conditions do not block a test. The dropped labels are returned.
func DropEmpty(groups *domain.WideTable[domain.GroupKey]) (*domain.WideTable[domain.GroupKey], []string) {
	var kept []domain.Column[domain.GroupKey]
	var dropped []string
	for _, col := range groups.Columns() {
		if col.Len() == 0 {
			dropped = append(dropped, col.Key.String())
			continue
		}
		kept = append(kept, col)
	}
	return domain.NewWideTable(groups.Name(), kept), dropped
}
