package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"organoidcli/internal/config"
	"organoidcli/internal/derived"
	apperrors "organoidcli/internal/errors"
	"organoidcli/internal/exporter"
	"organoidcli/internal/statistics"
	"organoidcli/internal/tables"
	"organoidcli/pkg/contracts/domain"
)

// groupsFor combines a family by group and drops declared groups that
// have no data.
func (p *Pipeline) groupsFor(ctx context.Context, t *domain.WideTable[domain.Identity]) *domain.WideTable[domain.GroupKey] {
	groups, dropped := statistics.DropEmpty(tables.Combine(t, p.ordering))
	if len(dropped) > 0 {
		p.logger.WarnContext(ctx, "Groups without data left out of the test",
			slog.String("family", t.Name()),
			slog.String("groups", strings.Join(dropped, ", ")))
	}
	return groups
}

func (p *Pipeline) runStatistics(ctx context.Context, res *Result) error {
	sc := p.cfg.Statistics
	if !sc.Anova && !sc.Kruskal && !sc.Regression {
		return skip("no statistical tests enabled")
	}

	for _, family := range sc.Families {
		t, ok := res.Tables.Get(family)
		if !ok {
			p.logger.WarnContext(ctx, "Statistics family not produced by this run, skipping",
				slog.String("family", family))
			continue
		}
		groups := p.groupsFor(ctx, t)

		if sc.Anova {
			a, err := p.runner.Anova(family, groups)
			if err != nil {
				return fmt.Errorf("anova on %s: %w", family, err)
			}
			res.Anova[family] = a
			if err := p.report(ctx, res, family+"_anova", statistics.AnovaText(a)); err != nil {
				return err
			}
			path, err := p.exporter.WriteComparisons(ctx, family+"_anova", a.Comparisons)
			if err != nil {
				return err
			}
			res.addWritten(path)
		}
		if sc.Kruskal {
			k, err := p.runner.Kruskal(family, groups)
			if err != nil {
				return fmt.Errorf("kruskal on %s: %w", family, err)
			}
			res.Kruskal[family] = k
			if err := p.report(ctx, res, family+"_kruskal", statistics.KruskalText(k)); err != nil {
				return err
			}
		}
	}

	if sc.Regression {
		return p.regress(ctx, res)
	}
	return nil
}

// regress fits invaded cells against total cells per organoid.
func (p *Pipeline) regress(ctx context.Context, res *Result) error {
	above, ok := res.Tables.Get(config.FamilyAbove)
	if !ok {
		p.logger.WarnContext(ctx, "No above-threshold counts, skipping regression")
		return nil
	}
	cn, _ := res.Tables.Get(config.FamilyCellCount)

	var y, x []float64
	for _, id := range above.Keys() {
		a, okA := above.Cell(id, 0)
		c, okC := cn.Cell(id, 0)
		if okA && okC {
			y = append(y, a)
			x = append(x, c)
		}
	}
	r, err := p.runner.Regression(y, x)
	if err != nil {
		return fmt.Errorf("regression of %s on %s: %w", config.FamilyAbove, config.FamilyCellCount, err)
	}
	res.Regression = r
	return p.report(ctx, res, "linreg", statistics.RegressionText(config.FamilyAbove, config.FamilyCellCount, r))
}

func (p *Pipeline) report(ctx context.Context, res *Result, name, text string) error {
	path, err := p.exporter.WriteReport(ctx, name, text)
	if err != nil {
		return err
	}
	res.addWritten(path)
	return nil
}

func (p *Pipeline) export(ctx context.Context, res *Result) error {
	out := p.cfg.Output
	if !out.Workbooks && !out.TidyCSV {
		return skip("workbook and tidy exports disabled")
	}
	if err := p.paths.EnsureDirectories(); err != nil {
		return apperrors.NewStorageError("failed to create output directories", err)
	}

	families := make([]exporter.Family, 0, res.Tables.Len()+3)
	for _, name := range res.Tables.Names() {
		t, _ := res.Tables.Get(name)
		families = append(families, exporter.NewFamily(tables.NewViews(t, p.ordering)))
	}
	if res.Positions != nil {
		families = append(families, exporter.NewRawFamily(res.Positions))
	}
	if m := res.Derived; m != nil {
		families = append(families,
			p.statFamily(config.FamilyStats, m.Stats, derived.StatsFamily),
			p.statFamily(config.FamilyBeyondStat, m.Beyond, derived.BeyondFamily),
		)
	}

	written, err := p.exporter.Export(ctx, families...)
	if err != nil {
		return err
	}
	for _, path := range written {
		res.addWritten(path)
	}
	if p.telemetry != nil {
		p.telemetry.Metrics.TablesExported.Add(ctx, int64(len(families)))
	}
	return nil
}

// statFamily bundles one table per described statistic into one workbook.
func (p *Pipeline) statFamily(name string, byStat map[domain.StatName]*domain.WideTable[domain.Identity], familyOf func(domain.StatName) string) exporter.Family {
	parts := make([]exporter.Family, 0, len(domain.DescribedStats))
	for _, stat := range domain.DescribedStats {
		t, ok := byStat[stat]
		if !ok {
			continue
		}
		parts = append(parts, exporter.NewFamily(tables.NewViews(t.Rename(familyOf(stat)), p.ordering)))
	}
	return exporter.Bundle(name, parts...)
}

func (r *Result) addWritten(path string) {
	if path != "" {
		r.Written = append(r.Written, path)
	}
}
