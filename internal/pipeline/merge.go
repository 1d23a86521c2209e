package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	apperrors "organoidcli/internal/errors"
	"organoidcli/internal/exporter"
	"organoidcli/internal/infrastructure"
	"organoidcli/internal/merge"
	"organoidcli/internal/statistics"
	"organoidcli/internal/tables"
	"organoidcli/pkg/contracts/domain"
)

// Merged workbook names.
const (
	MergedCountWorkbook   = "cn"
	MergedInvadedWorkbook = "inv"
)

// MergeResult is everything a replicate merge produced.
type MergeResult struct {
	RunID   string
	Merged  *merge.Result
	Anova   map[string]*domain.AnovaResult
	Written []string
	Stages  []StageRecord
}

// Stage returns the record of a named stage.
func (r *MergeResult) Stage(name string) (StageRecord, bool) {
	return findStage(r.Stages, name)
}

// Merge reloads the configured replicates concurrently, merges them in
// configured order, runs ANOVA on each merged count table and writes the
// merged workbooks.
func (p *Pipeline) Merge(ctx context.Context, source merge.Source) (*MergeResult, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	mc := p.cfg.Merge
	res := &MergeResult{
		RunID: infrastructure.GetRunID(ctx),
		Anova: make(map[string]*domain.AnovaResult),
	}
	if len(mc.Replicates) == 0 {
		return res, apperrors.NewConfigError("merge.replicates is empty", nil)
	}
	if source == nil {
		source = merge.NewWorkbookSource(mc, p.logger)
	}

	replicates := make([]*merge.Replicate, len(mc.Replicates))
	err := p.runStage(ctx, &res.Stages, StageLoad, func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(loadWorkers(mc.Workers))
		for i, loc := range mc.Replicates {
			g.Go(func() error {
				rep, err := source.Load(ctx, loc)
				if err != nil {
					return fmt.Errorf("load replicate %s: %w", loc, err)
				}
				replicates[i] = rep
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return res, err
	}

	err = p.runStage(ctx, &res.Stages, StageMerge, func(ctx context.Context) error {
		merged, err := merge.NewMerger(p.ordering, mc.ReferenceGroup, p.logger).Merge(ctx, replicates)
		if err != nil {
			return err
		}
		res.Merged = merged
		if p.telemetry != nil {
			p.telemetry.Metrics.ReplicatesMerged.Add(ctx, int64(merged.Replicates))
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	out := exporter.NewExporter(p.paths.ForMerge(), p.cfg.Output, p.logger)

	err = p.runStage(ctx, &res.Stages, StageStatistics, func(ctx context.Context) error {
		if !p.cfg.Statistics.Anova {
			return skip("anova disabled")
		}
		for _, t := range res.Merged.Tables() {
			a, err := p.runner.Anova(t.Name(), p.groupsFor(ctx, t))
			if err != nil {
				return fmt.Errorf("anova on %s: %w", t.Name(), err)
			}
			res.Anova[t.Name()] = a
			path, err := out.WriteReport(ctx, t.Name()+"_anova", statistics.AnovaText(a))
			if err != nil {
				return err
			}
			if path != "" {
				res.Written = append(res.Written, path)
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	err = p.runStage(ctx, &res.Stages, StageExport, func(ctx context.Context) error {
		if !p.cfg.Output.Workbooks && !p.cfg.Output.TidyCSV {
			return skip("workbook and tidy exports disabled")
		}
		if err := p.validator.ValidateOutputDirectory(p.paths.MergeDir); err != nil {
			return err
		}
		written, err := out.Export(ctx, p.mergedFamilies(res.Merged)...)
		res.Written = append(res.Written, written...)
		return err
	})
	if err != nil {
		return res, err
	}

	p.logger.InfoContext(ctx, "Merge complete",
		slog.String("run_id", res.RunID),
		slog.Int("replicates", res.Merged.Replicates),
		slog.Int("files_written", len(res.Written)))
	return res, nil
}

// mergedFamilies lays the merged tables out as cn.xlsx, inv.xlsx and
// dts.xlsx.
func (p *Pipeline) mergedFamilies(m *merge.Result) []exporter.Family {
	views := func(t *domain.WideTable[domain.Identity]) exporter.Family {
		return exporter.NewFamily(tables.NewViews(t, p.ordering))
	}
	families := []exporter.Family{
		exporter.Bundle(MergedCountWorkbook, views(m.CellCountRaw), views(m.CellCountNorm)),
	}
	if m.InvadedRaw != nil {
		families = append(families, exporter.Bundle(MergedInvadedWorkbook, views(m.InvadedRaw), views(m.InvadedNorm)))
	}
	if m.Distance != nil {
		families = append(families, views(m.Distance))
	}
	return families
}

func loadWorkers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}
