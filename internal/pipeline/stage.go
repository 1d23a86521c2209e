package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Stage names, in execution order.
const (
	StageExtract    = "extract"
	StageTables     = "tables"
	StageDerived    = "derived"
	StageNormalize  = "normalize"
	StageStatistics = "statistics"
	StageExport     = "export"
	StageLoad       = "load"
	StageMerge      = "merge"
)

// StageStatus is the outcome of one stage.
type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageSkipped   StageStatus = "skipped"
	StageFailed    StageStatus = "failed"
)

// StageRecord describes one executed stage.
type StageRecord struct {
	Name     string        `json:"name"`
	Status   StageStatus   `json:"status"`
	Duration time.Duration `json:"duration"`
	Message  string        `json:"message,omitempty"`
}

// skipError marks a stage that had nothing to do.
type skipError struct{ reason string }

func (e *skipError) Error() string { return e.reason }

func skip(reason string) error { return &skipError{reason: reason} }

// runStage executes fn inside a telemetry span and appends its record.
// A skipped stage is not an error.
func (p *Pipeline) runStage(ctx context.Context, stages *[]StageRecord, name string, fn func(context.Context) error) error {
	ctx, end := p.startStage(ctx, name)
	start := time.Now()
	err := fn(ctx)

	rec := StageRecord{Name: name, Status: StageCompleted, Duration: time.Since(start)}
	var skipped *skipError
	switch {
	case errors.As(err, &skipped):
		rec.Status = StageSkipped
		rec.Message = skipped.reason
		err = nil
		p.logger.WarnContext(ctx, "Stage skipped",
			slog.String("stage", name),
			slog.String("reason", skipped.reason))
	case err != nil:
		rec.Status = StageFailed
		rec.Message = err.Error()
	}
	end(err)
	*stages = append(*stages, rec)

	if err != nil {
		p.logger.ErrorContext(ctx, "Stage failed",
			slog.String("stage", name),
			slog.String("error", err.Error()))
		return fmt.Errorf("%s stage: %w", name, err)
	}
	p.logger.InfoContext(ctx, "Stage completed",
		slog.String("stage", name),
		slog.String("status", string(rec.Status)),
		slog.Duration("duration", rec.Duration))
	return nil
}

func (p *Pipeline) startStage(ctx context.Context, name string) (context.Context, func(error)) {
	if p.telemetry == nil {
		return ctx, func(error) {}
	}
	return p.telemetry.StartStage(ctx, name)
}
