package infrastructure

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// PipelineMetrics holds the instruments recorded by a run
type PipelineMetrics struct {
	FilesExtracted   metric.Int64Counter
	FilesSkipped     metric.Int64Counter
	NegativeExcluded metric.Int64Counter
	Organoids        metric.Int64Counter
	ReplicatesMerged metric.Int64Counter
	TablesExported   metric.Int64Counter
	StageErrors      metric.Int64Counter
	StageDuration    metric.Float64Histogram
}

// NewPipelineMetrics registers the pipeline instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.FilesExtracted, "organoid_files_extracted_total", "Measurement files read"},
		{&m.FilesSkipped, "organoid_files_skipped_total", "Files skipped by the substring filter"},
		{&m.NegativeExcluded, "organoid_negative_values_excluded_total", "Negative distance artifacts removed"},
		{&m.Organoids, "organoid_organoids_total", "Organoids extracted"},
		{&m.ReplicatesMerged, "organoid_replicates_merged_total", "Replicate result sets merged"},
		{&m.TablesExported, "organoid_tables_exported_total", "Metric tables written"},
		{&m.StageErrors, "organoid_stage_errors_total", "Pipeline stages that failed"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", c.name, err)
		}
	}

	m.StageDuration, err = meter.Float64Histogram(
		"organoid_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage duration histogram: %w", err)
	}

	return m, nil
}

// StartStage opens a span named "pipeline.<stage>" and returns a function
// that ends it, recording the duration and any error.
func (t *Telemetry) StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	attrs = append(attrs, attribute.String("stage", stage))
	if runID := GetRunID(ctx); runID != "" {
		attrs = append(attrs, attribute.String("run_id", runID))
	}
	ctx, span := t.Tracer.Start(ctx, "pipeline."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	start := time.Now()

	return ctx, func(err error) {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			t.Metrics.StageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
		} else {
			span.SetStatus(codes.Ok, "")
		}
		t.Metrics.StageDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(
				attribute.String("stage", stage),
				attribute.String("status", status),
			),
		)
		span.End()
	}
}
