package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SweeperMetrics holds the application metrics. A nil *SweeperMetrics is
// valid and records nothing.
type SweeperMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Dataset metrics
	FilesIngested     metric.Int64Counter
	BytesIngested     metric.Int64Counter
	CleaningOps       metric.Int64Counter
	RowsRemoved       metric.Int64Counter
	CellsFilled       metric.Int64Counter
	Conversions       metric.Int64Counter
	ChartsRendered    metric.Int64Counter
	OperationDuration metric.Float64Histogram
}

// CreateSweeperMetrics creates application-specific metrics
func CreateSweeperMetrics(meter metric.Meter) (*SweeperMetrics, error) {
	m := &SweeperMetrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests", ""},
		{&m.FilesIngested, "sweeper_files_ingested_total", "Uploaded files by format and outcome", ""},
		{&m.BytesIngested, "sweeper_bytes_ingested_total", "Bytes of accepted uploads", "By"},
		{&m.CleaningOps, "sweeper_cleaning_operations_total", "Cleaning operations applied", ""},
		{&m.RowsRemoved, "sweeper_rows_removed_total", "Duplicate rows removed", ""},
		{&m.CellsFilled, "sweeper_cells_filled_total", "Missing cells filled with a column mean", ""},
		{&m.Conversions, "sweeper_conversions_total", "Files converted for download", ""},
		{&m.ChartsRendered, "sweeper_charts_rendered_total", "Charts rendered", ""},
	}
	for _, c := range counters {
		opts := []metric.Int64CounterOption{metric.WithDescription(c.desc)}
		if c.unit != "" {
			opts = append(opts, metric.WithUnit(c.unit))
		}
		if *c.dst, err = meter.Int64Counter(c.name, opts...); err != nil {
			return nil, err
		}
	}

	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.OperationDuration, err = meter.Float64Histogram(
		"sweeper_operation_duration_seconds",
		metric.WithDescription("Dataset operation duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// ObserveActiveDatasets registers a gauge reporting count() at each
// collection.
func ObserveActiveDatasets(meter metric.Meter, count func() int) error {
	_, err := meter.Int64ObservableGauge(
		"sweeper_active_datasets",
		metric.WithDescription("Datasets currently held in memory"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(count()))
			return nil
		}),
	)
	return err
}

// RecordIngest records one uploaded file.
func (m *SweeperMetrics) RecordIngest(ctx context.Context, format string, size int64, err error) {
	if m == nil {
		return
	}
	status := "accepted"
	if err != nil {
		status = "rejected"
	}
	m.FilesIngested.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("status", status),
	))
	if err == nil {
		m.BytesIngested.Add(ctx, size)
	}
}

// RecordCleaning records a cleaning operation and how much it changed.
func (m *SweeperMetrics) RecordCleaning(ctx context.Context, operation string, rowsRemoved, cellsFilled int) {
	if m == nil {
		return
	}
	m.CleaningOps.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	if rowsRemoved > 0 {
		m.RowsRemoved.Add(ctx, int64(rowsRemoved))
	}
	if cellsFilled > 0 {
		m.CellsFilled.Add(ctx, int64(cellsFilled))
	}
}

// RecordConversion records a converted download.
func (m *SweeperMetrics) RecordConversion(ctx context.Context, target string) {
	if m == nil {
		return
	}
	m.Conversions.Add(ctx, 1, metric.WithAttributes(attribute.String("target", target)))
}

// RecordChart records a rendered chart.
func (m *SweeperMetrics) RecordChart(ctx context.Context, format string) {
	if m == nil {
		return
	}
	m.ChartsRendered.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
}

// RecordDuration records how long a dataset operation took.
func (m *SweeperMetrics) RecordDuration(ctx context.Context, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.OperationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}
