package http

import (
	"context"

	"datasweeper/internal/chart"
	"datasweeper/internal/dataset"
	"datasweeper/internal/exporter"
	"datasweeper/internal/services"
)

// DatasetService defines the dataset operations the handlers need
type DatasetService interface {
	Ingest(ctx context.Context, uploads []services.Upload) ([]services.IngestResult, error)
	Get(ctx context.Context, id string) (*dataset.Summary, error)
	List(ctx context.Context) []dataset.Summary
	Delete(ctx context.Context, id string) error
	Profile(ctx context.Context, id string) (*services.ProfileResult, error)

	// Cleaning and selection
	DropDuplicates(ctx context.Context, id string) (*services.CleanResult, error)
	FillMissing(ctx context.Context, id string) (*services.CleanResult, error)
	SelectColumns(ctx context.Context, id string, columns []string) (*dataset.Summary, error)

	// Output
	Chart(ctx context.Context, id string, format chart.Format) (*services.ChartImage, error)
	Convert(ctx context.Context, id string, target exporter.Target) (*exporter.Artifact, error)
}
