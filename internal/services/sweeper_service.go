package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"datasweeper/internal/chart"
	"datasweeper/internal/dataset"
	"datasweeper/internal/exporter"
	"datasweeper/internal/infrastructure"
	"datasweeper/internal/session"
	"datasweeper/internal/validation"
)

// Acknowledgements shown after a cleaning step succeeds.
const (
	MessageDuplicatesRemoved = "Duplicates Removed!"
	MessageMissingFilled     = "Missing values have been filled!"
)

// Dataset event names carried in websocket "dataset" messages.
const (
	EventUploaded        = "uploaded"
	EventCleaned         = "cleaned"
	EventColumnsSelected = "columns_selected"
	EventConverted       = "converted"
	EventDeleted         = "deleted"
)

// MessageTypeDataset is the websocket message type for dataset events.
const MessageTypeDataset = "dataset"

// EventPublisher delivers dataset change notifications to connected pages.
type EventPublisher interface {
	Broadcast(ctx context.Context, messageType string, data interface{})
}

// Upload is one file of a multi-file upload. Open is called at most once
// and only for files that pass validation.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// IngestResult is the outcome for one uploaded file: a summary when the
// file was read, otherwise the error shown next to its name.
type IngestResult struct {
	FileName string           `json:"file_name"`
	Dataset  *dataset.Summary `json:"dataset,omitempty"`
	Error    string           `json:"error,omitempty"`
	Err      error            `json:"-"`
}

// CleanResult reports what a cleaning step changed.
type CleanResult struct {
	Message     string          `json:"message"`
	RowsRemoved int             `json:"rows_removed"`
	Fills       []dataset.Fill  `json:"fills,omitempty"`
	Dataset     dataset.Summary `json:"dataset"`
}

// ProfileResult is the per-column profile of a dataset.
type ProfileResult struct {
	ID       string                  `json:"id"`
	FileName string                  `json:"file_name"`
	Rows     int                     `json:"rows"`
	Columns  []dataset.ColumnProfile `json:"columns"`
}

// ChartImage is a rendered bar chart.
type ChartImage struct {
	Data        []byte
	ContentType string
	Format      chart.Format
}

// DatasetEvent is the payload of a dataset websocket message.
type DatasetEvent struct {
	Event    string `json:"event"`
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	Rows     int    `json:"rows"`
	Columns  int    `json:"columns"`
	Detail   string `json:"detail,omitempty"`
}

// SweeperService runs the per-file flow against the session store.
type SweeperService struct {
	store       *session.Store
	validator   *validation.FileValidator
	converter   *exporter.Converter
	renderer    *chart.Renderer
	events      EventPublisher
	metrics     *infrastructure.SweeperMetrics
	previewRows int
	maxFiles    int
	logger      *slog.Logger
}

// NewSweeperService creates a sweeper service. previewRows is the number of
// rows included in summaries; maxFiles caps one upload, zero means no cap.
func NewSweeperService(
	store *session.Store,
	validator *validation.FileValidator,
	converter *exporter.Converter,
	renderer *chart.Renderer,
	previewRows, maxFiles int,
	logger *slog.Logger,
) *SweeperService {
	if logger == nil {
		logger = slog.Default()
	}
	if previewRows <= 0 {
		previewRows = dataset.DefaultPreviewRows
	}

	logger.Info("SweeperService initialized",
		slog.Int("preview_rows", previewRows),
		slog.Int("max_files", maxFiles))

	return &SweeperService{
		store:       store,
		validator:   validator,
		converter:   converter,
		renderer:    renderer,
		previewRows: previewRows,
		maxFiles:    maxFiles,
		logger:      infrastructure.WithComponent(logger, "sweeper_service"),
	}
}

// WithEvents sets the publisher for dataset events.
func (s *SweeperService) WithEvents(events EventPublisher) *SweeperService {
	s.events = events
	return s
}

// WithMetrics sets the metric recorders.
func (s *SweeperService) WithMetrics(metrics *infrastructure.SweeperMetrics) *SweeperService {
	s.metrics = metrics
	return s
}

// Ingest reads each upload in order. A file that fails is reported in its
// result and the remaining files are still processed. The error return is
// reserved for a batch that cannot be processed at all.
func (s *SweeperService) Ingest(ctx context.Context, uploads []Upload) ([]IngestResult, error) {
	if len(uploads) == 0 {
		return nil, ErrNoUploads
	}
	if s.maxFiles > 0 && len(uploads) > s.maxFiles {
		return nil, fmt.Errorf("%w: %d files, limit %d", ErrTooManyUploads, len(uploads), s.maxFiles)
	}

	results := make([]IngestResult, 0, len(uploads))
	for _, upload := range uploads {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, s.ingestOne(ctx, upload))
	}
	return results, nil
}

func (s *SweeperService) ingestOne(ctx context.Context, upload Upload) IngestResult {
	start := time.Now()
	result := IngestResult{FileName: upload.Name}

	ds, err := s.read(upload)
	format := formatLabel(upload.Name)
	s.metrics.RecordIngest(ctx, format, upload.Size, err)
	s.metrics.RecordDuration(ctx, "ingest", time.Since(start), err)

	if err != nil {
		result.Err = err
		result.Error = err.Error()
		s.logger.WarnContext(ctx, "file rejected",
			slog.String("file", upload.Name),
			slog.Int64("size", upload.Size),
			slog.String("error", err.Error()))
		return result
	}

	s.store.Put(ds)
	summary := ds.Summarize(s.previewRows)
	result.Dataset = &summary

	s.logger.InfoContext(ctx, "file ingested",
		slog.String("dataset_id", ds.ID),
		slog.String("file", ds.FileName),
		slog.Int("rows", ds.Nrow()),
		slog.Int("columns", ds.Ncol()),
		slog.Duration("duration", time.Since(start)))
	s.publish(ctx, EventUploaded, ds, "")

	return result
}

func (s *SweeperService) read(upload Upload) (*dataset.Dataset, error) {
	if s.validator != nil {
		if err := s.validator.ValidateUpload(upload.Name, upload.Size); err != nil {
			return nil, err
		}
	} else if _, err := dataset.FormatForName(upload.Name); err != nil {
		return nil, err
	}

	if upload.Open == nil {
		return nil, ErrUploadUnreadable
	}
	rc, err := upload.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadUnreadable, err)
	}
	defer rc.Close()

	return dataset.Read(upload.Name, rc, upload.Size)
}

// Get returns the summary of a stored dataset.
func (s *SweeperService) Get(ctx context.Context, id string) (*dataset.Summary, error) {
	ds, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("get dataset %s: %w", id, err)
	}
	summary := ds.Summarize(s.previewRows)
	return &summary, nil
}

// List returns summaries of every live dataset, oldest first, without
// previews.
func (s *SweeperService) List(ctx context.Context) []dataset.Summary {
	all := s.store.List()
	out := make([]dataset.Summary, 0, len(all))
	for _, ds := range all {
		out = append(out, ds.Summarize(0))
	}
	return out
}

// Delete discards a dataset.
func (s *SweeperService) Delete(ctx context.Context, id string) error {
	ds, err := s.store.Get(id)
	if err != nil {
		return fmt.Errorf("delete dataset %s: %w", id, err)
	}
	if err := s.store.Delete(id); err != nil {
		return fmt.Errorf("delete dataset %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "dataset deleted", slog.String("dataset_id", id))
	s.publish(ctx, EventDeleted, ds, "")
	return nil
}

// Profile returns per-column statistics of the full dataset.
func (s *SweeperService) Profile(ctx context.Context, id string) (*ProfileResult, error) {
	ds, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("profile dataset %s: %w", id, err)
	}
	return &ProfileResult{
		ID:       ds.ID,
		FileName: ds.FileName,
		Rows:     ds.Nrow(),
		Columns:  ds.Profile(),
	}, nil
}

// DropDuplicates removes repeated rows and keeps the result in the session.
func (s *SweeperService) DropDuplicates(ctx context.Context, id string) (*CleanResult, error) {
	start := time.Now()
	var removed int
	ds, err := s.store.Update(id, func(ds *dataset.Dataset) error {
		var err error
		removed, err = ds.DropDuplicates()
		return err
	})
	s.metrics.RecordDuration(ctx, "drop_duplicates", time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("drop duplicates in %s: %w", id, err)
	}
	s.metrics.RecordCleaning(ctx, "drop_duplicates", removed, 0)

	s.logger.InfoContext(ctx, "duplicates removed",
		slog.String("dataset_id", id),
		slog.Int("rows_removed", removed),
		slog.Int("rows", ds.Nrow()))
	s.publish(ctx, EventCleaned, ds, "drop_duplicates")

	return &CleanResult{
		Message:     MessageDuplicatesRemoved,
		RowsRemoved: removed,
		Dataset:     ds.Summarize(s.previewRows),
	}, nil
}

// FillMissing replaces missing numeric cells with their column mean and
// keeps the result in the session.
func (s *SweeperService) FillMissing(ctx context.Context, id string) (*CleanResult, error) {
	start := time.Now()
	var fills []dataset.Fill
	ds, err := s.store.Update(id, func(ds *dataset.Dataset) error {
		var err error
		fills, err = ds.FillMissing()
		return err
	})
	s.metrics.RecordDuration(ctx, "fill_missing", time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("fill missing in %s: %w", id, err)
	}

	filled := 0
	for _, f := range fills {
		filled += f.Filled
	}
	s.metrics.RecordCleaning(ctx, "fill_missing", 0, filled)

	s.logger.InfoContext(ctx, "missing values filled",
		slog.String("dataset_id", id),
		slog.Int("columns", len(fills)),
		slog.Int("cells", filled))
	s.publish(ctx, EventCleaned, ds, "fill_missing")

	return &CleanResult{
		Message: MessageMissingFilled,
		Fills:   fills,
		Dataset: ds.Summarize(s.previewRows),
	}, nil
}

// SelectColumns replaces the column view of a dataset.
func (s *SweeperService) SelectColumns(ctx context.Context, id string, columns []string) (*dataset.Summary, error) {
	ds, err := s.store.Update(id, func(ds *dataset.Dataset) error {
		return ds.Select(columns)
	})
	if err != nil {
		return nil, fmt.Errorf("select columns of %s: %w", id, err)
	}

	s.logger.DebugContext(ctx, "columns selected",
		slog.String("dataset_id", id),
		slog.Any("columns", ds.Selection()))
	s.publish(ctx, EventColumnsSelected, ds, "")

	summary := ds.Summarize(s.previewRows)
	return &summary, nil
}

// Chart renders the first two numeric columns of the current view.
func (s *SweeperService) Chart(ctx context.Context, id string, format chart.Format) (*ChartImage, error) {
	ds, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("chart dataset %s: %w", id, err)
	}

	start := time.Now()
	var buf bytes.Buffer
	err = s.renderer.Render(&buf, ds, format)
	s.metrics.RecordDuration(ctx, "chart", time.Since(start), err)
	if err != nil {
		if !errors.Is(err, chart.ErrNothingToChart) {
			infrastructure.RecordError(ctx, err)
		}
		return nil, fmt.Errorf("chart dataset %s: %w", id, err)
	}
	s.metrics.RecordChart(ctx, string(format))

	return &ChartImage{
		Data:        buf.Bytes(),
		ContentType: format.ContentType(),
		Format:      format,
	}, nil
}

// Convert encodes the current view of a dataset for download.
func (s *SweeperService) Convert(ctx context.Context, id string, target exporter.Target) (*exporter.Artifact, error) {
	ds, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("convert dataset %s: %w", id, err)
	}

	start := time.Now()
	artifact, err := s.converter.Convert(ds, target)
	s.metrics.RecordDuration(ctx, "convert", time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	s.metrics.RecordConversion(ctx, string(target))

	s.logger.InfoContext(ctx, "dataset converted",
		slog.String("dataset_id", id),
		slog.String("target", string(target)),
		slog.String("output", artifact.FileName),
		slog.Int("bytes", len(artifact.Data)))
	s.publish(ctx, EventConverted, ds, artifact.FileName)

	return artifact, nil
}

// Stats reports session store statistics.
func (s *SweeperService) Stats() map[string]interface{} {
	return s.store.GetStats()
}

func (s *SweeperService) publish(ctx context.Context, event string, ds *dataset.Dataset, detail string) {
	if s.events == nil {
		return
	}
	s.events.Broadcast(ctx, MessageTypeDataset, DatasetEvent{
		Event:    event,
		ID:       ds.ID,
		FileName: ds.FileName,
		Rows:     ds.Nrow(),
		Columns:  len(ds.Selection()),
		Detail:   detail,
	})
}

// formatLabel is the metric label for a file's format.
func formatLabel(name string) string {
	format, err := dataset.FormatForName(name)
	if err != nil {
		return "unsupported"
	}
	return string(format)
}
