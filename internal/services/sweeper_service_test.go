package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"datasweeper/internal/chart"
	"datasweeper/internal/dataset"
	"datasweeper/internal/exporter"
	"datasweeper/internal/session"
	"datasweeper/internal/shared/testutil"
	"datasweeper/internal/validation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) *SweeperService {
	t.Helper()
	store := session.NewStore(time.Minute, 10, 0)
	t.Cleanup(store.Stop)

	logger := testLogger()
	return NewSweeperService(
		store,
		validation.NewFileValidator(logger, []string{".csv", ".xlsx"}, 1<<20),
		exporter.NewConverter(),
		chart.NewRenderer(chart.Options{Width: 320, Height: 240}),
		5, 4,
		logger,
	)
}

func csvUpload(name, content string) Upload {
	return Upload{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func ingestOne(t *testing.T, svc *SweeperService, name, content string) string {
	t.Helper()
	results, err := svc.Ingest(context.Background(), []Upload{csvUpload(name, content)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Empty(t, results[0].Error)
	require.NotNil(t, results[0].Dataset)
	return results[0].Dataset.ID
}

func eventNamed(name string) interface{} {
	return mock.MatchedBy(func(e DatasetEvent) bool { return e.Event == name })
}

func TestIngest_MixedBatch(t *testing.T) {
	events := &MockEventPublisher{}
	events.On("Broadcast", mock.Anything, MessageTypeDataset, eventNamed(EventUploaded)).Return().Twice()
	svc := newTestService(t).WithEvents(events)

	notes := Upload{
		Name: "notes.txt",
		Size: 10,
		Open: func() (io.ReadCloser, error) {
			t.Fatal("unsupported file must not be opened")
			return nil, nil
		},
	}

	results, err := svc.Ingest(context.Background(), []Upload{
		csvUpload("a.csv", "x,y\n1,2\n"),
		notes,
		csvUpload("empty.csv", ""),
		csvUpload("b.csv", "name\nann\nbob\n"),
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "a.csv", results[0].FileName)
	require.NotNil(t, results[0].Dataset)
	assert.Equal(t, 1, results[0].Dataset.Rows)

	assert.Nil(t, results[1].Dataset)
	assert.Equal(t, "Unsupported file type: .txt", results[1].Error)
	assert.ErrorIs(t, results[1].Err, dataset.ErrUnsupportedFileType)

	assert.ErrorIs(t, results[2].Err, dataset.ErrEmptyFile)

	require.NotNil(t, results[3].Dataset)
	assert.Equal(t, "b.csv", results[3].Dataset.FileName)
	assert.Equal(t, 2, results[3].Dataset.Rows)

	assert.Len(t, svc.List(context.Background()), 2)
	events.AssertExpectations(t)
}

func TestIngest_BatchLimits(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Ingest(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoUploads)

	uploads := make([]Upload, 5)
	for i := range uploads {
		uploads[i] = csvUpload("f.csv", "a\n1\n")
	}
	_, err = svc.Ingest(context.Background(), uploads)
	assert.ErrorIs(t, err, ErrTooManyUploads)
}

func TestIngest_OpenFailure(t *testing.T) {
	svc := newTestService(t)
	results, err := svc.Ingest(context.Background(), []Upload{{
		Name: "a.csv",
		Size: 4,
		Open: func() (io.ReadCloser, error) { return nil, errors.New("disk gone") },
	}})
	require.NoError(t, err)
	assert.ErrorIs(t, results[0].Err, ErrUploadUnreadable)
}

func TestIngest_SizeInKB(t *testing.T) {
	svc := newTestService(t)
	content := "v\n" + strings.Repeat("1\n", 1023)
	id := ingestOne(t, svc, "ones.csv", content)

	summary, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2.0, summary.SizeKB)
	assert.Len(t, summary.Preview.Rows, 5)
}

func TestDropDuplicates_Idempotent(t *testing.T) {
	events := &MockEventPublisher{}
	events.On("Broadcast", mock.Anything, MessageTypeDataset, mock.Anything).Return()
	svc := newTestService(t).WithEvents(events)
	id := ingestOne(t, svc, "dups.csv", "id,v\n1,a\n2,b\n1,a\n")

	first, err := svc.DropDuplicates(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, MessageDuplicatesRemoved, first.Message)
	assert.Equal(t, 1, first.RowsRemoved)
	assert.Equal(t, 2, first.Dataset.Rows)

	second, err := svc.DropDuplicates(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, second.RowsRemoved)
	assert.Equal(t, first.Dataset.Preview.Rows, second.Dataset.Preview.Rows)

	events.AssertCalled(t, "Broadcast", mock.Anything, MessageTypeDataset, eventNamed(EventCleaned))
}

func TestFillMissing_NumericOnly(t *testing.T) {
	svc := newTestService(t)
	id := ingestOne(t, svc, "gaps.csv", "a,b\n1,x\n,\n3,z\n")

	res, err := svc.FillMissing(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, MessageMissingFilled, res.Message)
	require.Len(t, res.Fills, 1)
	assert.Equal(t, dataset.Fill{Column: "a", Mean: 2, Filled: 1}, res.Fills[0])

	rows := res.Dataset.Preview.Rows
	assert.Equal(t, 2.0, rows[1][0])
	assert.Nil(t, rows[1][1], "string column stays missing")

	// persisted in the session
	summary, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2.0, summary.Preview.Rows[1][0])
}

func TestSelectColumns(t *testing.T) {
	svc := newTestService(t)
	id := ingestOne(t, svc, "abc.csv", "a,b,c\n1,x,3\n")

	summary, err := svc.SelectColumns(context.Background(), id, []string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, summary.Selected)
	assert.Equal(t, []string{"a", "c"}, summary.Preview.Names())

	_, err = svc.SelectColumns(context.Background(), id, []string{"a", "zzz"})
	assert.ErrorIs(t, err, dataset.ErrUnknownColumn)

	_, err = svc.SelectColumns(context.Background(), id, nil)
	assert.ErrorIs(t, err, dataset.ErrEmptySelection)

	// failed selections leave the previous one in place
	summary, err = svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, summary.Selected)

	summary, err = svc.SelectColumns(context.Background(), id, []string{"b", "a", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, summary.Selected)
}

func TestConvert_UsesSelection(t *testing.T) {
	events := &MockEventPublisher{}
	events.On("Broadcast", mock.Anything, MessageTypeDataset, mock.Anything).Return()
	svc := newTestService(t).WithEvents(events)
	id := ingestOne(t, svc, "Report.CSV", "a,b,c\n1,x,3\n")

	_, err := svc.SelectColumns(context.Background(), id, []string{"a", "c"})
	require.NoError(t, err)

	artifact, err := svc.Convert(context.Background(), id, exporter.TargetCSV)
	require.NoError(t, err)
	assert.Equal(t, "a,c\n1,3\n", string(artifact.Data))
	assert.Equal(t, "Report.csv", artifact.FileName)

	artifact, err = svc.Convert(context.Background(), id, exporter.TargetExcel)
	require.NoError(t, err)
	assert.Equal(t, "Report.xlsx", artifact.FileName)
	assert.Equal(t, "Download Report.CSV as Excel", artifact.Label)
	assert.True(t, bytes.HasPrefix(artifact.Data, []byte("PK")), "xlsx is a zip archive")

	events.AssertCalled(t, "Broadcast", mock.Anything, MessageTypeDataset, eventNamed(EventConverted))
}

func TestChart(t *testing.T) {
	svc := newTestService(t)

	id := ingestOne(t, svc, "nums.csv", "label,x,y\na,1,2\nb,3,4\n")
	img, err := svc.Chart(context.Background(), id, chart.FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.True(t, bytes.HasPrefix(img.Data, []byte("\x89PNG")))

	id = ingestOne(t, svc, "words.csv", "label\na\nb\n")
	_, err = svc.Chart(context.Background(), id, chart.FormatPNG)
	assert.ErrorIs(t, err, chart.ErrNothingToChart)
}

func TestDeleteAndNotFound(t *testing.T) {
	events := &MockEventPublisher{}
	events.On("Broadcast", mock.Anything, MessageTypeDataset, mock.Anything).Return()
	svc := newTestService(t).WithEvents(events)
	id := ingestOne(t, svc, "a.csv", "a\n1\n")

	require.NoError(t, svc.Delete(context.Background(), id))
	events.AssertCalled(t, "Broadcast", mock.Anything, MessageTypeDataset, eventNamed(EventDeleted))

	_, err := svc.Get(context.Background(), id)
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), id), session.ErrNotFound)
	_, err = svc.DropDuplicates(context.Background(), id)
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = svc.Convert(context.Background(), id, exporter.TargetCSV)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestProfile(t *testing.T) {
	svc := newTestService(t)
	id := ingestOne(t, svc, "p.csv", "n,s\n1,a\n3,\n")

	profile, err := svc.Profile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, profile.Rows)
	require.Len(t, profile.Columns, 2)

	n := profile.Columns[0]
	assert.Equal(t, "n", n.Name)
	require.NotNil(t, n.Mean)
	assert.InDelta(t, 2.0, *n.Mean, 1e-9)

	s := profile.Columns[1]
	assert.Equal(t, 1, s.Missing)
	assert.Nil(t, s.Mean)
}

func TestIngest_LogsRejectedFile(t *testing.T) {
	store := session.NewStore(time.Minute, 10, 0)
	t.Cleanup(store.Stop)

	logger, logs := testutil.NewLogger(nil)
	svc := NewSweeperService(store, validation.NewFileValidator(logger, []string{".csv"}, 1<<20),
		exporter.NewConverter(), chart.NewRenderer(chart.Options{}), 5, 0, logger)

	_, err := svc.Ingest(context.Background(), []Upload{csvUpload("notes.txt", "hi")})
	require.NoError(t, err)

	rec, ok := logs.Find("file rejected")
	require.True(t, ok)
	assert.Equal(t, slog.LevelWarn, rec.Level)
	assert.Equal(t, "notes.txt", rec.Attrs["file"])
	assert.Equal(t, "sweeper_service", rec.Attrs["component"])
	assert.Equal(t, "Unsupported file type: .txt", rec.Attrs["error"])
}
