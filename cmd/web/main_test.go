package main

import (
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handlers "datasweeper/internal/transport/http"
)

func TestEmbeddedPageRenders(t *testing.T) {
	frontendFS, err := fs.Sub(frontendFiles, "frontend")
	require.NoError(t, err)

	page, err := handlers.NewPageHandler(frontendFS, handlers.PageData{
		Title:        "Data Sweeper",
		Version:      "1.0.0",
		MaxFiles:     20,
		MaxFileSize:  50 << 20,
		Extensions:   []string{".csv", ".xlsx"},
		ChartFormats: []string{"png", "svg"},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	page.ServeIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<title>Data Sweeper</title>")
	assert.Contains(t, body, `accept=".csv,.xlsx"`)
	assert.Contains(t, body, "Up to 20 files")
	assert.Contains(t, body, "/chart?format=png")
}
