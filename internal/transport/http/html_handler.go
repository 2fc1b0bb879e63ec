package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
)

// PageData is what the single page template is rendered with.
type PageData struct {
	Title        string
	Version      string
	MaxFiles     int
	MaxFileSize  int64
	Extensions   []string
	ChartFormats []string
}

// PageHandler serves the single page of the utility from an embedded
// template.
type PageHandler struct {
	tmpl   *template.Template
	data   PageData
	logger *slog.Logger
}

// NewPageHandler parses index.html from frontend.
func NewPageHandler(frontend fs.FS, data PageData, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFS(frontend, "index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}
	return &PageHandler{
		tmpl:   tmpl,
		data:   data,
		logger: logger.With(slog.String("handler", "page")),
	}, nil
}

// ServeIndex serves the main application page
func (h *PageHandler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, h.data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page", slog.String("error", err.Error()))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
