package http

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"datasweeper/internal/chart"
	"datasweeper/internal/config"
	apierrors "datasweeper/internal/errors"
	"datasweeper/internal/exporter"
	mw "datasweeper/internal/middleware"
	"datasweeper/internal/services"
)

// UploadField is the multipart field carrying uploaded files.
const UploadField = "files"

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// SelectColumnsRequest is the body of PUT /api/datasets/{id}/columns
type SelectColumnsRequest struct {
	Columns []string `json:"columns" validate:"required,min=1,dive,colname"`
}

// ConvertRequest is the body of POST /api/datasets/{id}/convert
type ConvertRequest struct {
	Format string `json:"format" validate:"required,target"`
}

// UploadResponse carries one result per uploaded file, in upload order.
type UploadResponse struct {
	Results  []services.IngestResult `json:"results"`
	Accepted int                     `json:"accepted"`
	Rejected int                     `json:"rejected"`
}

// DatasetHandler handles dataset HTTP requests with RFC 7807 errors
type DatasetHandler struct {
	service         DatasetService
	validator       *mw.Validator
	queryValidator  *mw.QueryParamValidator
	errorHandler    *apierrors.ErrorHandler
	maxRequestBytes int64
	logger          *slog.Logger
}

// NewDatasetHandler creates a new dataset handler. maxRequestBytes caps the
// multipart body of one upload request; zero disables the cap.
func NewDatasetHandler(service DatasetService, errorHandler *apierrors.ErrorHandler, maxRequestBytes int64, logger *slog.Logger) *DatasetHandler {
	return &DatasetHandler{
		service:         service,
		validator:       mw.NewValidator(logger),
		queryValidator:  mw.NewQueryParamValidator(errorHandler),
		errorHandler:    errorHandler,
		maxRequestBytes: maxRequestBytes,
		logger:          logger.With(slog.String("component", "dataset_handler")),
	}
}

// Routes returns the dataset routes, mounted under /api/datasets
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Upload)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.DatasetCtx)
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Get("/profile", h.Profile)

		r.Post("/clean/duplicates", h.DropDuplicates)
		r.Post("/clean/missing", h.FillMissing)
		r.With(mw.ContentTypeValidator(h.errorHandler, "application/json")).
			Put("/columns", h.SelectColumns)

		r.Get("/chart", h.Chart)
		r.With(mw.ContentTypeValidator(h.errorHandler, "application/json")).
			Post("/convert", h.Convert)
		r.Get("/download", h.Download)
	})

	return r
}

// DatasetCtx rejects dataset IDs that are not UUIDs
func (h *DatasetHandler) DatasetCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := uuid.Parse(chi.URLParam(r, "id")); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "Dataset ID must be a UUID"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Upload handles POST /api/datasets. Each file in the "files" field is read
// in order; rejected files are reported next to the accepted ones. The
// response is 200 when at least one file was accepted, otherwise the status
// of the first rejection.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxRequestBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[UploadField]
	if len(headers) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrNoFiles)
		return
	}

	uploads := make([]services.Upload, len(headers))
	for i, fh := range headers {
		uploads[i] = services.Upload{
			Name: fh.Filename,
			Size: fh.Size,
			Open: openPart(fh),
		}
	}

	results, err := h.service.Ingest(r.Context(), uploads)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoUploads):
			err = apierrors.ErrNoFiles
		case errors.Is(err, services.ErrTooManyUploads):
			err = apierrors.New(http.StatusBadRequest, "TOO_MANY_FILES", err.Error())
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := UploadResponse{Results: results}
	var firstErr error
	for _, res := range results {
		if res.Err != nil {
			resp.Rejected++
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}
		resp.Accepted++
	}

	h.logger.InfoContext(r.Context(), "upload processed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("accepted", resp.Accepted),
		slog.Int("rejected", resp.Rejected))

	if resp.Accepted == 0 && firstErr != nil {
		render.Status(r, h.errorHandler.ErrorToProblem(firstErr, r).Status)
	}
	render.JSON(w, r, resp)
}

func openPart(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}

// List handles GET /api/datasets
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	datasets := h.service.List(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"datasets": datasets,
		"count":    len(datasets),
	})
}

// Get handles GET /api/datasets/{id}
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Delete handles DELETE /api/datasets/{id}
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Profile handles GET /api/datasets/{id}/profile
func (h *DatasetHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, profile)
}

// DropDuplicates handles POST /api/datasets/{id}/clean/duplicates
func (h *DatasetHandler) DropDuplicates(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.DropDuplicates(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// FillMissing handles POST /api/datasets/{id}/clean/missing
func (h *DatasetHandler) FillMissing(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.FillMissing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// SelectColumns handles PUT /api/datasets/{id}/columns
func (h *DatasetHandler) SelectColumns(w http.ResponseWriter, r *http.Request) {
	var req SelectColumnsRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.SelectColumns(r.Context(), chi.URLParam(r, "id"), req.Columns)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Chart handles GET /api/datasets/{id}/chart?format=png|svg
func (h *DatasetHandler) Chart(w http.ResponseWriter, r *http.Request) {
	value, ok := h.queryValidator.ValidateEnum(w, r, "format",
		[]string{string(chart.FormatPNG), string(chart.FormatSVG)}, string(chart.FormatPNG))
	if !ok {
		return
	}
	format, err := chart.ParseFormat(value)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	img, err := h.service.Chart(r.Context(), chi.URLParam(r, "id"), format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

// Convert handles POST /api/datasets/{id}/convert
func (h *DatasetHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.convert(w, r, req.Format)
}

// Download handles GET /api/datasets/{id}/download?format=csv|excel
func (h *DatasetHandler) Download(w http.ResponseWriter, r *http.Request) {
	value, ok := h.queryValidator.ValidateEnum(w, r, "format",
		[]string{string(exporter.TargetCSV), string(exporter.TargetExcel)}, string(exporter.TargetCSV))
	if !ok {
		return
	}
	h.convert(w, r, value)
}

func (h *DatasetHandler) convert(w http.ResponseWriter, r *http.Request, format string) {
	target, err := exporter.ParseTarget(format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	artifact, err := h.service.Convert(r.Context(), chi.URLParam(r, "id"), target)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.Header().Set(config.HeaderDownloadLabel, artifact.Label)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Data)
}
