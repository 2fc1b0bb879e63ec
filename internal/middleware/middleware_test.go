package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	apierrors "datasweeper/internal/errors"
	"datasweeper/internal/infrastructure"
)

func testLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{name: "generates id", incoming: ""},
		{name: "reuses client id", incoming: "client-123", reuse: true},
		{name: "replaces oversized id", incoming: strings.Repeat("x", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen, traced string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
				traced = infrastructure.GetTraceID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set("X-Request-ID", tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, traced)
			assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
			if tt.reuse {
				assert.Equal(t, tt.incoming, seen)
			} else {
				assert.NotEqual(t, tt.incoming, seen)
			}
		})
	}
}

func TestStructuredLogger(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "success", status: http.StatusOK, wantLevel: `"level":"INFO"`},
		{name: "client error", status: http.StatusUnsupportedMediaType, wantLevel: `"level":"WARN"`},
		{name: "server error", status: http.StatusInternalServerError, wantLevel: `"level":"ERROR"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := testLogger()
			h := StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/datasets?x=1", nil))

			out := buf.String()
			assert.Contains(t, out, tt.wantLevel)
			assert.Contains(t, out, `"query":"x=1"`)
			assert.Contains(t, out, `"request completed"`)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	logger, buf := testLogger()
	rl := NewRateLimiter(0.5, 2, logger)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "2", rec.Header().Get("Retry-After"))
			assert.Equal(t, apierrors.ContentTypeProblem, rec.Header().Get("Content-Type"))
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Contains(t, buf.String(), "rate limit exceeded")
}

func TestTimeout(t *testing.T) {
	logger, _ := testLogger()

	t.Run("handler that gives up gets 504", func(t *testing.T) {
		h := Timeout(10*time.Millisecond, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))
		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	})

	t.Run("written response is left alone", func(t *testing.T) {
		h := Timeout(10*time.Millisecond, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			<-r.Context().Done()
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})
}

func TestCORS(t *testing.T) {
	mw := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:8080"}})
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("allowed origin is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
		req.Header.Set("Origin", "http://localhost:8080")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "http://localhost:8080", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "X-Download-Label")
	})

	t.Run("foreign origin is not", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/datasets", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestSecureHeaders(t *testing.T) {
	h := DefaultSecureHeaders().Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "img-src 'self' data: blob:")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"), "no HSTS over plain HTTP")

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestOTelMiddleware_RecordsRoute(t *testing.T) {
	logger, _ := testLogger()
	providers, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{ServiceName: "test"}, logger)
	require.NoError(t, err)
	metrics, err := infrastructure.CreateSweeperMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(NewOTelMiddleware(providers, metrics).Handler)
	r.Get("/api/datasets/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type convertBody struct {
	Format  string   `json:"format" validate:"required,target"`
	Columns []string `json:"columns,omitempty" validate:"omitempty,unique,dive,colname"`
}

func TestValidator_DecodeJSON(t *testing.T) {
	logger, _ := testLogger()
	v := NewValidator(logger)

	tests := []struct {
		name      string
		body      string
		wantField string
		wantErr   bool
	}{
		{name: "valid", body: `{"format":"excel"}`},
		{name: "upper case target", body: `{"format":"CSV"}`},
		{name: "missing format", body: `{}`, wantErr: true, wantField: "format"},
		{name: "bad target", body: `{"format":"parquet"}`, wantErr: true, wantField: "format"},
		{name: "duplicate columns", body: `{"format":"csv","columns":["a","a"]}`, wantErr: true, wantField: "columns"},
		{name: "blank column", body: `{"format":"csv","columns":[" "]}`, wantErr: true, wantField: "columns[0]"},
		{name: "unknown field", body: `{"format":"csv","extra":1}`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst convertBody
			err := v.DecodeJSON(req, &dst)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			if tt.wantField != "" {
				details, ok := apiErr.Details.([]apierrors.ValidationError)
				require.True(t, ok)
				require.NotEmpty(t, details)
				assert.Equal(t, tt.wantField, details[0].Field)
			}
		})
	}
}

func TestQueryParamValidator_ValidateEnum(t *testing.T) {
	logger, _ := testLogger()
	v := NewQueryParamValidator(apierrors.NewErrorHandler(logger, false))

	req := httptest.NewRequest(http.MethodGet, "/?format=SVG", nil)
	got, ok := v.ValidateEnum(httptest.NewRecorder(), req, "format", []string{"png", "svg"}, "png")
	assert.True(t, ok)
	assert.Equal(t, "svg", got)

	rec := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/?format=gif", nil)
	_, ok = v.ValidateEnum(rec, req, "format", []string{"png", "svg"}, "png")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
}

func TestQueryParamValidator_ValidateInt(t *testing.T) {
	logger, _ := testLogger()
	v := NewQueryParamValidator(apierrors.NewErrorHandler(logger, false))

	req := httptest.NewRequest(http.MethodGet, "/?rows=10", nil)
	n, ok := v.ValidateInt(httptest.NewRecorder(), req, "rows", 1, 100, 5)
	assert.True(t, ok)
	assert.Equal(t, 10, n)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	n, ok = v.ValidateInt(httptest.NewRecorder(), req, "rows", 1, 100, 5)
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	rec := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/?rows=0", nil)
	_, ok = v.ValidateInt(rec, req.WithContext(context.Background()), "rows", 1, 100, 5)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
