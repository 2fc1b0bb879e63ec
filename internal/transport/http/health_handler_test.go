package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "datasweeper/internal/errors"
	"datasweeper/internal/services"
	"datasweeper/internal/session"
)

type hubStub struct{}

func (hubStub) ClientCount() int { return 3 }
func (hubStub) GetHubMetrics() map[string]interface{} {
	return map[string]interface{}{"active_connections": 3}
}

func TestHealthHandler(t *testing.T) {
	store := session.NewStore(time.Minute, 5, 0)
	defer store.Stop()

	logger := testLogger()
	r := chi.NewRouter()
	r.Route("/api", NewHealthHandler(services.NewHealthService("1.0.0", "", hubStub{}, store, logger), logger).Routes)

	tests := []struct {
		path       string
		wantStatus string
	}{
		{"/api/health", "ok"},
		{"/api/health/ready", "ready"},
		{"/api/health/live", "alive"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(r, http.MethodGet, tt.path, "", "")
			require.Equal(t, http.StatusOK, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body["status"])
		})
	}

	rec := do(r, http.MethodGet, "/api/version", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"1.0.0"`)
}

func TestHealthHandler_NotReady(t *testing.T) {
	logger := testLogger()
	r := chi.NewRouter()
	r.Route("/api", NewHealthHandler(services.NewHealthService("1.0.0", "", nil, nil, logger), logger).Routes)

	rec := do(r, http.MethodGet, "/api/health/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsHandler_GetStats(t *testing.T) {
	store := session.NewStore(time.Minute, 5, 0)
	defer store.Stop()

	r := chi.NewRouter()
	r.Get("/api/stats", NewMetricsHandler(store, hubStub{}).GetStats)

	rec := do(r, http.MethodGet, "/api/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 5, body["sessions"]["max_size"])
	assert.EqualValues(t, 3, body["websocket"]["active_connections"])
}

func TestClientLogHandler(t *testing.T) {
	logger := testLogger()
	h := NewClientLogHandler(apierrors.NewErrorHandler(logger, false), logger)

	rec := do(http.HandlerFunc(h.Handle), http.MethodPost, "/api/client-logs", "application/json",
		`{"level":"error","message":"chart failed to load","source":"index.html"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(http.HandlerFunc(h.Handle), http.MethodPost, "/api/client-logs", "application/json",
		`{"level":"fatal","message":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.HandlerFunc(h.Handle), http.MethodPost, "/api/client-logs", "application/json", `{"level":"info"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPageHandler(t *testing.T) {
	frontend := fstest.MapFS{
		"index.html": &fstest.MapFile{Data: []byte(`<title>{{.Title}}</title><p>{{.MaxFiles}} files</p><p>{{range .Extensions}}{{.}} {{end}}</p>`)},
	}
	h, err := NewPageHandler(frontend, PageData{Title: "Data Sweeper", MaxFiles: 20, Extensions: []string{".csv", ".xlsx"}}, testLogger())
	require.NoError(t, err)

	rec := do(http.HandlerFunc(h.ServeIndex), http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "<title>Data Sweeper</title>"))
	assert.Contains(t, body, "20 files")
	assert.Contains(t, body, ".csv .xlsx")

	_, err = NewPageHandler(fstest.MapFS{}, PageData{}, testLogger())
	assert.Error(t, err)
}
