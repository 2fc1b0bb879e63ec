package errors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoveryMiddleware(t *testing.T) {
	logger, buf := newTestLogger()
	mw := RecoveryMiddleware(NewErrorHandler(logger, false))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(42)
		})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ContentTypeProblem, rec.Header().Get("Content-Type"))
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestRecoveryMiddleware_AbortHandler(t *testing.T) {
	logger, _ := newTestLogger()
	mw := RecoveryMiddleware(NewErrorHandler(logger, false))

	assert.Panics(t, func() {
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRecoveryMiddleware_PassThrough(t *testing.T) {
	logger, _ := newTestLogger()
	mw := RecoveryMiddleware(NewErrorHandler(logger, false))

	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
