package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestHandleError_SentinelMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"unsupported type", UnsupportedType(".csv"), http.StatusUnsupportedMediaType, TypeUnsupportedType},
		{"missing source", ErrMissingSource, http.StatusBadRequest, TypeMissingSource},
		{"file not found", ErrFileNotFound, http.StatusNotFound, TypeFileNotFound},
		{"job not found", ErrJobNotFound, http.StatusNotFound, TypeJobNotFound},
		{"not cancellable", ErrJobNotCancellable, http.StatusConflict, TypeConflict},
		{"empty sheet", ErrEmptySheet, http.StatusUnprocessableEntity, TypeEmptySheet},
		{"malformed sheet", MalformedSheet(errors.New("zip: not a valid zip file")), http.StatusUnprocessableEntity, TypeMalformedSheet},
		{"fetch failure", FetchFailure("data.xlsx", errors.New("status 500")), http.StatusBadGateway, TypeFetchFailure},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, TypeInternal},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
	}

	h := NewErrorHandler(nil, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/files/abc", nil)
			rec := httptest.NewRecorder()
			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			problem := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, problem["type"])
			assert.EqualValues(t, tt.wantStatus, problem["status"])
			assert.Equal(t, "/api/files/abc", problem["instance"])
		})
	}
}

func TestHandleError_WrappedSentinelStillMatches(t *testing.T) {
	h := NewErrorHandler(nil, false)
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, fmt.Errorf("submit: %w", ErrMissingSource))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, TypeMissingSource, problem["type"])
}

func TestHandleError_APIError(t *testing.T) {
	h := NewErrorHandler(nil, false)
	req := httptest.NewRequest(http.MethodPost, "/api/files", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, NewWithDetails(
		http.StatusBadRequest, "VALIDATION_FAILED", "name too long",
		map[string]string{"field": "name"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, TypeValidation, problem["type"])
	assert.Equal(t, "VALIDATION_FAILED", problem["error_code"])
	assert.Equal(t, "name too long", problem["detail"])
}

func TestHandleError_NilErrorWritesNothing(t *testing.T) {
	h := NewErrorHandler(nil, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestHandlePanic(t *testing.T) {
	h := NewErrorHandler(nil, true)
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()

	h.HandlePanic(rec, req, "nil map write")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, TypeInternal, problem["type"])
	assert.Equal(t, "nil map write", problem["panic"])
	assert.NotEmpty(t, problem["stack"])
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := NewErrorHandler(nil, false)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	h.NotFound(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodPatch, "/api/files", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProblemDetailsMarshalIncludesExtensions(t *testing.T) {
	problem := NewProblemDetails(
		http.StatusConflict, TypeConflict, "Conflict", "already terminal", "/api/jobs/1",
	).WithExtension("job_id", "1")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "1", decoded["job_id"])
	assert.Equal(t, "already terminal", decoded["detail"])
}
