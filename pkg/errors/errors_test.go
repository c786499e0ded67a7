package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAppErrorTypeChecks(t *testing.T) {
	assert.True(t, IsNotFound(ErrSessionNotFound("S1")))
	assert.True(t, IsConflict(ErrSessionAlreadyAnalyzed("S1")))
	assert.True(t, IsValidation(ErrEmptyElementName()))
	assert.True(t, IsUnavailable(NewStoreUnavailableError("Query", nil)))
	assert.True(t, IsUnauthorized(NewUnauthorizedError("")))

	assert.False(t, IsNotFound(NewInternalError("boom")))
	assert.False(t, IsNotFound(fmt.Errorf("plain error")))
	assert.False(t, IsNotFound(nil))
}

func TestWrapKeepsAppErrorType(t *testing.T) {
	err := Wrap(ErrUserNotFound("u1"), "loading profile")
	require.Error(t, err)
	assert.True(t, IsNotFound(err), "wrapping must not change the error type")
	assert.Contains(t, err.Error(), "loading profile")
}

func TestWrapPlainErrorBecomesInternal(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(cause, "fetching chain")
	assert.True(t, IsInternal(err))

	appErr := GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, cause, appErr.Cause)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "nothing happened"))
}

func TestPartialIngestionDetection(t *testing.T) {
	err := NewPartialIngestionError("S1", []FailedElement{
		{Kind: "emotion", Name: "anxiety", Reason: "store rejected"},
	})

	assert.True(t, IsPartialIngestion(err))
	partial := GetPartialIngestion(err)
	require.NotNil(t, partial)
	assert.Equal(t, "S1", partial.SessionID)
	assert.Len(t, partial.Failed, 1)

	assert.False(t, IsPartialIngestion(NewInternalError("boom")))
	assert.Nil(t, GetPartialIngestion(nil))
}

func TestHandlerMapsAppErrorStatus(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)

	cases := []struct {
		err    error
		status int
	}{
		{ErrSessionNotFound("S1"), http.StatusNotFound},
		{NewValidationError("bad payload"), http.StatusBadRequest},
		{ErrSessionAlreadyAnalyzed("S1"), http.StatusConflict},
		{NewUnauthorizedError(""), http.StatusUnauthorized},
		{NewStoreUnavailableError("Query", nil), http.StatusServiceUnavailable},
		{fmt.Errorf("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
		h.Handle(rec, req, tc.err)
		assert.Equal(t, tc.status, rec.Code, "error %v", tc.err)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestHandlerPartialIngestionIsMultiStatus(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/S1/elements", nil)

	h.Handle(rec, req, NewPartialIngestionError("S1", []FailedElement{
		{Kind: "belief", Name: "i always fail", Reason: "store rejected"},
	}))

	assert.Equal(t, http.StatusMultiStatus, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Error)
	assert.Equal(t, string(ErrorTypePartial), body.Type)
	assert.Equal(t, "S1", body.Details["session_id"])
}

func TestHandlerHidesInternalsWithoutDebug(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	h.Handle(rec, req, fmt.Errorf("password=hunter2 leaked into error"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "An internal error occurred", body.Message)
}

func TestMiddlewareRecoversPanic(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	handler := h.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
