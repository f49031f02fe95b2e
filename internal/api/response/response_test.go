package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/signalboard/internal/core"
)

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"hello": "world"}

	JSON(w, http.StatusOK, data)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Data)
	assert.False(t, resp.Meta.Timestamp.IsZero())
}

func TestError_WithCoreError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidRequest, errors.New("symbol is required")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
	assert.Equal(t, "symbol is required", resp.Error.Cause)
}

func TestError_WithStandardError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusInternalServerError, errors.New("boom"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Empty(t, resp.Error.Cause)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.WrapError(core.ErrInvalidRequest, nil), http.StatusBadRequest},
		{core.ErrRegionNotFound, http.StatusNotFound},
		{core.WrapError(core.ErrBackendStatus, errors.New("502")), http.StatusBadGateway},
		{core.ErrDecodeFailed, http.StatusBadGateway},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.err), tt.err.Error())
	}
}

func TestFail(t *testing.T) {
	w := httptest.NewRecorder()
	Fail(w, core.ErrRegionNotFound)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
