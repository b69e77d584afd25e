package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deliverycontext "campus/internal/delivery/context"
)

func TestError_DetailsVisibility(t *testing.T) {
	tests := []struct {
		status      int
		wantDetails bool
	}{
		{status: http.StatusBadRequest, wantDetails: true},
		{status: http.StatusConflict, wantDetails: true},
		{status: http.StatusUnauthorized},
		{status: http.StatusForbidden},
		{status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			deliverycontext.SetRequestID(c, "req-9")

			require.NoError(t, Error(c, tt.status, "CODE", "msg", map[string]string{"email": "required"}))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "CODE", body.Error.Code)
			assert.Equal(t, "req-9", body.Meta.RequestID)
			assert.Equal(t, tt.wantDetails, body.Error.Details != nil)
		})
	}
}

func TestValidationFailed(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	require.NoError(t, ValidationFailed(c, map[string]string{"password": "min=8"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"VALIDATION_FAILED","message":"Request validation failed",
		"details":{"password":"min=8"}},"meta":{"request_id":""}}`, rec.Body.String())
}
