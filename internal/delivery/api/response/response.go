// Package response renders the JSON envelope shared by every endpoint:
// {"data": ..., "meta": {...}} on success and {"error": {...}, "meta": {...}} on failure.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	deliverycontext "campus/internal/delivery/context"
	domainerrors "campus/internal/domain/errors"
)

type SuccessResponse struct {
	Data any       `json:"data"`
	Meta *MetaInfo `json:"meta"`
}

type ErrorResponse struct {
	Error *ErrorInfo `json:"error"`
	Meta  *MetaInfo  `json:"meta"`
}

// ErrorInfo is the client facing part of a failure. Code is stable, Message is for humans.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type MetaInfo struct {
	RequestID string `json:"request_id"`
}

func meta(c echo.Context) *MetaInfo {
	return &MetaInfo{RequestID: deliverycontext.GetRequestID(c)}
}

// Success writes data with statusCode.
func Success(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, SuccessResponse{Data: data, Meta: meta(c)})
}

// Error writes a failure. Details are dropped for 401, 403 and 5xx.
func Error(c echo.Context, statusCode int, errorCode, message string, details any) error {
	if !exposesDetails(statusCode) {
		details = nil
	}

	return c.JSON(statusCode, ErrorResponse{
		Error: &ErrorInfo{Code: errorCode, Message: message, Details: details},
		Meta:  meta(c),
	})
}

// FromAppError writes appErr using its own status, code and message.
func FromAppError(c echo.Context, appErr domainerrors.AppError, details any) error {
	return Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), details)
}

// Invalid writes a 400 for input rejected before validation.
func Invalid(c echo.Context, errorCode, message string) error {
	return Error(c, http.StatusBadRequest, errorCode, message, nil)
}

// ValidationFailed writes a 400 listing the rejected fields.
func ValidationFailed(c echo.Context, fields map[string]string) error {
	return FromAppError(c, domainerrors.ErrValidationFailed, fields)
}

func exposesDetails(statusCode int) bool {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return false
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return false
	default:
		return true
	}
}
