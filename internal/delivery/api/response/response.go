package response

import (
	"net/http"

	deliverycontext "fieldtrack/internal/delivery/context"
	domainerrors "fieldtrack/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Meta is attached to every response body.
type Meta struct {
	RequestID string `json:"request_id"`
}

// Problem describes a failed request. Code is the stable business code clients
// switch on, e.g. GEOFENCE_VIOLATION.
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Body is the success envelope.
type Body struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta"`
}

// ErrorBody is the failure envelope.
type ErrorBody struct {
	Error *Problem `json:"error"`
	Meta  *Meta    `json:"meta"`
}

// Success writes {data, meta}.
func Success(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, Body{
		Data: data,
		Meta: meta(c),
	})
}

// Error writes {error, meta}. Details are dropped for 5xx and auth failures.
func Error(c echo.Context, statusCode int, errorCode string, message string, details any) error {
	if statusCode >= http.StatusInternalServerError || statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		details = nil
	}

	return c.JSON(statusCode, ErrorBody{
		Error: &Problem{
			Code:    errorCode,
			Message: message,
			Details: details,
		},
		Meta: meta(c),
	})
}

func meta(c echo.Context) *Meta {
	return &Meta{RequestID: deliverycontext.RequestID(c)}
}

// BadRequest returns a 400 error
func BadRequest(c echo.Context, errorCode string, message string) error {
	return Error(c, http.StatusBadRequest, errorCode, message, nil)
}

// BindingError returns a 400 error for a body or parameter that could not be decoded
func BindingError(c echo.Context, errorCode string, message string) error {
	return Error(c, http.StatusBadRequest, errorCode, message, nil)
}

// ValidationError returns a 400 error carrying the validator output
func ValidationError(c echo.Context, err error) error {
	return Error(c, http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", err.Error())
}

// Unauthorized returns a 401 error
func Unauthorized(c echo.Context, errorCode string, message string) error {
	return Error(c, http.StatusUnauthorized, errorCode, message, nil)
}

// Forbidden returns a 403 error
func Forbidden(c echo.Context, errorCode string, message string) error {
	return Error(c, http.StatusForbidden, errorCode, message, nil)
}

// InternalServerError returns a 500 error
func InternalServerError(c echo.Context, errorCode string, message string) error {
	return Error(c, http.StatusInternalServerError, errorCode, message, nil)
}

// HandleAppError renders a domain error. Anything that is not an AppError is
// passed on to the central error handler.
func HandleAppError(c echo.Context, err error) error {
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		var details any
		if d := appErr.Details(); d != "" {
			details = d
		}

		return Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), details)
	}

	return errors.WithStack(err)
}
