package errors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Is matches any BaseError carrying the same business code, so WithDetails copies
// still compare equal to the predefined sentinel.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return e.errorCode == t.errorCode
}

// Predefined error types
var (
	// Sample-related errors
	ErrSampleNotFound = NewBaseError(
		http.StatusNotFound,
		"SAMPLE_NOT_FOUND",
		"location sample not found",
		"",
	)

	ErrSampleAlreadyExists = NewBaseError(
		http.StatusConflict,
		"SAMPLE_ALREADY_EXISTS",
		"a location sample already exists for this timestamp",
		"",
	)

	ErrInvalidCoordinate = NewBaseError(
		http.StatusBadRequest,
		"INVALID_COORDINATE",
		"latitude must be within [-90, 90] and longitude within [-180, 180]",
		"",
	)

	// Tracking-related errors
	ErrTrackingStopped = NewBaseError(
		http.StatusConflict,
		"TRACKING_STOPPED",
		"tracking session is no longer active",
		"",
	)

	// Validation-related errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"input validation failed",
		"",
	)

	// Authentication-related errors
	ErrUnauthorized = NewBaseError(
		http.StatusUnauthorized,
		"UNAUTHORIZED",
		"missing or invalid access token",
		"",
	)

	// Transaction-related errors
	ErrTransactionFailed = NewBaseError(
		http.StatusInternalServerError,
		"TRANSACTION_FAILED",
		"database transaction failed",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"internal server error",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"resource not found",
		"",
	)
)

// StorageError reports a failed read or write against the local sample store.
// It is never swallowed: every store operation surfaces it to the caller.
type StorageError struct {
	Op  string
	err error
}

// NewStorageError wraps a driver error for the named store operation
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.err)
}

func (e *StorageError) Unwrap() error {
	return e.err
}

func (e *StorageError) HTTPCode() int {
	return http.StatusInternalServerError
}

func (e *StorageError) ErrorCode() string {
	return "STORAGE_FAILED"
}

func (e *StorageError) Message() string {
	return "local storage operation failed"
}

func (e *StorageError) Details() string {
	return e.Op
}

// GeofenceViolation is the control signal raised when a fix falls outside the
// admissible region. The offending sample is never persisted.
type GeofenceViolation struct {
	Latitude  float64
	Longitude float64
}

func NewGeofenceViolation(lat, lon float64) *GeofenceViolation {
	return &GeofenceViolation{Latitude: lat, Longitude: lon}
}

func (e *GeofenceViolation) Error() string {
	return fmt.Sprintf("position (%.6f, %.6f) is outside the geofence", e.Latitude, e.Longitude)
}

func (e *GeofenceViolation) HTTPCode() int {
	return http.StatusConflict
}

func (e *GeofenceViolation) ErrorCode() string {
	return "GEOFENCE_VIOLATION"
}

func (e *GeofenceViolation) Message() string {
	return "position is outside the geofence, tracking stopped"
}

func (e *GeofenceViolation) Details() string {
	return fmt.Sprintf("lat=%f lon=%f", e.Latitude, e.Longitude)
}

// RemoteAuthError reports a failed token request against the feature service
type RemoteAuthError struct {
	Code   int
	Reason string
	err    error
}

func NewRemoteAuthError(code int, reason string, err error) *RemoteAuthError {
	return &RemoteAuthError{Code: code, Reason: reason, err: err}
}

func (e *RemoteAuthError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("remote auth failed (%d): %s: %v", e.Code, e.Reason, e.err)
	}

	return fmt.Sprintf("remote auth failed (%d): %s", e.Code, e.Reason)
}

func (e *RemoteAuthError) Unwrap() error {
	return e.err
}

func (e *RemoteAuthError) HTTPCode() int {
	return http.StatusBadGateway
}

func (e *RemoteAuthError) ErrorCode() string {
	return "REMOTE_AUTH_FAILED"
}

func (e *RemoteAuthError) Message() string {
	return "could not authenticate against the feature service"
}

func (e *RemoteAuthError) Details() string {
	return e.Reason
}

// RemoteSubmitError reports a rejected or failed feature submission
type RemoteSubmitError struct {
	Code   int
	Reason string
	err    error
}

func NewRemoteSubmitError(code int, reason string, err error) *RemoteSubmitError {
	return &RemoteSubmitError{Code: code, Reason: reason, err: err}
}

func (e *RemoteSubmitError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("remote submit failed (%d): %s: %v", e.Code, e.Reason, e.err)
	}

	return fmt.Sprintf("remote submit failed (%d): %s", e.Code, e.Reason)
}

func (e *RemoteSubmitError) Unwrap() error {
	return e.err
}

func (e *RemoteSubmitError) HTTPCode() int {
	return http.StatusBadGateway
}

func (e *RemoteSubmitError) ErrorCode() string {
	return "REMOTE_SUBMIT_FAILED"
}

func (e *RemoteSubmitError) Message() string {
	return "the feature service rejected the submission"
}

func (e *RemoteSubmitError) Details() string {
	return e.Reason
}

// TokenInvalid reports whether the remote rejected the access token itself.
func (e *RemoteSubmitError) TokenInvalid() bool {
	return e.Code == 498 || e.Code == 499
}
