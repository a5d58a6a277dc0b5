package http

import (
	"fmt"
	"net/http"
)

// AppError is an error that knows its HTTP status. Err is logged by the
// caller and never rendered.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func newAppError(status int, code, field, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Field: field, Status: status}
}

func BadRequestErrorf(field, format string, a ...interface{}) *AppError {
	return newAppError(http.StatusBadRequest, "ERR_BAD_REQUEST", field, fmt.Sprintf(format, a...))
}

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return newAppError(http.StatusNotFound, "ERR_NOT_FOUND", "", fmt.Sprintf(format, a...))
}

func TooManyRequestsError(msg string) *AppError {
	return newAppError(http.StatusTooManyRequests, "ERR_RATE_LIMITED", "", msg)
}

func UnavailableError(msg string) *AppError {
	return newAppError(http.StatusServiceUnavailable, "ERR_UNAVAILABLE", "", msg)
}

func InternalError(msg string) *AppError {
	return newAppError(http.StatusInternalServerError, "ERR_INTERNAL", "", msg)
}
