// Package errors defines the domain failures the API exposes. Each carries an
// HTTP status, a stable machine code and a message safe to show clients.
package errors

import (
	"net/http"

	"campus/internal/errors"
)

// AppError is a failure that knows how it is rendered.
type AppError interface {
	error
	HTTPCode() int
	ErrorCode() string
	Message() string
	// Details is internal context, never sent to clients.
	Details() string
}

// BaseError is a catalog entry. Entries are compared by identity, so wrap
// them (WrapMessage) instead of copying.
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{httpCode: httpCode, errorCode: errorCode, message: message, details: details}
}

func define(httpCode int, errorCode, message string) *BaseError {
	return NewBaseError(httpCode, errorCode, message, "")
}

func (e *BaseError) Error() string     { return e.message }
func (e *BaseError) HTTPCode() int     { return e.httpCode }
func (e *BaseError) ErrorCode() string { return e.errorCode }
func (e *BaseError) Message() string   { return e.message }
func (e *BaseError) Details() string   { return e.details }

// WrapMessage adds log context while keeping errors.Is(err, e) true.
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// DatabaseExecuteError is an unexpected storage failure. The driver error stays
// reachable through Unwrap for logging.
type DatabaseExecuteError struct {
	err     error
	details string
}

func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{err: err, details: details}
}

func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed: "+e.details).Error()
}

func (e *DatabaseExecuteError) Unwrap() error     { return e.err }
func (e *DatabaseExecuteError) HTTPCode() int     { return http.StatusInternalServerError }
func (e *DatabaseExecuteError) ErrorCode() string { return "DATABASE_EXECUTE_FAILED" }
func (e *DatabaseExecuteError) Message() string   { return "Database operation failed" }
func (e *DatabaseExecuteError) Details() string   { return e.details }
