// Package apperr defines the error classes surfaced by the API.
package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for the HTTP layer.
type Code string

const (
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeNotFound     Code = "NOT_FOUND"
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeUnauthorized Code = "UNAUTHORIZED"
)

// AppError is an error with a code and a client-facing message.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches a code and message to err.
func Wrap(code Code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NotFound is shorthand for New(CodeNotFound, message).
func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

// BadRequest is shorthand for New(CodeBadRequest, message).
func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message)
}

// Is reports whether err, or anything it wraps, carries code.
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// FromNoRows converts sql.ErrNoRows into a NotFound error and passes any
// other error through unchanged.
func FromNoRows(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return Wrap(CodeNotFound, message, err)
	}
	return err
}

// HTTPStatus maps err to a status code. Unclassified errors are 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for err. Internal errors get a
// generic message so driver details never reach the client.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != CodeInternal {
		return appErr.Message
	}
	return "Internal Server Error"
}
