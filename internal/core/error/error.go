package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// StorageErrorMessage describes SQL storage failures.
	StorageErrorMessage = "storage operation failed"
	// NotFoundMessage is used when an identifier does not resolve.
	NotFoundMessage = "resource not found"
	// BadRequestMessage is used when input fails structural validation.
	BadRequestMessage = "invalid request"
	// UpstreamErrorMessage describes a failed external capability call.
	UpstreamErrorMessage = "upstream capability failed"
)

// ErrNotFound is the sentinel wrapped by every not-found AppError.
var ErrNotFound = errors.New("not found")

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// BadRequest reports input that failed structural validation.
func BadRequest(message string) *AppError {
	if message == "" {
		message = BadRequestMessage
	}
	return New(nil, http.StatusBadRequest, message)
}

// NotFound reports an identifier that does not resolve. The result matches
// ErrNotFound via errors.Is.
func NotFound(message string) *AppError {
	if message == "" {
		message = NotFoundMessage
	}
	return New(ErrNotFound, http.StatusNotFound, message)
}

// Upstream wraps a failed capability call.
func Upstream(err error) *AppError {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, UpstreamErrorMessage)
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// MessageOf returns the safe message carried by err, or the system fallback.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}
