package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "일시적인 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
	// StorageErrorMessage describes failed reads or writes of a persisted document.
	StorageErrorMessage = "저장 중 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
)

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

// WrapStorage wraps a persistence error with a consistent status code and message.
func WrapStorage(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusInternalServerError, StorageErrorMessage)
}

// BadRequest marks err as caused by invalid user input; message is shown as-is.
func BadRequest(err error, message string) error {
	return New(err, http.StatusBadRequest, message)
}

// Message returns the user-facing text for err, falling back to SystemErrorMessage.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}

// Status returns the HTTP status attached to err, or 500.
func Status(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
