package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrPermission           = errors.New("permission denied")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConflict             = errors.New("conflict")
	ErrInternal             = errors.New("internal server error")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrLoadFailed           = errors.New("load failed")
	ErrRemoteWriteFailed    = errors.New("remote write failed")
	ErrConfirmationRequired = errors.New("confirmation required")
)

type AppError struct {
	BaseError error
	Message   string
	Details   string
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (Details: %s, Cause: %v)", e.BaseError.Error(), e.Message, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %s (Details: %s)", e.BaseError.Error(), e.Message, e.Details)
}

func (e *AppError) Unwrap() error {
	return e.BaseError
}

// Cause returns the underlying error that triggered e, if any.
func (e *AppError) Cause() error {
	return e.Err
}

func NewAppError(base error, msg, details string, err error) *AppError {
	return &AppError{BaseError: base, Message: msg, Details: details, Err: err}
}

func NewNotFound(resource, identifier string) *AppError {
	msg := fmt.Sprintf("%s not found", resource)
	details := fmt.Sprintf("%s with identifier '%s' was not found", resource, identifier)
	return NewAppError(ErrNotFound, msg, details, nil)
}

func NewInvalidInput(details string, err error) *AppError {
	return NewAppError(ErrInvalidInput, "Invalid input provided", details, err)
}

// NewValidation reports missing or malformed form fields. It never reaches the store.
func NewValidation(details string) *AppError {
	return NewAppError(ErrInvalidInput, "Please fill out all required fields", details, nil)
}

func NewConflict(resource, field, value string) *AppError {
	msg := fmt.Sprintf("%s conflict", resource)
	details := fmt.Sprintf("%s with %s '%s' already exists", resource, field, value)
	return NewAppError(ErrConflict, msg, details, nil)
}

func NewInternal(details string, err error) *AppError {
	return NewAppError(ErrInternal, "An internal server error occurred", details, err)
}

func NewUnauthorized(details string, err error) *AppError {
	return NewAppError(ErrUnauthorized, "Invalid credentials", details, err)
}

func NewNotAuthenticated(details string) *AppError {
	return NewAppError(ErrUnauthorized, "User not authenticated", details, nil)
}

func NewPermissionDenied(details string) *AppError {
	return NewAppError(ErrPermission, "Permission denied", details, nil)
}

func NewLoadFailed(resource string, err error) *AppError {
	return NewAppError(ErrLoadFailed, fmt.Sprintf("Failed to fetch %s data", resource), "remote read failed", err)
}

func NewRemoteWriteFailed(resource string, err error) *AppError {
	return NewAppError(ErrRemoteWriteFailed, fmt.Sprintf("Failed to save %s data", resource), "remote write failed", err)
}

func NewConfirmationRequired(resource, identifier string) *AppError {
	details := fmt.Sprintf("deleting %s '%s' must be confirmed", resource, identifier)
	return NewAppError(ErrConfirmationRequired, "Are you sure you want to delete this item?", details, nil)
}

func ToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, ErrLoadFailed), errors.Is(err, ErrRemoteWriteFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (e *AppError) ToJSON() gin.H {
	return gin.H{
		"error":   e.BaseError.Error(),
		"message": e.Message,
	}
}
