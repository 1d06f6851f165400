package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes shared by the service layer and the HTTP surface.
const (
	CodeDuplicateCredential = "DUPLICATE_CREDENTIAL"
	CodeInvalidCredential   = "INVALID_CREDENTIAL"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInternal            = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks. Matching is by code only.
var (
	ErrDuplicateCredential = &AppError{Code: CodeDuplicateCredential}
	ErrInvalidCredential   = &AppError{Code: CodeInvalidCredential}
	ErrNotFound            = &AppError{Code: CodeNotFound}
	ErrUnauthorized        = &AppError{Code: CodeUnauthorized}
	ErrValidation          = &AppError{Code: CodeValidation}
	ErrInternal            = &AppError{Code: CodeInternal}
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	// Field names the offending input, e.g. "username" on a duplicate signup.
	Field string
	Err   error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewDuplicateCredentialError reports a username or email collision.
func NewDuplicateCredentialError(field string) *AppError {
	msg := "Username or email already taken"
	if field != "" {
		msg = fmt.Sprintf("%s already taken", field)
	}
	return &AppError{
		Code:    CodeDuplicateCredential,
		Message: msg,
		Field:   field,
	}
}

// NewInvalidCredentialError reports a password that failed verification.
func NewInvalidCredentialError() *AppError {
	return &AppError{
		Code:    CodeInvalidCredential,
		Message: "Invalid credentials",
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// ErrorCode extracts the AppError code from err, or "" when err is not an AppError.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// RespondWithError creates a standardized error response.
// Internal errors never expose their cause.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
			Field: appErr.Field,
		}
	} else {
		response = ErrorResponse{
			Error: "Internal server error",
			Code:  CodeInternal,
		}
	}

	return c.Status(status).JSON(response)
}
