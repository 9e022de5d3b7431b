package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes used across the membership subsystem.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeDuplicate           = "DUPLICATE"
	CodeNotDeletable        = "NOT_DELETABLE"
	CodeMissingField        = "MISSING_FIELD"
	CodeAlreadyMember       = "ALREADY_MEMBER"
	CodeAllocationExhausted = "ALLOCATION_EXHAUSTED"
	CodeInviteDispatch      = "INVITE_DISPATCH_FAILED"
	CodeInternal            = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
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

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

// NewDuplicateError signals a uniqueness violation on membership, role, or
// code insertion. The losing writer of a race receives this rather than
// corrupting state.
func NewDuplicateError(message string) *AppError {
	return &AppError{
		Code:    CodeDuplicate,
		Message: message,
	}
}

// NewNotDeletableError signals an attempt to delete a seeded catalog role.
func NewNotDeletableError(message string) *AppError {
	return &AppError{
		Code:    CodeNotDeletable,
		Message: message,
	}
}

func NewMissingFieldError(field string) *AppError {
	return &AppError{
		Code:    CodeMissingField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewAlreadyMemberError(email string) *AppError {
	return &AppError{
		Code:    CodeAlreadyMember,
		Message: fmt.Sprintf("%s is already a member of this space", email),
	}
}

func NewAllocationExhaustedError(err error) *AppError {
	return &AppError{
		Code:    CodeAllocationExhausted,
		Message: "Could not allocate a unique code",
		Err:     err,
	}
}

// NewInviteDispatchError wraps a transport failure from the one-time-passcode
// provider, keeping the provider's message for the caller.
func NewInviteDispatchError(err error) *AppError {
	return &AppError{
		Code:    CodeInviteDispatch,
		Message: "Failed to send invitation email",
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// StatusForCode maps an application error code to an HTTP status.
func StatusForCode(code string) int {
	switch code {
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeDuplicate, CodeAlreadyMember:
		return fiber.StatusConflict
	case CodeValidation, CodeMissingField, CodeNotDeletable:
		return fiber.StatusBadRequest
	case CodeInviteDispatch:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	if appErr, ok := err.(*AppError); ok {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}

// RespondWithAppError picks the HTTP status from the error's code when it is
// an AppError, falling back to 500 for anything opaque from the store.
func RespondWithAppError(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return RespondWithError(c, StatusForCode(appErr.Code), appErr)
	}
	return RespondWithError(c, fiber.StatusInternalServerError, err)
}
