package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Action  string `json:"action,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Action  string
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

// Error codes used across the service.
const (
	CodeNotFound             = "NOT_FOUND"
	CodeValidation           = "VALIDATION_ERROR"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeVerificationRequired = "VERIFICATION_REQUIRED"
	CodeCredentialExchange   = "CREDENTIAL_EXCHANGE_FAILED"
	CodeInternal             = "INTERNAL_ERROR"
)

// NewNotFoundError reports a missing resource. Ownership mismatches use the
// same message as genuinely absent IDs so callers cannot probe other users'
// resources.
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

// NewVerificationRequiredError reports a failed verification precondition on
// entering anonymous mode. The Action field points the client at the
// verification flow.
func NewVerificationRequiredError(status VerificationStatus) *AppError {
	return &AppError{
		Code:    CodeVerificationRequired,
		Message: fmt.Sprintf("anonymous mode requires a verified account (current status: %s)", status),
		Action:  "/settings/verification",
	}
}

// NewCredentialExchangeError reports a transient failure issuing or revoking
// a persona credential. The attempted transition has been rolled back and the
// caller may retry.
func NewCredentialExchangeError(err error) *AppError {
	return &AppError{
		Code:    CodeCredentialExchange,
		Message: "persona credential exchange failed, please try again",
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

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// StatusForError maps an error to the HTTP status it should be surfaced with.
func StatusForError(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeValidation:
		return fiber.StatusBadRequest
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeVerificationRequired:
		return fiber.StatusForbidden
	case CodeCredentialExchange:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error:  appErr.Message,
			Code:   appErr.Code,
			Action: appErr.Action,
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
