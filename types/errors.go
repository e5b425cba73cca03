package types

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Machine-readable error codes surfaced alongside HTTP statuses. Invariant
// violations get their own codes so operators can distinguish "nothing
// changed, fix the input and retry" from "a post-condition check failed".
const (
	CodeValidation            = "VALIDATION_FAILED"
	CodeStatusNotAllowed      = "APPT_STATUS_NOT_ALLOWED"
	CodeApptNotFound          = "APPT_NOT_FOUND"
	CodeApptNotMutable        = "APPT_NOT_MUTABLE"
	CodeApptNotRevertible     = "APPT_NOT_REVERTIBLE"
	CodeApptNotCompleted      = "APPT_NOT_COMPLETED"
	CodeUsageExists           = "APPT_USAGE_EXISTS"
	CodeUsageInvariant        = "APPT_STATUS_USAGE_INVARIANT"
	CodeStaffRequired         = "SSOT_EVENT_STAFF_REQUIRED"
	CodePackageNotFound       = "PKG_NOT_FOUND"
	CodePackageWrongCustomer  = "PKG_WRONG_CUSTOMER"
	CodePackageNotActive      = "PKG_NOT_ACTIVE"
	CodeNoRemainingSessions   = "PKG_NO_REMAINING_SESSIONS"
	CodeNoRemainingMasks      = "PKG_NO_REMAINING_MASKS"
	CodeDeductionNotAllowed   = "PKG_DEDUCTION_NOT_ALLOWED"
)

// AppError is a typed error carrying the HTTP status and machine code the
// controllers translate into an ApiResponse. Services return these for every
// precondition or invariant failure and rely on the enclosing transaction to
// roll back.
type AppError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Code + ": " + e.Message
}

func NewAppError(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

// Validation is a 400-class input error.
func Validation(message string) *AppError {
	return NewAppError(fiber.StatusBadRequest, CodeValidation, message)
}

// NotFound is a missing-reference error.
func NotFound(code, message string) *AppError {
	return NewAppError(fiber.StatusNotFound, code, message)
}

// Conflict is a 409-class precondition/state error.
func Conflict(code, message string) *AppError {
	return NewAppError(fiber.StatusConflict, code, message)
}

// Unprocessable is a 422-class semantic error.
func Unprocessable(code, message string) *AppError {
	return NewAppError(fiber.StatusUnprocessableEntity, code, message)
}

// Invariant is the fatal post-condition class: the transaction must roll
// back entirely and the failure is operator-visible, never auto-corrected.
func Invariant(message string) *AppError {
	return NewAppError(fiber.StatusConflict, CodeUsageInvariant, message)
}

// AsAppError unwraps err into an *AppError if one is in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// RespondError translates a service error into an ApiResponse. Typed errors
// keep their status and code; anything else is a generic 500 with the
// fallback message.
func RespondError(c *fiber.Ctx, err error, fallback string) error {
	if appErr, ok := AsAppError(err); ok {
		return c.Status(appErr.Status).JSON(ApiResponse{
			Status:  appErr.Status,
			Message: appErr.Message,
			Data:    fiber.Map{"code": appErr.Code},
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(ApiResponse{
		Status:  fiber.StatusInternalServerError,
		Message: fallback,
		Data:    nil,
	})
}
