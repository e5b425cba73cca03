package appointment

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"clinic-booking/logger"
	appointmentModel "clinic-booking/models/appointment"
	"clinic-booking/types"
	appointmentTypes "clinic-booking/types/appointment"
	"clinic-booking/utils"
)

// Complete is the service-completion endpoint. It branches three ways: an
// already completed appointment short-circuits through the idempotent path
// (safe to retry after a client timeout), a request naming a package redeems
// a session, anything else is a one-off completion.
func (a *AppointmentController) Complete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid appointment id",
			Data:    nil,
		})
	}

	var req appointmentTypes.CompleteRequest
	if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}

	actor, err := utils.ActorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: err.Error(),
			Data:    nil,
		})
	}

	// Idempotent retry branch: no locks, no writes.
	var existing appointmentModel.Appointment
	if err := a.DB.First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Appointment not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to find appointment", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Internal server error",
			Data:    nil,
		})
	}
	if existing.Status == appointmentModel.StatusCompleted {
		result, err := a.Ledger.CompleteIdempotent(uint(id))
		if err != nil {
			return types.RespondError(c, err, "Failed to load completion state")
		}
		return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
			Status:  fiber.StatusOK,
			Message: "Appointment already completed",
			Data:    result,
		})
	}

	if req.CustomerPackageID != nil {
		result, err := a.Ledger.CompleteWithPackage(uint(id), *req.CustomerPackageID,
			req.UsedMask, actor, req.Note)
		if err != nil {
			return types.RespondError(c, err, "Failed to complete appointment")
		}
		a.Logger.Log(utils.CreateSanitizedLogEntry(c))
		logger.Success(fmt.Sprintf("Appointment %d completed against package %d", id, *req.CustomerPackageID))
		return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
			Status:  fiber.StatusOK,
			Message: "Appointment completed successfully",
			Data:    result,
		})
	}

	// One-off completions never deduct; a mask request without a package is
	// a caller mistake.
	if req.UsedMask {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "mask deduction requires a customer package",
			Data:    fiber.Map{"code": types.CodeDeductionNotAllowed},
		})
	}

	result, err := a.Ledger.CompleteWithoutPackage(uint(id), actor, req.Note)
	if err != nil {
		return types.RespondError(c, err, "Failed to complete appointment")
	}
	a.Logger.Log(utils.CreateSanitizedLogEntry(c))
	logger.Success(fmt.Sprintf("Appointment %d completed as one-off", id))
	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Appointment completed successfully",
		Data:    result,
	})
}

// Revert resets a completed, cancelled or no-show appointment back to booked
// and restores any consumed allowance.
func (a *AppointmentController) Revert(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid appointment id",
			Data:    nil,
		})
	}

	actor, err := utils.ActorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: err.Error(),
			Data:    nil,
		})
	}

	note := ""
	var body struct {
		Note string `json:"note"`
	}
	if err := c.BodyParser(&body); err == nil {
		note = body.Note
	}

	result, err := a.Ledger.Revert(uint(id), actor, note)
	if err != nil {
		return types.RespondError(c, err, "Failed to revert appointment")
	}

	a.Logger.Log(utils.CreateSanitizedLogEntry(c))
	logger.Success(fmt.Sprintf("Appointment %d reverted to booked", id))
	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Appointment reverted successfully",
		Data:    result,
	})
}
