package appointment

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-booking/logger"
	appointmentModel "clinic-booking/models/appointment"
	"clinic-booking/services/appointment_event"
	"clinic-booking/services/resolver"
	"clinic-booking/types"
	appointmentTypes "clinic-booking/types/appointment"
	pkgTypes "clinic-booking/types/packages"
	"clinic-booking/utils"
)

// AdminUpdate applies a partial field edit. The resolved event history is the
// "before" state, so the diff only carries fields that actually changed —
// an edit that corrects nothing but the scheduled time must not write (and
// thereby not erase) the package or plan fields.
func (a *AppointmentController) AdminUpdate(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid appointment id",
			Data:    nil,
		})
	}

	var req appointmentTypes.AdminUpdateRequest
	if err := c.BodyParser(&req); err != nil {
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

	var usageResult *pkgTypes.LedgerResult

	err = a.DB.Transaction(func(tx *gorm.DB) error {
		var appt appointmentModel.Appointment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&appt, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return types.NotFound(types.CodeApptNotFound, "appointment not found")
			}
			return err
		}

		events, err := appointment_event.History(tx, appt.ID)
		if err != nil {
			return err
		}
		snap := resolver.Resolve(events)

		before := &appointmentModel.EventFields{}
		after := &appointmentModel.EventFields{
			StaffName: actor.Name,
			StaffID:   actor.ID,
		}
		changed := false
		updates := map[string]interface{}{}

		if req.ScheduledAt != nil && !req.ScheduledAt.Equal(appt.ScheduledAt) {
			before.ScheduledAt = appt.ScheduledAt.Format(time.RFC3339)
			after.ScheduledAt = req.ScheduledAt.Format(time.RFC3339)
			updates["scheduled_at"] = *req.ScheduledAt
			changed = true
		}
		if req.Branch != nil && *req.Branch != appt.Branch {
			before.Branch = appt.Branch
			after.Branch = *req.Branch
			updates["branch"] = *req.Branch
			changed = true
		}
		if req.TreatmentItemText != nil && *req.TreatmentItemText != snap.TreatmentItemText {
			before.TreatmentItemText = snap.TreatmentItemText
			after.TreatmentItemText = *req.TreatmentItemText
			changed = true
		}
		if req.TreatmentPlanMode != nil {
			mode := appointmentModel.NormalizePlanMode(*req.TreatmentPlanMode)
			if mode == appointmentModel.PlanModeEmpty {
				return types.Validation(fmt.Sprintf("unknown treatment plan mode %q", *req.TreatmentPlanMode))
			}
			if string(mode) != snap.TreatmentPlanMode {
				before.TreatmentPlanMode = snap.TreatmentPlanMode
				after.TreatmentPlanMode = string(mode)
				changed = true
			}
		}

		// Package linkage: an explicit unlink wins, and only a real change
		// is recorded.
		if req.UnlinkPackage {
			if snap.PackageID != "" {
				before.PackageID = snap.PackageID
				after.UnlinkPackage = true
				changed = true
			}
		} else if req.CustomerPackageID != nil {
			newID := strconv.FormatUint(uint64(*req.CustomerPackageID), 10)
			if newID != snap.PackageID {
				before.PackageID = snap.PackageID
				after.PackageID = newID
				changed = true
			}
			if req.CreateUsage {
				result, err := a.Ledger.CreateUsageByAdmin(tx, appt.ID,
					*req.CustomerPackageID, req.UsedMask, actor)
				if err != nil {
					return err
				}
				usageResult = result
				appt.Status = appointmentModel.AppointmentStatus(result.Status)
				changed = true
			}
		}

		if !changed {
			return types.Validation("no fields changed")
		}

		if len(updates) > 0 {
			updatedBy := actor.Name
			if updatedBy == "" {
				updatedBy = actor.ID
			}
			updates["updated_by"] = updatedBy
			if err := tx.Model(&appt).Updates(updates).Error; err != nil {
				return err
			}
		}

		meta := appointmentModel.EventMeta{Before: before, After: after}
		if usageResult != nil && usageResult.Usage != nil {
			meta.Kind = "package"
			meta.CustomerPackageID = usageResult.Usage.CustomerPackageID
			meta.SessionNo = usageResult.Usage.SessionNo
			meta.UsedMask = usageResult.Usage.UsedMask
		}
		_, err = appointment_event.Append(tx, appt.ID, appointmentModel.EventAdminUpdate,
			appointmentModel.ActorStaff, req.Note, meta, nil)
		return err
	})
	if err != nil {
		return types.RespondError(c, err, "Failed to update appointment")
	}

	// Re-resolve so the response reflects the event that was just appended.
	events, err := appointment_event.History(a.DB, uint(id))
	if err != nil {
		logger.Error("Failed to reload appointment events", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Updated but failed to reload state",
			Data:    nil,
		})
	}
	snap := resolver.Resolve(events)

	a.Logger.Log(utils.CreateSanitizedLogEntry(c))
	logger.Success(fmt.Sprintf("Appointment %d updated by admin", id))
	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Appointment updated successfully",
		Data: fiber.Map{
			"resolved": snap,
			"usage":    usageResult,
		},
	})
}

// StatusPatch is the generic admin status overwrite with ledger
// reconciliation. The transition back to booked implies usage cleanup and is
// post-checked; a violation rolls the whole transaction back.
func (a *AppointmentController) StatusPatch(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid appointment id",
			Data:    nil,
		})
	}

	var req appointmentTypes.StatusPatchRequest
	if err := c.BodyParser(&req); err != nil {
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

	result, err := a.Status.AdminTransition(uint(id),
		appointmentModel.AppointmentStatus(req.Status), actor, req.Reason)
	if err != nil {
		return types.RespondError(c, err, "Failed to change appointment status")
	}

	message := "Appointment status updated successfully"
	if result.Warning != "" {
		message = "Appointment status updated with warning"
		logger.Warning(fmt.Sprintf("appointment %d: %s", id, result.Warning))
	}
	a.Logger.Log(utils.CreateSanitizedLogEntry(c))

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: message,
		Data:    result,
	})
}
