package appointment

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jinzhu/now"
	"gorm.io/gorm"

	"clinic-booking/logger"
	appointmentModel "clinic-booking/models/appointment"
	packagesModel "clinic-booking/models/packages"
	"clinic-booking/services/appointment_event"
	"clinic-booking/services/ledger"
	"clinic-booking/services/provision"
	"clinic-booking/services/resolver"
	"clinic-booking/services/status"
	"clinic-booking/types"
	appointmentTypes "clinic-booking/types/appointment"
	"clinic-booking/utils"
)

// AppointmentController handles appointment-related HTTP requests
type AppointmentController struct {
	DB        *gorm.DB
	Logger    *logger.AsyncLogger
	Ledger    *ledger.Service
	Status    *status.Service
	Provision *provision.Service
}

// NewAppointmentController creates a new appointment controller
func NewAppointmentController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *AppointmentController {
	return &AppointmentController{
		DB:        db,
		Logger:    asyncLogger,
		Ledger:    ledger.New(db),
		Status:    status.New(db),
		Provision: provision.New(db),
	}
}

// Store creates a new booked appointment and its created event.
func (a *AppointmentController) Store(c *fiber.Ctx) error {
	var req appointmentTypes.AppointmentCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}

	if req.CustomerID == 0 || req.ScheduledAt.IsZero() || req.Branch == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "customer_id, scheduled_at and branch are required",
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

	var appt appointmentModel.Appointment

	err = a.DB.Transaction(func(tx *gorm.DB) error {
		appt = appointmentModel.Appointment{
			Uuid:        uuid.NewString(),
			CustomerID:  req.CustomerID,
			TreatmentID: req.TreatmentID,
			ScheduledAt: req.ScheduledAt,
			Branch:      req.Branch,
			Status:      appointmentModel.StatusBooked,
			CreatedBy:   actor.Name,
		}
		if appt.CreatedBy == "" {
			appt.CreatedBy = actor.ID
		}
		if err := tx.Create(&appt).Error; err != nil {
			logger.Error("Failed to create appointment", err)
			return err
		}

		meta := appointmentModel.EventMeta{
			After: &appointmentModel.EventFields{
				Status:            appointmentModel.StatusBooked.String(),
				Branch:            req.Branch,
				ScheduledAt:       req.ScheduledAt.Format(time.RFC3339),
				TreatmentItemText: req.TreatmentItemText,
				StaffName:         actor.Name,
				StaffID:           actor.ID,
			},
		}
		_, err := appointment_event.Append(tx, appt.ID, appointmentModel.EventCreated,
			appointmentModel.ActorStaff, req.Note, meta, nil)
		return err
	})
	if err != nil {
		return types.RespondError(c, err, "Failed to save appointment")
	}

	logEntry := utils.CreateSanitizedLogEntry(c)
	a.Logger.Log(logEntry)

	logger.Success(fmt.Sprintf("Appointment created successfully with ID: %d", appt.ID))
	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Appointment created successfully",
		Data:    appt,
	})
}

// BackdateStore records a visit that already happened. When the treatment
// text carries the legacy course notation and no package is named, a
// customer package is auto-provisioned in the same transaction; with
// complete=true the visit is redeemed against the package immediately.
func (a *AppointmentController) BackdateStore(c *fiber.Ctx) error {
	var req appointmentTypes.BackdateCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}

	if req.CustomerID == 0 || req.ScheduledAt.IsZero() || req.Branch == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "customer_id, scheduled_at and branch are required",
			Data:    nil,
		})
	}
	if !req.ScheduledAt.Before(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "backdated appointments must be in the past",
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

	var appt appointmentModel.Appointment
	var provisioned *packagesModel.CustomerPackage

	err = a.DB.Transaction(func(tx *gorm.DB) error {
		appt = appointmentModel.Appointment{
			Uuid:        uuid.NewString(),
			CustomerID:  req.CustomerID,
			TreatmentID: req.TreatmentID,
			ScheduledAt: req.ScheduledAt,
			Branch:      req.Branch,
			Status:      appointmentModel.StatusBooked,
			CreatedBy:   actor.Name,
		}
		if appt.CreatedBy == "" {
			appt.CreatedBy = actor.ID
		}
		if err := tx.Create(&appt).Error; err != nil {
			return err
		}

		packageID := req.CustomerPackageID
		if packageID == nil {
			cp, ok, err := a.Provision.AutoProvisionFromText(tx, req.CustomerID,
				req.TreatmentItemText, packagesModel.PackageSourceLegacyText, req.ScheduledAt, actor)
			if err != nil {
				return err
			}
			if ok {
				provisioned = cp
				packageID = &cp.ID
			}
		}

		eventAt := req.ScheduledAt
		meta := appointmentModel.EventMeta{
			After: &appointmentModel.EventFields{
				Status:            appointmentModel.StatusBooked.String(),
				Branch:            req.Branch,
				ScheduledAt:       req.ScheduledAt.Format(time.RFC3339),
				TreatmentItemText: req.TreatmentItemText,
				StaffName:         actor.Name,
				StaffID:           actor.ID,
			},
		}
		if packageID != nil {
			meta.After.PackageID = strconv.FormatUint(uint64(*packageID), 10)
			meta.After.TreatmentPlanMode = string(appointmentModel.PlanModePackage)
		}
		if _, err := appointment_event.Append(tx, appt.ID, appointmentModel.EventBackdateCreate,
			appointmentModel.ActorStaff, req.Note, meta, &eventAt); err != nil {
			return err
		}

		if !req.Complete {
			return nil
		}

		if packageID != nil {
			result, err := a.Ledger.CreateUsageByAdmin(tx, appt.ID, *packageID, req.UsedMask, actor)
			if err != nil {
				return err
			}
			appt.Status = appointmentModel.AppointmentStatus(result.Status)

			redeemMeta := appointmentModel.EventMeta{
				After: &appointmentModel.EventFields{
					Status:    result.Status,
					StaffName: actor.Name,
					StaffID:   actor.ID,
				},
				Kind:              "package",
				CustomerPackageID: result.Usage.CustomerPackageID,
				SessionNo:         result.Usage.SessionNo,
				UsedMask:          result.Usage.UsedMask,
			}
			_, err = appointment_event.Append(tx, appt.ID, appointmentModel.EventRedeemed,
				appointmentModel.ActorStaff, req.Note, redeemMeta, &eventAt)
			return err
		}

		// One-off backdated completion.
		if req.UsedMask {
			return types.Validation("mask deduction requires a package")
		}
		if err := tx.Model(&appt).Update("status", appointmentModel.StatusCompleted).Error; err != nil {
			return err
		}
		appt.Status = appointmentModel.StatusCompleted
		oneOffMeta := appointmentModel.EventMeta{
			After: &appointmentModel.EventFields{
				Status:            appointmentModel.StatusCompleted.String(),
				TreatmentPlanMode: string(appointmentModel.PlanModeOneOff),
				StaffName:         actor.Name,
				StaffID:           actor.ID,
			},
			Kind: "one_off",
		}
		_, err := appointment_event.Append(tx, appt.ID, appointmentModel.EventRedeemed,
			appointmentModel.ActorStaff, req.Note, oneOffMeta, &eventAt)
		return err
	})
	if err != nil {
		return types.RespondError(c, err, "Failed to save backdated appointment")
	}

	logEntry := utils.CreateSanitizedLogEntry(c)
	a.Logger.Log(logEntry)

	logger.Success(fmt.Sprintf("Backdated appointment created with ID: %d", appt.ID))
	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Backdated appointment created successfully",
		Data: fiber.Map{
			"appointment":         appt,
			"provisioned_package": provisioned,
		},
	})
}

// Show returns one appointment together with its event-resolved fields.
func (a *AppointmentController) Show(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid appointment id",
			Data:    nil,
		})
	}

	var appt appointmentModel.Appointment
	if err := a.DB.Preload("Customer").Preload("Treatment").First(&appt, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
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

	events, err := appointment_event.History(a.DB, appt.ID)
	if err != nil {
		logger.Error("Failed to load appointment events", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to load event history",
			Data:    nil,
		})
	}

	snap := resolver.Resolve(events)
	staffName, staffID := resolver.ResolveStaff(events)

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Appointment retrieved successfully",
		Data: fiber.Map{
			"appointment": appt,
			"resolved": fiber.Map{
				"package_id":          snap.PackageID,
				"treatment_plan_mode": snap.TreatmentPlanMode,
				"treatment_item_text": snap.TreatmentItemText,
				"staff_name":          staffName,
				"staff_id":            staffID,
			},
		},
	})
}

// Queue lists one day's appointments with resolved fields for the front
// desk. Events for the whole batch are loaded in one query and grouped.
func (a *AppointmentController) Queue(c *fiber.Ctx) error {
	day := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
				Status:  fiber.StatusBadRequest,
				Message: "Invalid date, expected YYYY-MM-DD",
				Data:    nil,
			})
		}
		day = parsed
	}

	from := now.With(day).BeginningOfDay()
	to := now.With(day).EndOfDay()

	var appts []appointmentModel.Appointment
	if err := a.DB.Preload("Customer").
		Where("scheduled_at BETWEEN ? AND ?", from, to).
		Order("scheduled_at ASC").
		Find(&appts).Error; err != nil {
		logger.Error("Failed to load queue", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to load queue",
			Data:    nil,
		})
	}

	ids := make([]uint, len(appts))
	for i, appt := range appts {
		ids[i] = appt.ID
	}

	grouped := make(map[uint][]appointmentModel.AppointmentEvent)
	if len(ids) > 0 {
		var events []appointmentModel.AppointmentEvent
		if err := a.DB.Where("appointment_id IN ?", ids).Find(&events).Error; err != nil {
			logger.Error("Failed to load queue events", err)
			return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
				Status:  fiber.StatusInternalServerError,
				Message: "Failed to load event history",
				Data:    nil,
			})
		}
		for _, ev := range events {
			grouped[ev.AppointmentID] = append(grouped[ev.AppointmentID], ev)
		}
	}

	views := make([]appointmentTypes.ResolvedView, 0, len(appts))
	for _, appt := range appts {
		snap := resolver.Resolve(grouped[appt.ID])
		staffName, _ := resolver.ResolveStaff(grouped[appt.ID])
		views = append(views, appointmentTypes.ResolvedView{
			ID:                appt.ID,
			Uuid:              appt.Uuid,
			CustomerID:        appt.CustomerID,
			CustomerName:      appt.Customer.Name,
			ScheduledAt:       appt.ScheduledAt,
			Branch:            appt.Branch,
			Status:            appt.Status.String(),
			PackageID:         snap.PackageID,
			TreatmentPlanMode: snap.TreatmentPlanMode,
			TreatmentItemText: snap.TreatmentItemText,
			StaffName:         staffName,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Queue retrieved successfully",
		Data:    views,
	})
}
