package ledger

import (
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appointmentModel "clinic-booking/models/appointment"
	packagesModel "clinic-booking/models/packages"
	"clinic-booking/services/appointment_event"
	"clinic-booking/services/audit"
	"clinic-booking/services/continuity"
	"clinic-booking/types"
	pkgTypes "clinic-booking/types/packages"
)

// Service implements the transactional package usage ledger. Every operation
// runs as one database transaction with FOR UPDATE locks on the appointment,
// its usage rows and the target customer package, so concurrent completions
// and reverts against the same rows serialize while unrelated appointments
// proceed independently.
type Service struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// CompleteWithPackage consumes one session (and optionally one mask unit)
// from an active customer package, completes the appointment and appends the
// redeemed audit event carrying the before/after allowance counts.
func (s *Service) CompleteWithPackage(appointmentID, customerPackageID uint, usedMask bool,
	actor audit.StaffIdentity, note string) (*pkgTypes.LedgerResult, error) {

	var result *pkgTypes.LedgerResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		appt, err := lockAppointment(tx, appointmentID)
		if err != nil {
			return err
		}
		if !appt.Status.IsMutable() {
			return types.Conflict(types.CodeApptNotMutable,
				fmt.Sprintf("appointment %d is %s and cannot be completed", appt.ID, appt.Status))
		}

		usage, cp, before, after, err := insertUsage(tx, appt, customerPackageID, usedMask, actor)
		if err != nil {
			return err
		}

		prev := appt.Status
		if err := setAppointmentStatus(tx, appt, appointmentModel.StatusCompleted, actor); err != nil {
			return err
		}

		meta := redemptionMeta(prev, appt.Status, actor)
		meta.Kind = "package"
		meta.CustomerPackageID = cp.ID
		meta.SessionNo = usage.SessionNo
		meta.UsedMask = usage.UsedMask
		meta.After.PackageID = strconv.FormatUint(uint64(cp.ID), 10)
		meta.After.TreatmentPlanMode = string(appointmentModel.PlanModePackage)
		meta.PackageBefore = before
		meta.PackageAfter = after

		if _, err := appointment_event.Append(tx, appt.ID, appointmentModel.EventRedeemed,
			appointmentModel.ActorStaff, note, meta, nil); err != nil {
			return err
		}

		result = &pkgTypes.LedgerResult{
			AppointmentID: appt.ID,
			Status:        appt.Status.String(),
			Usage: &pkgTypes.UsageSnapshot{
				CustomerPackageID: cp.ID,
				SessionNo:         usage.SessionNo,
				UsedMask:          usage.UsedMask,
			},
			Package: packageSnapshot(cp, after),
		}
		return nil
	})

	return result, err
}

// CompleteWithoutPackage completes a one-off service: no deduction, no usage
// row, audit event carries kind=one_off.
func (s *Service) CompleteWithoutPackage(appointmentID uint, actor audit.StaffIdentity,
	note string) (*pkgTypes.LedgerResult, error) {

	var result *pkgTypes.LedgerResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		appt, err := lockAppointment(tx, appointmentID)
		if err != nil {
			return err
		}
		if !appt.Status.IsMutable() {
			return types.Conflict(types.CodeApptNotMutable,
				fmt.Sprintf("appointment %d is %s and cannot be completed", appt.ID, appt.Status))
		}

		prev := appt.Status
		if err := setAppointmentStatus(tx, appt, appointmentModel.StatusCompleted, actor); err != nil {
			return err
		}

		meta := redemptionMeta(prev, appt.Status, actor)
		meta.Kind = "one_off"
		meta.After.TreatmentPlanMode = string(appointmentModel.PlanModeOneOff)

		if _, err := appointment_event.Append(tx, appt.ID, appointmentModel.EventRedeemed,
			appointmentModel.ActorStaff, note, meta, nil); err != nil {
			return err
		}

		result = &pkgTypes.LedgerResult{
			AppointmentID: appt.ID,
			Status:        appt.Status.String(),
		}
		return nil
	})

	return result, err
}

// CompleteIdempotent short-circuits a retried completion: the appointment is
// already completed, so it rebuilds the same response shape from the most
// recent usage row (if any) without performing a single write. This makes
// the completion endpoint safe to retry after a client-side timeout.
func (s *Service) CompleteIdempotent(appointmentID uint) (*pkgTypes.LedgerResult, error) {
	var appt appointmentModel.Appointment
	if err := s.DB.First(&appt, appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound(types.CodeApptNotFound, "appointment not found")
		}
		return nil, err
	}
	if appt.Status != appointmentModel.StatusCompleted {
		return nil, types.Conflict(types.CodeApptNotCompleted,
			fmt.Sprintf("appointment %d is %s, not completed", appt.ID, appt.Status))
	}

	result := &pkgTypes.LedgerResult{
		AppointmentID: appt.ID,
		Status:        appt.Status.String(),
	}

	var usage packagesModel.PackageUsage
	err := s.DB.Where("appointment_id = ?", appt.ID).Order("id DESC").First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return result, nil // one-off completion, nothing else to report
	}
	if err != nil {
		return nil, err
	}

	var cp packagesModel.CustomerPackage
	if err := s.DB.First(&cp, usage.CustomerPackageID).Error; err != nil {
		return nil, err
	}
	used, maskUsed, err := usageCounts(s.DB, cp.ID)
	if err != nil {
		return nil, err
	}
	rem := continuity.ComputeRemaining(cp.SessionsTotal, used, cp.MaskTotal, maskUsed)

	result.Usage = &pkgTypes.UsageSnapshot{
		CustomerPackageID: usage.CustomerPackageID,
		SessionNo:         usage.SessionNo,
		UsedMask:          usage.UsedMask,
	}
	result.Package = packageSnapshot(&cp, metaCounts(&cp, rem))
	return result, nil
}

// Revert resets a completed, cancelled or no-show appointment back to
// booked. For completed appointments every usage row is deleted (deletion is
// defensive against historic duplicates even though at most one should
// exist) and every touched package is recounted and re-derived. For the
// other statuses it is a pure status reset with no ledger mutation.
func (s *Service) Revert(appointmentID uint, actor audit.StaffIdentity, note string) (*pkgTypes.LedgerResult, error) {
	var result *pkgTypes.LedgerResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		appt, err := lockAppointment(tx, appointmentID)
		if err != nil {
			return err
		}
		if !appt.Status.IsRevertible() {
			return types.Conflict(types.CodeApptNotRevertible,
				fmt.Sprintf("appointment %d is %s and cannot be reverted", appt.ID, appt.Status))
		}

		prev := appt.Status
		meta := appointmentModel.EventMeta{
			Before: &appointmentModel.EventFields{Status: prev.String()},
			After: &appointmentModel.EventFields{
				Status:    appointmentModel.StatusBooked.String(),
				StaffName: actor.Name,
				StaffID:   actor.ID,
			},
		}

		var restored *pkgTypes.PackageSnapshot

		if prev == appointmentModel.StatusCompleted {
			usages, err := lockUsages(tx, appt.ID)
			if err != nil {
				return err
			}

			touched := make([]uint, 0, 1)
			seen := make(map[uint]bool)
			for _, u := range usages {
				meta.RevertedUsageIDs = append(meta.RevertedUsageIDs, u.ID)
				if !seen[u.CustomerPackageID] {
					seen[u.CustomerPackageID] = true
					touched = append(touched, u.CustomerPackageID)
				}
			}

			if len(usages) > 0 {
				if err := tx.Where("appointment_id = ?", appt.ID).
					Delete(&packagesModel.PackageUsage{}).Error; err != nil {
					return err
				}
			}

			for _, cpID := range touched {
				cp, err := lockPackage(tx, cpID)
				if err != nil {
					return err
				}
				used, maskUsed, err := usageCounts(tx, cp.ID)
				if err != nil {
					return err
				}
				rem := continuity.ComputeRemaining(cp.SessionsTotal, used, cp.MaskTotal, maskUsed)
				if err := applyDerivedStatus(tx, cp, rem.SessionsRemaining); err != nil {
					return err
				}
				counts := metaCounts(cp, rem)
				meta.Packages = append(meta.Packages, *counts)
				if len(touched) == 1 {
					meta.PackageAfter = counts
					restored = packageSnapshot(cp, counts)
				}
			}
		}

		if err := setAppointmentStatus(tx, appt, appointmentModel.StatusBooked, actor); err != nil {
			return err
		}

		if _, err := appointment_event.Append(tx, appt.ID, appointmentModel.EventReverted,
			appointmentModel.ActorStaff, note, meta, nil); err != nil {
			return err
		}

		result = &pkgTypes.LedgerResult{
			AppointmentID: appt.ID,
			Status:        appt.Status.String(),
			Package:       restored,
		}
		return nil
	})

	return result, err
}

// CreateUsageByAdmin records a deduction from the admin-edit transaction.
// The one-usage-per-appointment, ownership, active and remaining checks are
// the same as the completion path; the appointment is moved to completed if
// it was still in a mutable status so a booked appointment can never hold a
// usage row. The caller appends its own admin_update audit event.
func (s *Service) CreateUsageByAdmin(tx *gorm.DB, appointmentID, customerPackageID uint,
	usedMask bool, actor audit.StaffIdentity) (*pkgTypes.LedgerResult, error) {

	appt, err := lockAppointment(tx, appointmentID)
	if err != nil {
		return nil, err
	}

	usage, cp, _, after, err := insertUsage(tx, appt, customerPackageID, usedMask, actor)
	if err != nil {
		return nil, err
	}

	if appt.Status.IsMutable() {
		if err := setAppointmentStatus(tx, appt, appointmentModel.StatusCompleted, actor); err != nil {
			return nil, err
		}
	}

	return &pkgTypes.LedgerResult{
		AppointmentID: appt.ID,
		Status:        appt.Status.String(),
		Usage: &pkgTypes.UsageSnapshot{
			CustomerPackageID: cp.ID,
			SessionNo:         usage.SessionNo,
			UsedMask:          usage.UsedMask,
		},
		Package: packageSnapshot(cp, after),
	}, nil
}

// insertUsage enforces the allowance invariants and appends one ledger row.
// Caller must already hold the appointment lock.
func insertUsage(tx *gorm.DB, appt *appointmentModel.Appointment, customerPackageID uint,
	usedMask bool, actor audit.StaffIdentity) (*packagesModel.PackageUsage,
	*packagesModel.CustomerPackage, *appointmentModel.PackageCounts,
	*appointmentModel.PackageCounts, error) {

	existing, err := lockUsages(tx, appt.ID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if len(existing) > 0 {
		return nil, nil, nil, nil, types.Conflict(types.CodeUsageExists,
			fmt.Sprintf("appointment %d already has a recorded usage", appt.ID))
	}

	cp, err := lockPackage(tx, customerPackageID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if cp.CustomerID != appt.CustomerID {
		return nil, nil, nil, nil, types.Unprocessable(types.CodePackageWrongCustomer,
			"package belongs to a different customer")
	}
	if cp.Status != packagesModel.PackageStatusActive {
		return nil, nil, nil, nil, types.Conflict(types.CodePackageNotActive,
			fmt.Sprintf("customer package %d is %s", cp.ID, cp.Status))
	}

	used, maskUsed, err := usageCounts(tx, cp.ID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	before := continuity.ComputeRemaining(cp.SessionsTotal, used, cp.MaskTotal, maskUsed)
	if before.SessionsRemaining <= 0 {
		return nil, nil, nil, nil, types.Conflict(types.CodeNoRemainingSessions,
			fmt.Sprintf("customer package %d has no remaining sessions", cp.ID))
	}
	if usedMask && before.MaskRemaining <= 0 {
		return nil, nil, nil, nil, types.Conflict(types.CodeNoRemainingMasks,
			fmt.Sprintf("customer package %d has no remaining masks", cp.ID))
	}

	// Strictly increasing per package; the package row lock serializes
	// concurrent completions so two cannot win the same number.
	var maxNo int
	if err := tx.Model(&packagesModel.PackageUsage{}).
		Where("customer_package_id = ?", cp.ID).
		Select("COALESCE(MAX(session_no), 0)").
		Scan(&maxNo).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	usage := packagesModel.PackageUsage{
		CustomerPackageID: cp.ID,
		AppointmentID:     appt.ID,
		SessionNo:         maxNo + 1,
		UsedMask:          usedMask,
		CreatedBy:         actor.Name,
	}
	if usage.CreatedBy == "" {
		usage.CreatedBy = actor.ID
	}
	if err := tx.Create(&usage).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	maskDelta := 0
	if usedMask {
		maskDelta = 1
	}
	after := continuity.ComputeRemaining(cp.SessionsTotal, used+1, cp.MaskTotal, maskUsed+maskDelta)
	if err := applyDerivedStatus(tx, cp, after.SessionsRemaining); err != nil {
		return nil, nil, nil, nil, err
	}

	return &usage, cp, metaCounts(cp, before), metaCounts(cp, after), nil
}

func lockAppointment(tx *gorm.DB, id uint) (*appointmentModel.Appointment, error) {
	var appt appointmentModel.Appointment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&appt, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound(types.CodeApptNotFound, "appointment not found")
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func lockUsages(tx *gorm.DB, appointmentID uint) ([]packagesModel.PackageUsage, error) {
	var usages []packagesModel.PackageUsage
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("appointment_id = ?", appointmentID).
		Find(&usages).Error
	return usages, err
}

func lockPackage(tx *gorm.DB, id uint) (*packagesModel.CustomerPackage, error) {
	var cp packagesModel.CustomerPackage
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cp, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound(types.CodePackageNotFound, "customer package not found")
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// usageCounts recomputes the consumed counts from ledger rows. The remaining
// allowance is never stored as a mutable column, so there is no cached
// counter to drift.
func usageCounts(tx *gorm.DB, customerPackageID uint) (used, maskUsed int, err error) {
	var total, masks int64
	if err = tx.Model(&packagesModel.PackageUsage{}).
		Where("customer_package_id = ?", customerPackageID).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = tx.Model(&packagesModel.PackageUsage{}).
		Where("customer_package_id = ? AND used_mask = ?", customerPackageID, true).
		Count(&masks).Error; err != nil {
		return 0, 0, err
	}
	return int(total), int(masks), nil
}

func applyDerivedStatus(tx *gorm.DB, cp *packagesModel.CustomerPackage, sessionsRemaining int) error {
	derived := continuity.DeriveContinuousStatus(cp.Status, sessionsRemaining)
	if derived == cp.Status {
		return nil
	}
	if err := tx.Model(cp).Update("status", derived).Error; err != nil {
		return err
	}
	cp.Status = derived
	return nil
}

func setAppointmentStatus(tx *gorm.DB, appt *appointmentModel.Appointment,
	status appointmentModel.AppointmentStatus, actor audit.StaffIdentity) error {

	updatedBy := actor.Name
	if updatedBy == "" {
		updatedBy = actor.ID
	}
	if err := tx.Model(appt).Updates(map[string]interface{}{
		"status":     status,
		"updated_by": updatedBy,
	}).Error; err != nil {
		return err
	}
	appt.Status = status
	appt.UpdatedBy = updatedBy
	return nil
}

func redemptionMeta(before, after appointmentModel.AppointmentStatus, actor audit.StaffIdentity) appointmentModel.EventMeta {
	return appointmentModel.EventMeta{
		Before: &appointmentModel.EventFields{Status: before.String()},
		After: &appointmentModel.EventFields{
			Status:    after.String(),
			StaffName: actor.Name,
			StaffID:   actor.ID,
		},
	}
}

func packageSnapshot(cp *packagesModel.CustomerPackage, counts *appointmentModel.PackageCounts) *pkgTypes.PackageSnapshot {
	return &pkgTypes.PackageSnapshot{
		CustomerPackageID: cp.ID,
		Status:            cp.Status.String(),
		SessionsTotal:     counts.SessionsTotal,
		SessionsUsed:      counts.SessionsUsed,
		SessionsRemaining: counts.SessionsRemaining,
		MaskTotal:         counts.MaskTotal,
		MaskUsed:          counts.MaskUsed,
		MaskRemaining:     counts.MaskRemaining,
	}
}

func metaCounts(cp *packagesModel.CustomerPackage, rem continuity.Remaining) *appointmentModel.PackageCounts {
	return &appointmentModel.PackageCounts{
		CustomerPackageID: cp.ID,
		Status:            cp.Status.String(),
		SessionsTotal:     rem.SessionsTotal,
		SessionsUsed:      rem.SessionsUsed,
		SessionsRemaining: rem.SessionsRemaining,
		MaskTotal:         rem.MaskTotal,
		MaskUsed:          rem.MaskUsed,
		MaskRemaining:     rem.MaskRemaining,
	}
}
