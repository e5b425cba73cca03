package status

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appointmentModel "clinic-booking/models/appointment"
	packagesModel "clinic-booking/models/packages"
	"clinic-booking/services/appointment_event"
	"clinic-booking/services/audit"
	"clinic-booking/services/continuity"
	"clinic-booking/types"
)

// TransitionResult reports one admin status overwrite. Warning is set for
// transitions that look suspicious but are legitimate (a one-off completion
// has no usage row); it never blocks the transition.
type TransitionResult struct {
	AppointmentID     uint   `json:"appointment_id"`
	From              string `json:"from"`
	To                string `json:"to"`
	DeletedUsageCount int    `json:"deleted_usage_count"`
	Warning           string `json:"warning,omitempty"`
}

// Service implements the generic admin status overwrite with ledger
// reconciliation. It is distinct from the happy-path completion transition:
// the admin patch may force any allowed status, and the one transition that
// must imply ledger cleanup (back to booked) is post-checked hard.
type Service struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// AdminTransition overwrites an appointment's status inside one transaction.
// A transition to booked deletes every usage row and then re-counts: if any
// row survives, the whole transaction rolls back with the invariant error.
// That check is never silently corrected, because auto-correcting could hide
// a real bug in the deletion path.
func (s *Service) AdminTransition(appointmentID uint, requested appointmentModel.AppointmentStatus,
	actor audit.StaffIdentity, reason string) (*TransitionResult, error) {

	if !requested.IsValid() {
		return nil, types.NewAppError(400, types.CodeStatusNotAllowed,
			fmt.Sprintf("status %q is not an allowed admin status", requested))
	}

	var result *TransitionResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var appt appointmentModel.Appointment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&appt, appointmentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return types.NotFound(types.CodeApptNotFound, "appointment not found")
			}
			return err
		}

		var usages []packagesModel.PackageUsage
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("appointment_id = ?", appt.ID).
			Find(&usages).Error; err != nil {
			return err
		}

		prev := appt.Status
		deleted := 0
		touched := make([]uint, 0, 1)

		if requested == appointmentModel.StatusBooked && len(usages) > 0 {
			seen := make(map[uint]bool)
			for _, u := range usages {
				if !seen[u.CustomerPackageID] {
					seen[u.CustomerPackageID] = true
					touched = append(touched, u.CustomerPackageID)
				}
			}
			res := tx.Where("appointment_id = ?", appt.ID).Delete(&packagesModel.PackageUsage{})
			if res.Error != nil {
				return res.Error
			}
			deleted = int(res.RowsAffected)
		}

		if prev != requested {
			updatedBy := actor.Name
			if updatedBy == "" {
				updatedBy = actor.ID
			}
			if err := tx.Model(&appt).Updates(map[string]interface{}{
				"status":     requested,
				"updated_by": updatedBy,
			}).Error; err != nil {
				return err
			}
			appt.Status = requested
		}

		// Post-condition: booked implies zero usage rows. Hard fail, full
		// rollback, never auto-corrected.
		var post int64
		if err := tx.Model(&packagesModel.PackageUsage{}).
			Where("appointment_id = ?", appt.ID).
			Count(&post).Error; err != nil {
			return err
		}
		if requested == appointmentModel.StatusBooked && post != 0 {
			return types.Invariant(fmt.Sprintf(
				"appointment %d set to booked but %d usage rows remain", appt.ID, post))
		}

		warning := ""
		if requested != appointmentModel.StatusBooked && post == 0 {
			warning = fmt.Sprintf("%s with no recorded usage", requested)
		}

		// Packages that lost a usage row must re-derive their continuity
		// status before the transaction commits.
		meta := appointmentModel.EventMeta{
			Before: &appointmentModel.EventFields{Status: prev.String()},
			After: &appointmentModel.EventFields{
				Status:    requested.String(),
				StaffName: actor.Name,
				StaffID:   actor.ID,
			},
			Reason:            reason,
			DeletedUsageCount: deleted,
		}
		for _, cpID := range touched {
			var cp packagesModel.CustomerPackage
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&cp, cpID).Error; err != nil {
				return err
			}
			var total, masks int64
			if err := tx.Model(&packagesModel.PackageUsage{}).
				Where("customer_package_id = ?", cp.ID).
				Count(&total).Error; err != nil {
				return err
			}
			if err := tx.Model(&packagesModel.PackageUsage{}).
				Where("customer_package_id = ? AND used_mask = ?", cp.ID, true).
				Count(&masks).Error; err != nil {
				return err
			}
			rem := continuity.ComputeRemaining(cp.SessionsTotal, int(total), cp.MaskTotal, int(masks))
			derived := continuity.DeriveContinuousStatus(cp.Status, rem.SessionsRemaining)
			if derived != cp.Status {
				if err := tx.Model(&cp).Update("status", derived).Error; err != nil {
					return err
				}
				cp.Status = derived
			}
			meta.Packages = append(meta.Packages, appointmentModel.PackageCounts{
				CustomerPackageID: cp.ID,
				Status:            cp.Status.String(),
				SessionsTotal:     rem.SessionsTotal,
				SessionsUsed:      rem.SessionsUsed,
				SessionsRemaining: rem.SessionsRemaining,
				MaskTotal:         rem.MaskTotal,
				MaskUsed:          rem.MaskUsed,
				MaskRemaining:     rem.MaskRemaining,
			})
		}

		if _, err := appointment_event.Append(tx, appt.ID, appointmentModel.EventStatusPatch,
			appointmentModel.ActorStaff, reason, meta, nil); err != nil {
			return err
		}

		result = &TransitionResult{
			AppointmentID:     appt.ID,
			From:              prev.String(),
			To:                requested.String(),
			DeletedUsageCount: deleted,
			Warning:           warning,
		}
		return nil
	})

	return result, err
}
