package appointment_event

import (
	"time"

	"gorm.io/gorm"

	appointmentModel "clinic-booking/models/appointment"
	"clinic-booking/services/audit"
)

// Append writes one event row for an appointment inside the caller's
// transaction. Every mutating code path goes through here: the staff
// identity guard runs first and a guard failure aborts the whole
// transaction, so an unattributed event can never commit.
func Append(tx *gorm.DB, appointmentID uint, eventType appointmentModel.EventType,
	actor appointmentModel.ActorClass, note string, meta appointmentModel.EventMeta,
	eventAt *time.Time) (*appointmentModel.AppointmentEvent, error) {

	identity, err := audit.ResolveStaffIdentity(meta)
	if err != nil {
		return nil, err
	}

	raw, err := meta.Encode()
	if err != nil {
		return nil, err
	}

	if eventAt == nil {
		now := time.Now()
		eventAt = &now
	}

	ev := appointmentModel.AppointmentEvent{
		AppointmentID: appointmentID,
		EventType:     eventType,
		ActorClass:    actor,
		EventAt:       eventAt,
		Note:          note,
		Meta:          raw,
		CreatedBy:     identity.Name,
	}
	if ev.CreatedBy == "" {
		ev.CreatedBy = identity.ID
	}

	if err := tx.Create(&ev).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}

// History loads the full event log for one appointment. The resolver does
// its own deterministic ordering, so the query order is only a convenience.
func History(db *gorm.DB, appointmentID uint) ([]appointmentModel.AppointmentEvent, error) {
	var events []appointmentModel.AppointmentEvent
	err := db.Where("appointment_id = ?", appointmentID).
		Order("event_at DESC NULLS LAST, id DESC").
		Find(&events).Error
	return events, err
}
