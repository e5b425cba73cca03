package appointment

// AppointmentStatus is the mutable lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusBooked      AppointmentStatus = "booked"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusNoShow      AppointmentStatus = "no_show"
)

// Helper methods for AppointmentStatus
func (as AppointmentStatus) String() string {
	return string(as)
}

func (as AppointmentStatus) IsValid() bool {
	switch as {
	case StatusBooked, StatusRescheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	default:
		return false
	}
}

// IsMutable returns true if the appointment can still be completed or edited
// through the happy-path endpoints.
func (as AppointmentStatus) IsMutable() bool {
	return as == StatusBooked || as == StatusRescheduled
}

// IsRevertible returns true if the appointment can be reset back to booked.
func (as AppointmentStatus) IsRevertible() bool {
	return as == StatusCompleted || as == StatusCancelled || as == StatusNoShow
}

// AdminStatuses returns the set of statuses the admin patch endpoint accepts.
func AdminStatuses() []AppointmentStatus {
	return []AppointmentStatus{
		StatusBooked,
		StatusRescheduled,
		StatusCompleted,
		StatusCancelled,
		StatusNoShow,
	}
}

// EventType classifies an appointment event row.
type EventType string

const (
	EventCreated        EventType = "created"
	EventAdminUpdate    EventType = "admin_update"
	EventRedeemed       EventType = "redeemed"
	EventReverted       EventType = "reverted"
	EventCancelled      EventType = "cancelled"
	EventNoShow         EventType = "no_show"
	EventBackdateCreate EventType = "backdate_create"
	EventStatusPatch    EventType = "status_patch"
)

func (et EventType) String() string {
	return string(et)
}

// ActorClass records which kind of actor produced an event.
type ActorClass string

const (
	ActorCustomer ActorClass = "customer"
	ActorStaff    ActorClass = "staff"
	ActorSystem   ActorClass = "system"
)

func (ac ActorClass) String() string {
	return string(ac)
}

// TreatmentPlanMode is the closed enum a raw plan-mode value normalizes to.
// Anything unrecognized resolves to PlanModeEmpty.
type TreatmentPlanMode string

const (
	PlanModeOneOff  TreatmentPlanMode = "one_off"
	PlanModePackage TreatmentPlanMode = "package"
	PlanModeEmpty   TreatmentPlanMode = ""
)

// NormalizePlanMode maps a raw recorded plan-mode value onto the closed enum.
func NormalizePlanMode(raw string) TreatmentPlanMode {
	switch raw {
	case string(PlanModeOneOff):
		return PlanModeOneOff
	case string(PlanModePackage):
		return PlanModePackage
	default:
		return PlanModeEmpty
	}
}
