package constants

// Staff permissions
const (
	// Admin permissions
	PermAdminFull        = "clinic-booking.admin.full-permit"
	PermManagerFull      = "clinic-booking.manager.full-permit"
	PermReceptionFull    = "clinic-booking.reception.full-permit"
	PermPractitionerFull = "clinic-booking.practitioner.full-permit"

	// Special permissions
	PermAny = "any"
)

// Permission groups for convenience
var (
	// Permissions that may overwrite appointment status and edit the ledger.
	AdminPermissions = []string{
		PermAdminFull,
		PermManagerFull,
	}

	// Permissions that may run the day-to-day booking flow.
	FrontDeskPermissions = []string{
		PermAdminFull,
		PermManagerFull,
		PermReceptionFull,
		PermPractitionerFull,
	}
)
