package audit

import (
	appointmentModel "clinic-booking/models/appointment"
	"clinic-booking/types"
)

// StaffIdentity is the resolved "who did this" of a mutating event.
type StaffIdentity struct {
	Name string
	ID   string
}

// ResolveStaffIdentity is the fail-closed guard run before any mutating
// event insert. The meta must resolve a non-empty staff name or id once
// before/after merging is applied; otherwise the write is rejected and the
// caller's transaction rolls back. Every derived "who did this" view reads
// this field straight off the event log, so an event without it would be a
// silent, unrecoverable gap in the audit trail.
func ResolveStaffIdentity(meta appointmentModel.EventMeta) (StaffIdentity, error) {
	identity := StaffIdentity{
		Name: meta.ResolvedStaffName(),
		ID:   meta.ResolvedStaffID(),
	}
	if identity.Name == "" && identity.ID == "" {
		return StaffIdentity{}, types.Unprocessable(types.CodeStaffRequired,
			"mutating event requires a resolvable staff identity")
	}
	return identity, nil
}
