package resolver

import (
	"sort"

	appointmentModel "clinic-booking/models/appointment"
)

// Snapshot holds the current logical value of every watched event-sourced
// field, each either a non-empty string or empty.
type Snapshot struct {
	PackageID         string `json:"package_id"`
	TreatmentPlanMode string `json:"treatment_plan_mode"`
	TreatmentItemText string `json:"treatment_item_text"`
}

// Resolve replays an appointment's full event history into the current value
// of each watched field. The input order does not matter: events are sorted
// newest-first by (event_at desc, nulls last, id desc) so two reads of the
// same log always produce the same snapshot, even when timestamps collide.
//
// Each field freezes independently at the first (newest) non-empty value.
// Reading the newest row alone would break on partial edits: an admin
// correction that only touches the scheduled time writes an event with no
// package fields, and that omission must not read as "no package". An
// explicit unlink marker freezes the package id to empty so an older event
// can never resurrect a linkage the user removed.
func Resolve(events []appointmentModel.AppointmentEvent) Snapshot {
	ordered := make([]appointmentModel.AppointmentEvent, len(events))
	copy(ordered, events)
	sortNewestFirst(ordered)

	var snap Snapshot
	var pkgFrozen, modeFrozen, itemFrozen bool

	for _, ev := range ordered {
		meta := ev.DecodedMeta()

		if !pkgFrozen {
			if meta.UnlinkRequested() {
				snap.PackageID = ""
				pkgFrozen = true
			} else if id := meta.ResolvedPackageID(); id != "" {
				snap.PackageID = id
				pkgFrozen = true
			}
		}

		if !modeFrozen {
			// Unrecognized raw values normalize to empty and do not freeze;
			// an older, well-formed event may still supply the mode.
			if mode := appointmentModel.NormalizePlanMode(meta.ResolvedTreatmentPlanMode()); mode != appointmentModel.PlanModeEmpty {
				snap.TreatmentPlanMode = string(mode)
				modeFrozen = true
			}
		}

		if !itemFrozen {
			if text := meta.ResolvedTreatmentItemText(); text != "" {
				snap.TreatmentItemText = text
				itemFrozen = true
			}
		}

		if pkgFrozen && modeFrozen && itemFrozen {
			break
		}
	}

	// A package linkage without a recorded plan mode implies package mode.
	if snap.TreatmentPlanMode == "" && snap.PackageID != "" {
		snap.TreatmentPlanMode = string(appointmentModel.PlanModePackage)
	}

	return snap
}

// ResolveStaff replays the same ordering for the acting staff identity,
// used by queue and history listings. Name and id freeze together at the
// newest event that carries either.
func ResolveStaff(events []appointmentModel.AppointmentEvent) (name, id string) {
	ordered := make([]appointmentModel.AppointmentEvent, len(events))
	copy(ordered, events)
	sortNewestFirst(ordered)

	for _, ev := range ordered {
		meta := ev.DecodedMeta()
		if n, i := meta.ResolvedStaffName(), meta.ResolvedStaffID(); n != "" || i != "" {
			return n, i
		}
	}
	return "", ""
}

// sortNewestFirst orders by event_at descending with nulls last, falling
// back to id descending so colliding timestamps still get a total order.
func sortNewestFirst(events []appointmentModel.AppointmentEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		switch {
		case a.EventAt != nil && b.EventAt != nil:
			if !a.EventAt.Equal(*b.EventAt) {
				return a.EventAt.After(*b.EventAt)
			}
			return a.ID > b.ID
		case a.EventAt != nil:
			return true
		case b.EventAt != nil:
			return false
		default:
			return a.ID > b.ID
		}
	})
}
