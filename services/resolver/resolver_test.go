package resolver_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appointmentModel "clinic-booking/models/appointment"
	"clinic-booking/services/resolver"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func event(t *testing.T, id uint, at *time.Time, meta string) appointmentModel.AppointmentEvent {
	t.Helper()
	var raw json.RawMessage
	if meta != "" {
		raw = json.RawMessage(meta)
	}
	return appointmentModel.AppointmentEvent{
		ID:            id,
		AppointmentID: 1,
		EventType:     appointmentModel.EventAdminUpdate,
		ActorClass:    appointmentModel.ActorStaff,
		EventAt:       at,
		Meta:          raw,
	}
}

func ts(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return &parsed
}

// =============================================================================
// FIELD FREEZE TESTS
// =============================================================================

func TestResolve_PartialEditDoesNotEraseOlderFields(t *testing.T) {
	// GIVEN: a creation event linking a package, then a later edit that
	// only touches the free-text item
	// THEN: the package linkage survives the partial edit

	events := []appointmentModel.AppointmentEvent{
		event(t, 1, ts(t, "2026-01-10T10:00:00Z"), `{"after":{"package_id":"P1","treatment_plan_mode":"package"}}`),
		event(t, 2, ts(t, "2026-01-11T10:00:00Z"), `{"after":{"treatment_item_text":"laser touch-up"}}`),
	}

	snap := resolver.Resolve(events)
	assert.Equal(t, "P1", snap.PackageID)
	assert.Equal(t, "package", snap.TreatmentPlanMode)
	assert.Equal(t, "laser touch-up", snap.TreatmentItemText)
}

func TestResolve_NewestValueWinsPerField(t *testing.T) {
	events := []appointmentModel.AppointmentEvent{
		event(t, 1, ts(t, "2026-01-10T10:00:00Z"), `{"after":{"package_id":"P1"}}`),
		event(t, 2, ts(t, "2026-01-12T10:00:00Z"), `{"after":{"package_id":"P2"}}`),
	}

	snap := resolver.Resolve(events)
	assert.Equal(t, "P2", snap.PackageID)
}

func TestResolve_UnlinkFreezesPackageToEmpty(t *testing.T) {
	// An explicit unlink must not let the older linkage resurface.
	events := []appointmentModel.AppointmentEvent{
		event(t, 1, ts(t, "2026-01-10T10:00:00Z"), `{"after":{"package_id":"P1","treatment_plan_mode":"package"}}`),
		event(t, 2, ts(t, "2026-01-11T10:00:00Z"), `{"after":{"unlink_package":true,"treatment_plan_mode":"one_off"}}`),
	}

	snap := resolver.Resolve(events)
	assert.Empty(t, snap.PackageID)
	assert.Equal(t, "one_off", snap.TreatmentPlanMode)
}

func TestResolve_LegacyUnlinkSpelling(t *testing.T) {
	events := []appointmentModel.AppointmentEvent{
		event(t, 1, ts(t, "2026-01-10T10:00:00Z"), `{"package_id":"P1"}`),
		event(t, 2, ts(t, "2026-01-11T10:00:00Z"), `{"package_unlinked":true}`),
	}

	snap := resolver.Resolve(events)
	assert.Empty(t, snap.PackageID)
}

func TestResolve_LegacyFlatMetaStillResolves(t *testing.T) {
	events := []appointmentModel.AppointmentEvent{
		event(t, 1, ts(t, "2026-01-10T10:00:00Z"), `{"package_id":"P9","treatment_item_text":"facial"}`),
	}

	snap := resolver.Resolve(events)
	assert.Equal(t, "P9", snap.PackageID)
	assert.Equal(t, "facial", snap.TreatmentItemText)
}

// =============================================================================
// PLAN MODE TESTS
// =============================================================================

func TestResolve_UnrecognizedPlanModeDoesNotFreeze(t *testing.T) {
	// A garbage mode on the newest event must not shadow a valid older one.
	events := []appointmentModel.AppointmentEvent{
		event(t, 1, ts(t, "2026-01-10T10:00:00Z"), `{"after":{"treatment_plan_mode":"one_off"}}`),
		event(t, 2, ts(t, "2026-01-11T10:00:00Z"), `{"after":{"treatment_plan_mode":"bogus"}}`),
	}

	snap := resolver.Resolve(events)
	assert.Equal(t, "one_off", snap.TreatmentPlanMode)
}

func TestResolve_PackageLinkageImpliesPackageMode(t *testing.T) {
	events := []appointmentModel.AppointmentEvent{
		event(t, 1, ts(t, "2026-01-10T10:00:00Z"), `{"after":{"package_id":"P1"}}`),
	}

	snap := resolver.Resolve(events)
	assert.Equal(t, "package", snap.TreatmentPlanMode)
}

// =============================================================================
// ORDERING AND ROBUSTNESS TESTS
// =============================================================================

func TestResolve_DeterministicAcrossInputOrder(t *testing.T) {
	a := event(t, 1, ts(t, "2026-01-10T10:00:00Z"), `{"after":{"package_id":"P1"}}`)
	b := event(t, 2, ts(t, "2026-01-11T10:00:00Z"), `{"after":{"treatment_item_text":"x"}}`)
	c := event(t, 3, ts(t, "2026-01-12T10:00:00Z"), `{"after":{"package_id":"P3"}}`)

	first := resolver.Resolve([]appointmentModel.AppointmentEvent{a, b, c})
	second := resolver.Resolve([]appointmentModel.AppointmentEvent{c, a, b})
	assert.Equal(t, first, second)
	assert.Equal(t, "P3", first.PackageID)
}

func TestResolve_TimestampCollisionBreaksTiesByID(t *testing.T) {
	at := ts(t, "2026-01-10T10:00:00Z")
	events := []appointmentModel.AppointmentEvent{
		event(t, 5, at, `{"after":{"package_id":"P5"}}`),
		event(t, 9, at, `{"after":{"package_id":"P9"}}`),
	}

	snap := resolver.Resolve(events)
	assert.Equal(t, "P9", snap.PackageID)
}

func TestResolve_NilEventAtSortsLast(t *testing.T) {
	// Backfilled rows without a business timestamp must never outrank
	// rows that have one.
	events := []appointmentModel.AppointmentEvent{
		event(t, 99, nil, `{"after":{"package_id":"P-backfill"}}`),
		event(t, 1, ts(t, "2026-01-10T10:00:00Z"), `{"after":{"package_id":"P1"}}`),
	}

	snap := resolver.Resolve(events)
	assert.Equal(t, "P1", snap.PackageID)
}

func TestResolve_MalformedMetaIsSkippedNotFatal(t *testing.T) {
	events := []appointmentModel.AppointmentEvent{
		event(t, 1, ts(t, "2026-01-10T10:00:00Z"), `{"after":{"package_id":"P1"}}`),
		event(t, 2, ts(t, "2026-01-11T10:00:00Z"), `{broken`),
	}

	snap := resolver.Resolve(events)
	assert.Equal(t, "P1", snap.PackageID)
}

func TestResolve_EmptyHistory(t *testing.T) {
	snap := resolver.Resolve(nil)
	assert.Equal(t, resolver.Snapshot{}, snap)
}

// =============================================================================
// STAFF IDENTITY TESTS
// =============================================================================

func TestResolveStaff_NewestIdentityWins(t *testing.T) {
	events := []appointmentModel.AppointmentEvent{
		event(t, 1, ts(t, "2026-01-10T10:00:00Z"), `{"after":{"staff_name":"Anika","staff_id":"S1"}}`),
		event(t, 2, ts(t, "2026-01-11T10:00:00Z"), `{"after":{"staff_name":"Rumi","staff_id":"S2"}}`),
	}

	name, id := resolver.ResolveStaff(events)
	assert.Equal(t, "Rumi", name)
	assert.Equal(t, "S2", id)
}

func TestResolveStaff_FallsBackToOlderEvents(t *testing.T) {
	events := []appointmentModel.AppointmentEvent{
		event(t, 1, ts(t, "2026-01-10T10:00:00Z"), `{"staff_name":"Anika"}`),
		event(t, 2, ts(t, "2026-01-11T10:00:00Z"), `{"after":{"treatment_item_text":"edit only"}}`),
	}

	name, id := resolver.ResolveStaff(events)
	assert.Equal(t, "Anika", name)
	assert.Empty(t, id)
}
