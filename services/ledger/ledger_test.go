//go:build integration

package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	appointmentModel "clinic-booking/models/appointment"
	packagesModel "clinic-booking/models/packages"
	"clinic-booking/services/audit"
	"clinic-booking/services/ledger"
	"clinic-booking/types"
	pkgTypes "clinic-booking/types/packages"
)

// =============================================================================
// COMPLETION TESTS
// =============================================================================

func TestCompleteWithPackage_DeductsOneSession(t *testing.T) {
	cleanTables()
	svc := ledger.New(testDB)

	c := createCustomer(t)
	cp := createCustomerPackage(t, c.ID, 10, 3)
	appt := createAppointment(t, c.ID, appointmentModel.StatusBooked)

	result, err := svc.CompleteWithPackage(appt.ID, cp.ID, false, testActor(), "")
	require.NoError(t, err)

	assert.Equal(t, "completed", result.Status)
	require.NotNil(t, result.Usage)
	assert.Equal(t, 1, result.Usage.SessionNo)
	assert.False(t, result.Usage.UsedMask)
	require.NotNil(t, result.Package)
	assert.Equal(t, 9, result.Package.SessionsRemaining)
	assert.Equal(t, 3, result.Package.MaskRemaining)

	assert.Equal(t, "completed", reloadAppointment(t, appt.ID).Status.String())
	assert.Equal(t, 1, countUsages(t, appt.ID))
	assert.Equal(t, 1, countEvents(t, appt.ID, appointmentModel.EventRedeemed))
}

func TestCompleteWithPackage_SecondCallConflicts(t *testing.T) {
	cleanTables()
	svc := ledger.New(testDB)

	c := createCustomer(t)
	cp := createCustomerPackage(t, c.ID, 10, 0)
	appt := createAppointment(t, c.ID, appointmentModel.StatusBooked)

	_, err := svc.CompleteWithPackage(appt.ID, cp.ID, false, testActor(), "")
	require.NoError(t, err)

	_, err = svc.CompleteWithPackage(appt.ID, cp.ID, false, testActor(), "")
	require.Error(t, err)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeApptNotMutable, appErr.Code)
	assert.Equal(t, 1, countUsages(t, appt.ID))
}

func TestCompleteIdempotent_RebuildsSnapshotWithoutWrites(t *testing.T) {
	// A retried completion after a client timeout must return the same
	// shape without adding a row or an event.
	cleanTables()
	svc := ledger.New(testDB)

	c := createCustomer(t)
	cp := createCustomerPackage(t, c.ID, 10, 3)
	appt := createAppointment(t, c.ID, appointmentModel.StatusBooked)

	first, err := svc.CompleteWithPackage(appt.ID, cp.ID, true, testActor(), "")
	require.NoError(t, err)

	retry, err := svc.CompleteIdempotent(appt.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Status, retry.Status)
	assert.Equal(t, first.Usage.SessionNo, retry.Usage.SessionNo)
	assert.Equal(t, first.Usage.UsedMask, retry.Usage.UsedMask)
	assert.Equal(t, first.Package.SessionsRemaining, retry.Package.SessionsRemaining)
	assert.Equal(t, first.Package.MaskRemaining, retry.Package.MaskRemaining)

	assert.Equal(t, 1, countUsages(t, appt.ID))
	assert.Equal(t, 1, countEvents(t, appt.ID, appointmentModel.EventRedeemed))
}

func TestCompleteIdempotent_RequiresCompletedStatus(t *testing.T) {
	cleanTables()
	svc := ledger.New(testDB)

	c := createCustomer(t)
	appt := createAppointment(t, c.ID, appointmentModel.StatusBooked)

	_, err := svc.CompleteIdempotent(appt.ID)
	require.Error(t, err)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeApptNotCompleted, appErr.Code)
}

func TestCompleteWithoutPackage_NoLedgerRow(t *testing.T) {
	cleanTables()
	svc := ledger.New(testDB)

	c := createCustomer(t)
	appt := createAppointment(t, c.ID, appointmentModel.StatusBooked)

	result, err := svc.CompleteWithoutPackage(appt.ID, testActor(), "walk-in facial")
	require.NoError(t, err)

	assert.Equal(t, "completed", result.Status)
	assert.Nil(t, result.Usage)
	assert.Nil(t, result.Package)
	assert.Equal(t, 0, countUsages(t, appt.ID))
	assert.Equal(t, 1, countEvents(t, appt.ID, appointmentModel.EventRedeemed))
}

// =============================================================================
// ALLOWANCE INVARIANT TESTS
// =============================================================================

func TestCompleteWithPackage_ExhaustedSessionsRejected(t *testing.T) {
	cleanTables()
	svc := ledger.New(testDB)

	c := createCustomer(t)
	cp := createCustomerPackage(t, c.ID, 1, 0)
	first := createAppointment(t, c.ID, appointmentModel.StatusBooked)
	second := createAppointment(t, c.ID, appointmentModel.StatusBooked)

	_, err := svc.CompleteWithPackage(first.ID, cp.ID, false, testActor(), "")
	require.NoError(t, err)

	// The last session completed the package.
	assert.Equal(t, packagesModel.PackageStatusCompleted, reloadPackage(t, cp.ID).Status)

	_, err = svc.CompleteWithPackage(second.ID, cp.ID, false, testActor(), "")
	require.Error(t, err)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	// The status check fires before the remaining-count check.
	assert.Equal(t, types.CodePackageNotActive, appErr.Code)
	assert.Equal(t, "booked", reloadAppointment(t, second.ID).Status.String())
}

func TestCompleteWithPackage_MaskAllowance(t *testing.T) {
	// 3 sessions, 1 mask: the mask runs out independently of the sessions.
	cleanTables()
	svc := ledger.New(testDB)

	c := createCustomer(t)
	cp := createCustomerPackage(t, c.ID, 3, 1)
	first := createAppointment(t, c.ID, appointmentModel.StatusBooked)
	second := createAppointment(t, c.ID, appointmentModel.StatusBooked)

	r1, err := svc.CompleteWithPackage(first.ID, cp.ID, true, testActor(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, r1.Usage.SessionNo)
	assert.Equal(t, 0, r1.Package.MaskRemaining)

	_, err = svc.CompleteWithPackage(second.ID, cp.ID, true, testActor(), "")
	require.Error(t, err)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeNoRemainingMasks, appErr.Code)

	// Nothing was consumed by the failed attempt.
	r2, err := svc.CompleteWithPackage(second.ID, cp.ID, false, testActor(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, r2.Usage.SessionNo)
	assert.Equal(t, 1, r2.Package.SessionsRemaining)
}

func TestCompleteWithPackage_WrongCustomerRejected(t *testing.T) {
	cleanTables()
	svc := ledger.New(testDB)

	owner := createCustomer(t)
	other := createCustomer(t)
	cp := createCustomerPackage(t, owner.ID, 10, 0)
	appt := createAppointment(t, other.ID, appointmentModel.StatusBooked)

	_, err := svc.CompleteWithPackage(appt.ID, cp.ID, false, testActor(), "")
	require.Error(t, err)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodePackageWrongCustomer, appErr.Code)
	assert.Equal(t, 0, countUsages(t, appt.ID))
}

func TestCompleteWithPackage_MissingStaffIdentityRollsBack(t *testing.T) {
	// The audit guard fires inside the transaction: nothing may survive
	// a rejected event append.
	cleanTables()
	svc := ledger.New(testDB)

	c := createCustomer(t)
	cp := createCustomerPackage(t, c.ID, 10, 0)
	appt := createAppointment(t, c.ID, appointmentModel.StatusBooked)

	_, err := svc.CompleteWithPackage(appt.ID, cp.ID, false, audit.StaffIdentity{}, "")
	require.Error(t, err)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeStaffRequired, appErr.Code)

	assert.Equal(t, "booked", reloadAppointment(t, appt.ID).Status.String())
	assert.Equal(t, 0, countUsages(t, appt.ID))
	assert.Equal(t, 0, countEvents(t, appt.ID, appointmentModel.EventRedeemed))
}

// =============================================================================
// REVERT TESTS
// =============================================================================

func TestRevert_RestoresSessionAndReactivatesPackage(t *testing.T) {
	cleanTables()
	svc := ledger.New(testDB)

	c := createCustomer(t)
	cp := createCustomerPackage(t, c.ID, 1, 0)
	appt := createAppointment(t, c.ID, appointmentModel.StatusBooked)

	_, err := svc.CompleteWithPackage(appt.ID, cp.ID, false, testActor(), "")
	require.NoError(t, err)
	assert.Equal(t, packagesModel.PackageStatusCompleted, reloadPackage(t, cp.ID).Status)

	result, err := svc.Revert(appt.ID, testActor(), "booked by mistake")
	require.NoError(t, err)

	assert.Equal(t, "booked", result.Status)
	require.NotNil(t, result.Package)
	assert.Equal(t, 1, result.Package.SessionsRemaining)

	assert.Equal(t, 0, countUsages(t, appt.ID))
	assert.Equal(t, packagesModel.PackageStatusActive, reloadPackage(t, cp.ID).Status)
	assert.Equal(t, 1, countEvents(t, appt.ID, appointmentModel.EventReverted))
}

func TestRevert_ThenRecomplete_ExactlyOneUsageRow(t *testing.T) {
	cleanTables()
	svc := ledger.New(testDB)

	c := createCustomer(t)
	cp := createCustomerPackage(t, c.ID, 10, 0)
	appt := createAppointment(t, c.ID, appointmentModel.StatusBooked)

	_, err := svc.CompleteWithPackage(appt.ID, cp.ID, false, testActor(), "")
	require.NoError(t, err)
	_, err = svc.Revert(appt.ID, testActor(), "")
	require.NoError(t, err)

	result, err := svc.CompleteWithPackage(appt.ID, cp.ID, false, testActor(), "")
	require.NoError(t, err)

	assert.Equal(t, 1, countUsages(t, appt.ID))
	assert.Equal(t, 9, result.Package.SessionsRemaining)
	// Session numbering restarts once the old row is gone.
	assert.Equal(t, 1, result.Usage.SessionNo)
}

func TestRevert_CancelledAppointmentIsPureStatusReset(t *testing.T) {
	cleanTables()
	svc := ledger.New(testDB)

	c := createCustomer(t)
	appt := createAppointment(t, c.ID, appointmentModel.StatusCancelled)

	result, err := svc.Revert(appt.ID, testActor(), "")
	require.NoError(t, err)

	assert.Equal(t, "booked", result.Status)
	assert.Nil(t, result.Package)
	assert.Equal(t, 0, countUsages(t, appt.ID))
}

func TestRevert_BookedAppointmentRejected(t *testing.T) {
	cleanTables()
	svc := ledger.New(testDB)

	c := createCustomer(t)
	appt := createAppointment(t, c.ID, appointmentModel.StatusBooked)

	_, err := svc.Revert(appt.ID, testActor(), "")
	require.Error(t, err)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeApptNotRevertible, appErr.Code)
}

// =============================================================================
// ADMIN USAGE TESTS
// =============================================================================

func TestCreateUsageByAdmin_CompletesBookedAppointment(t *testing.T) {
	cleanTables()
	svc := ledger.New(testDB)

	c := createCustomer(t)
	cp := createCustomerPackage(t, c.ID, 5, 0)
	appt := createAppointment(t, c.ID, appointmentModel.StatusBooked)

	var result *pkgTypes.LedgerResult
	err := testDB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = svc.CreateUsageByAdmin(tx, appt.ID, cp.ID, false, testActor())
		return txErr
	})
	require.NoError(t, err)

	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, 1, result.Usage.SessionNo)
	assert.Equal(t, "completed", reloadAppointment(t, appt.ID).Status.String())
	assert.Equal(t, 1, countUsages(t, appt.ID))
}

func TestCreateUsageByAdmin_DuplicateUsageRejected(t *testing.T) {
	cleanTables()
	svc := ledger.New(testDB)

	c := createCustomer(t)
	cp := createCustomerPackage(t, c.ID, 5, 0)
	appt := createAppointment(t, c.ID, appointmentModel.StatusBooked)

	_, err := svc.CompleteWithPackage(appt.ID, cp.ID, false, testActor(), "")
	require.NoError(t, err)

	err = testDB.Transaction(func(tx *gorm.DB) error {
		_, txErr := svc.CreateUsageByAdmin(tx, appt.ID, cp.ID, false, testActor())
		return txErr
	})
	require.Error(t, err)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeUsageExists, appErr.Code)
	assert.Equal(t, 1, countUsages(t, appt.ID))
}
