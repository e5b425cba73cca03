//go:build integration

package status_test

import (
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	appointmentModel "clinic-booking/models/appointment"
	customerModel "clinic-booking/models/customer"
	packagesModel "clinic-booking/models/packages"
	treatmentModel "clinic-booking/models/treatment"
	"clinic-booking/services/audit"
	"clinic-booking/services/ledger"
	"clinic-booking/services/status"
	"clinic-booking/types"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("TEST_DB_HOST", "localhost"),
		getEnv("TEST_DB_PORT", "5432"),
		getEnv("TEST_DB_USER", "postgres"),
		getEnv("TEST_DB_PASSWORD", "postgres"),
		getEnv("TEST_DB_NAME", "clinic_booking_test"),
	)

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to test database: %v", err)
	}

	if err := testDB.AutoMigrate(
		&customerModel.Customer{},
		&treatmentModel.Treatment{},
		&appointmentModel.Appointment{},
		&packagesModel.CustomerPackage{},
		&appointmentModel.AppointmentEvent{},
		&packagesModel.PackageUsage{},
	); err != nil {
		log.Fatalf("failed to auto-migrate test database: %v", err)
	}

	code := m.Run()
	os.Exit(code)
}

func cleanTables() {
	testDB.Exec("DELETE FROM package_usages")
	testDB.Exec("DELETE FROM appointment_events")
	testDB.Exec("DELETE FROM appointments")
	testDB.Exec("DELETE FROM customer_packages")
	testDB.Exec("DELETE FROM customers")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testActor() audit.StaffIdentity {
	return audit.StaffIdentity{Name: "Test Staff", ID: "staff-1"}
}

func seedCompletedWithUsage(t *testing.T) (*appointmentModel.Appointment, *packagesModel.CustomerPackage) {
	t.Helper()

	c := customerModel.Customer{Uuid: uuid.NewString(), Name: "Test Customer", Phone: "+8801700000002"}
	require.NoError(t, testDB.Create(&c).Error)

	cp := packagesModel.CustomerPackage{
		Uuid:          uuid.NewString(),
		CustomerID:    c.ID,
		SessionsTotal: 1,
		Status:        packagesModel.PackageStatusActive,
		Source:        packagesModel.PackageSourcePurchase,
		PurchasedAt:   time.Now(),
		CreatedBy:     "Test Staff",
	}
	require.NoError(t, testDB.Create(&cp).Error)

	appt := appointmentModel.Appointment{
		Uuid:        uuid.NewString(),
		CustomerID:  c.ID,
		ScheduledAt: time.Now(),
		Branch:      "Gulshan",
		Status:      appointmentModel.StatusBooked,
		CreatedBy:   "Test Staff",
	}
	require.NoError(t, testDB.Create(&appt).Error)

	_, err := ledger.New(testDB).CompleteWithPackage(appt.ID, cp.ID, false, testActor(), "")
	require.NoError(t, err)

	return &appt, &cp
}

func seedBooked(t *testing.T) *appointmentModel.Appointment {
	t.Helper()

	c := customerModel.Customer{Uuid: uuid.NewString(), Name: "Test Customer", Phone: "+8801700000003"}
	require.NoError(t, testDB.Create(&c).Error)

	appt := appointmentModel.Appointment{
		Uuid:        uuid.NewString(),
		CustomerID:  c.ID,
		ScheduledAt: time.Now(),
		Branch:      "Gulshan",
		Status:      appointmentModel.StatusBooked,
		CreatedBy:   "Test Staff",
	}
	require.NoError(t, testDB.Create(&appt).Error)
	return &appt
}

// =============================================================================
// TRANSITION TESTS
// =============================================================================

func TestAdminTransition_BackToBookedDeletesUsage(t *testing.T) {
	cleanTables()
	svc := status.New(testDB)

	appt, cp := seedCompletedWithUsage(t)
	// The single session completed the package before the transition.
	var before packagesModel.CustomerPackage
	require.NoError(t, testDB.First(&before, cp.ID).Error)
	require.Equal(t, packagesModel.PackageStatusCompleted, before.Status)

	result, err := svc.AdminTransition(appt.ID, appointmentModel.StatusBooked, testActor(), "front desk error")
	require.NoError(t, err)

	assert.Equal(t, "completed", result.From)
	assert.Equal(t, "booked", result.To)
	assert.Equal(t, 1, result.DeletedUsageCount)
	assert.Empty(t, result.Warning)

	var usages int64
	require.NoError(t, testDB.Model(&packagesModel.PackageUsage{}).
		Where("appointment_id = ?", appt.ID).Count(&usages).Error)
	assert.Zero(t, usages)

	// The touched package re-derived back to active.
	var after packagesModel.CustomerPackage
	require.NoError(t, testDB.First(&after, cp.ID).Error)
	assert.Equal(t, packagesModel.PackageStatusActive, after.Status)

	var events int64
	require.NoError(t, testDB.Model(&appointmentModel.AppointmentEvent{}).
		Where("appointment_id = ? AND event_type = ?", appt.ID, appointmentModel.EventStatusPatch).
		Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestAdminTransition_WarnsWhenNoUsageBacksTheStatus(t *testing.T) {
	cleanTables()
	svc := status.New(testDB)

	appt := seedBooked(t)

	result, err := svc.AdminTransition(appt.ID, appointmentModel.StatusCompleted, testActor(), "walk-in closed late")
	require.NoError(t, err)

	assert.Equal(t, "completed", result.To)
	assert.Zero(t, result.DeletedUsageCount)
	assert.Contains(t, result.Warning, "no recorded usage")
}

func TestAdminTransition_SameStatusStillAudited(t *testing.T) {
	cleanTables()
	svc := status.New(testDB)

	appt := seedBooked(t)

	result, err := svc.AdminTransition(appt.ID, appointmentModel.StatusBooked, testActor(), "noop confirm")
	require.NoError(t, err)
	assert.Equal(t, "booked", result.From)
	assert.Equal(t, "booked", result.To)

	var events int64
	require.NoError(t, testDB.Model(&appointmentModel.AppointmentEvent{}).
		Where("appointment_id = ? AND event_type = ?", appt.ID, appointmentModel.EventStatusPatch).
		Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestAdminTransition_InvalidStatusRejected(t *testing.T) {
	cleanTables()
	svc := status.New(testDB)

	appt := seedBooked(t)

	_, err := svc.AdminTransition(appt.ID, appointmentModel.AppointmentStatus("archived"), testActor(), "")
	require.Error(t, err)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, types.CodeStatusNotAllowed, appErr.Code)
}

func TestAdminTransition_MissingStaffIdentityRollsBack(t *testing.T) {
	cleanTables()
	svc := status.New(testDB)

	appt, _ := seedCompletedWithUsage(t)

	_, err := svc.AdminTransition(appt.ID, appointmentModel.StatusBooked, audit.StaffIdentity{}, "")
	require.Error(t, err)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeStaffRequired, appErr.Code)

	// Rollback left the completion and its usage row untouched.
	var reloaded appointmentModel.Appointment
	require.NoError(t, testDB.First(&reloaded, appt.ID).Error)
	assert.Equal(t, appointmentModel.StatusCompleted, reloaded.Status)

	var usages int64
	require.NoError(t, testDB.Model(&packagesModel.PackageUsage{}).
		Where("appointment_id = ?", appt.ID).Count(&usages).Error)
	assert.EqualValues(t, 1, usages)
}

func TestAdminTransition_NotFound(t *testing.T) {
	cleanTables()
	svc := status.New(testDB)

	_, err := svc.AdminTransition(999999, appointmentModel.StatusCancelled, testActor(), "")
	require.Error(t, err)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeApptNotFound, appErr.Code)
}
