//go:build integration

package ledger_test

import (
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	appointmentModel "clinic-booking/models/appointment"
	customerModel "clinic-booking/models/customer"
	packagesModel "clinic-booking/models/packages"
	treatmentModel "clinic-booking/models/treatment"
	"clinic-booking/services/audit"
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

func createCustomer(t *testing.T) *customerModel.Customer {
	t.Helper()
	c := customerModel.Customer{
		Uuid:  uuid.NewString(),
		Name:  "Test Customer",
		Phone: "+8801700000001",
	}
	require.NoError(t, testDB.Create(&c).Error)
	return &c
}

func createAppointment(t *testing.T, customerID uint, status appointmentModel.AppointmentStatus) *appointmentModel.Appointment {
	t.Helper()
	a := appointmentModel.Appointment{
		Uuid:        uuid.NewString(),
		CustomerID:  customerID,
		ScheduledAt: time.Now().Add(time.Hour),
		Branch:      "Gulshan",
		Status:      status,
		CreatedBy:   "Test Staff",
	}
	require.NoError(t, testDB.Create(&a).Error)
	return &a
}

func createCustomerPackage(t *testing.T, customerID uint, sessions, masks int) *packagesModel.CustomerPackage {
	t.Helper()
	cp := packagesModel.CustomerPackage{
		Uuid:          uuid.NewString(),
		CustomerID:    customerID,
		SessionsTotal: sessions,
		MaskTotal:     masks,
		Status:        packagesModel.PackageStatusActive,
		Source:        packagesModel.PackageSourcePurchase,
		PurchasedAt:   time.Now(),
		CreatedBy:     "Test Staff",
	}
	require.NoError(t, testDB.Create(&cp).Error)
	return &cp
}

func countUsages(t *testing.T, appointmentID uint) int {
	t.Helper()
	var n int64
	require.NoError(t, testDB.Model(&packagesModel.PackageUsage{}).
		Where("appointment_id = ?", appointmentID).Count(&n).Error)
	return int(n)
}

func countEvents(t *testing.T, appointmentID uint, eventType appointmentModel.EventType) int {
	t.Helper()
	var n int64
	require.NoError(t, testDB.Model(&appointmentModel.AppointmentEvent{}).
		Where("appointment_id = ? AND event_type = ?", appointmentID, eventType).Count(&n).Error)
	return int(n)
}

func reloadAppointment(t *testing.T, id uint) *appointmentModel.Appointment {
	t.Helper()
	var a appointmentModel.Appointment
	require.NoError(t, testDB.First(&a, id).Error)
	return &a
}

func reloadPackage(t *testing.T, id uint) *packagesModel.CustomerPackage {
	t.Helper()
	var cp packagesModel.CustomerPackage
	require.NoError(t, testDB.First(&cp, id).Error)
	return &cp
}
