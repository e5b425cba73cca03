package database

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"clinic-booking/logger"
	"clinic-booking/models/appointment"
	"clinic-booking/models/customer"
	"clinic-booking/models/log"
	"clinic-booking/models/packages"
	"clinic-booking/models/staff"
	"clinic-booking/models/treatment"
)

var DB *gorm.DB

// InitDB initializes the database connection with auto migration and indexing
func InitDB() (*gorm.DB, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", err)
	}

	// Get database configuration from environment variables
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	database := os.Getenv("DB_DATABASE")
	user := os.Getenv("DB_USERNAME")
	password := os.Getenv("DB_PASSWORD")
	sslmode := os.Getenv("DB_SSLMODE") // Optional: "disable", "require", etc.

	// Set default sslmode if not provided
	if sslmode == "" {
		sslmode = "disable"
	}

	// Build PostgreSQL DSN string
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, database, sslmode)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return nil, err
	}
	logger.Success("Successfully connected to the database")

	if err := autoMigrate(); err != nil {
		logger.Error("Failed to run migrations", err)
		return nil, err
	}
	logger.Success("All migrations completed successfully")

	// Handle foreign key constraints after migrations
	if err := createForeignKeyConstraints(); err != nil {
		logger.Error("Failed to create foreign key constraints", err)
		return nil, err
	}
	logger.Success("All foreign key constraints created successfully")

	// Create indexes for better performance
	if err := createIndexes(); err != nil {
		logger.Error("Failed to create indexes", err)
		return nil, err
	}
	logger.Success("All indexes created successfully")

	return DB, nil
}

// autoMigrate runs auto migration for all models in dependency stages
func autoMigrate() error {
	// Stage 1: Core foundation models
	stage1Models := []interface{}{
		&staff.Staff{},
		&customer.Customer{},
		&treatment.Treatment{},
		&packages.Package{},
	}

	for _, model := range stage1Models {
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	// Stage 2: Models with dependencies on Stage 1
	stage2Models := []interface{}{
		&appointment.Appointment{},
		&packages.CustomerPackage{},
	}

	for _, model := range stage2Models {
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	// Stage 3: Models depending on appointments and customer packages
	stage3Models := []interface{}{
		&appointment.AppointmentEvent{},
		&packages.PackageUsage{},
	}

	for _, model := range stage3Models {
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	// Remaining models
	remainingModels := []interface{}{
		// Logging
		&log.Log{},
	}

	for _, model := range remainingModels {
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	return nil
}

// createIndexes creates additional indexes for better performance
func createIndexes() error {
	// Customer indexes
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_customers_uuid ON customers(uuid)").Error; err != nil {
		return fmt.Errorf("failed to create customer uuid index: %w", err)
	}
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_customers_phone ON customers(phone)").Error; err != nil {
		return fmt.Errorf("failed to create customer phone index: %w", err)
	}

	// Appointment indexes
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status)").Error; err != nil {
		return fmt.Errorf("failed to create appointment status index: %w", err)
	}
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_appointments_scheduled_at ON appointments(scheduled_at)").Error; err != nil {
		return fmt.Errorf("failed to create appointment scheduled_at index: %w", err)
	}
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_appointments_customer_id ON appointments(customer_id)").Error; err != nil {
		return fmt.Errorf("failed to create appointment customer_id index: %w", err)
	}

	// Appointment event indexes: the resolver always reads a full
	// per-appointment history ordered newest-first.
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_appointment_events_appt_event_at ON appointment_events(appointment_id, event_at DESC, id DESC)").Error; err != nil {
		return fmt.Errorf("failed to create appointment event history index: %w", err)
	}
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_appointment_events_event_type ON appointment_events(event_type)").Error; err != nil {
		return fmt.Errorf("failed to create appointment event type index: %w", err)
	}

	// Package usage indexes
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_package_usages_customer_package_id ON package_usages(customer_package_id)").Error; err != nil {
		return fmt.Errorf("failed to create package usage customer_package_id index: %w", err)
	}

	// Log indexes
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_logs_status_code ON logs(status_code)").Error; err != nil {
		return fmt.Errorf("failed to create log status_code index: %w", err)
	}
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_logs_created_at ON logs(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create log created_at index: %w", err)
	}

	return nil
}

// createForeignKeyConstraints creates foreign key constraints after auto migration
func createForeignKeyConstraints() error {
	// Define constraints with their names for checking existence
	constraints := []struct {
		name string
		sql  string
	}{
		{
			name: "fk_appointments_customer",
			sql: `ALTER TABLE appointments ADD CONSTRAINT fk_appointments_customer
				  FOREIGN KEY (customer_id) REFERENCES customers(id)
				  ON UPDATE CASCADE ON DELETE RESTRICT`,
		},
		{
			name: "fk_appointment_events_appointment",
			sql: `ALTER TABLE appointment_events ADD CONSTRAINT fk_appointment_events_appointment
				  FOREIGN KEY (appointment_id) REFERENCES appointments(id)
				  ON UPDATE CASCADE ON DELETE RESTRICT`,
		},
		{
			name: "fk_customer_packages_customer",
			sql: `ALTER TABLE customer_packages ADD CONSTRAINT fk_customer_packages_customer
				  FOREIGN KEY (customer_id) REFERENCES customers(id)
				  ON UPDATE CASCADE ON DELETE RESTRICT`,
		},
		{
			name: "fk_package_usages_customer_package",
			sql: `ALTER TABLE package_usages ADD CONSTRAINT fk_package_usages_customer_package
				  FOREIGN KEY (customer_package_id) REFERENCES customer_packages(id)
				  ON UPDATE CASCADE ON DELETE RESTRICT`,
		},
		{
			name: "fk_package_usages_appointment",
			sql: `ALTER TABLE package_usages ADD CONSTRAINT fk_package_usages_appointment
				  FOREIGN KEY (appointment_id) REFERENCES appointments(id)
				  ON UPDATE CASCADE ON DELETE RESTRICT`,
		},
	}

	for _, constraint := range constraints {
		// Check if constraint already exists
		var exists bool
		checkSQL := `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.table_constraints
				WHERE constraint_name = $1
			)
		`

		err := DB.Raw(checkSQL, constraint.name).Scan(&exists).Error
		if err != nil {
			logger.Warning(fmt.Sprintf("Failed to check constraint existence: %s - Error: %v", constraint.name, err))
			continue
		}

		if !exists {
			if err := DB.Exec(constraint.sql).Error; err != nil {
				logger.Warning(fmt.Sprintf("Failed to create constraint: %s - Error: %v", constraint.name, err))
			} else {
				logger.Success(fmt.Sprintf("Successfully created constraint: %s", constraint.name))
			}
		} else {
			logger.Debug(fmt.Sprintf("Constraint already exists: %s", constraint.name))
		}
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
