package seeders

import (
	"log"
	"os"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"clinic-booking/constants"
	"clinic-booking/models/staff"
)

// SeedAdminStaff creates the initial admin account when no staff with
// the admin username exists. The password comes from ADMIN_PASSWORD.
func SeedAdminStaff(db *gorm.DB) {
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}

	var count int64
	if err := db.Model(&staff.Staff{}).Where("username = ?", username).Count(&count).Error; err != nil {
		log.Printf("❌ Failed to check admin staff: %v", err)
		return
	}
	if count > 0 {
		log.Printf("✅ Admin staff already present. No seeding needed.")
		return
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		log.Printf("⚠️ ADMIN_PASSWORD not set, skipping admin staff seeding")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("❌ Failed to hash admin password: %v", err)
		return
	}

	admin := staff.Staff{
		Uuid:         uuid.NewString(),
		Username:     username,
		Name:         "Administrator",
		PasswordHash: string(hash),
		Permissions:  staff.StringSlice{constants.PermAdminFull},
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Printf("❌ Failed to seed admin staff: %v", err)
		return
	}
	log.Printf("✅ Added admin staff: %s", username)
}
