package seeders

import (
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"clinic-booking/models/packages"
	"clinic-booking/models/treatment"
)

// SeedTreatments seeds the one-off treatment catalog. Rows are matched
// by name, so re-running only inserts what is missing.
func SeedTreatments(db *gorm.DB) {
	log.Printf("🔍 Checking treatment catalog data integrity...")

	treatments := []treatment.Treatment{
		{Name: "Facial Treatment", DurationMin: 60, Price: decimal.NewFromInt(1800), Active: true},
		{Name: "Laser Session", DurationMin: 30, Price: decimal.NewFromInt(2500), Active: true},
		{Name: "Mask Treatment", DurationMin: 30, Price: decimal.NewFromInt(900), Active: true},
		{Name: "Consultation", DurationMin: 20, Price: decimal.NewFromInt(500), Active: true},
	}

	var existingNames []string
	if err := db.Model(&treatment.Treatment{}).Pluck("name", &existingNames).Error; err != nil {
		log.Printf("❌ Failed to load existing treatments: %v", err)
		return
	}

	existing := make(map[string]bool, len(existingNames))
	for _, name := range existingNames {
		existing[name] = true
	}

	var missing []treatment.Treatment
	for _, t := range treatments {
		if !existing[t.Name] {
			missing = append(missing, t)
		}
	}

	log.Printf("📊 Treatment catalog check: expected %d, existing %d, missing %d",
		len(treatments), len(existingNames), len(missing))

	if len(missing) == 0 {
		log.Printf("✅ All treatments are already present. No seeding needed.")
		return
	}

	for _, t := range missing {
		if err := db.Create(&t).Error; err != nil {
			log.Printf("❌ Failed to seed treatment %s: %v", t.Name, err)
		} else {
			log.Printf("✅ Added treatment: %s", t.Name)
		}
	}
}

// SeedPackages seeds the multi-session package catalog, matched by name.
func SeedPackages(db *gorm.DB) {
	log.Printf("🔍 Checking package catalog data integrity...")

	catalog := []packages.Package{
		{Name: "Course 5", SessionsTotal: 5, MaskTotal: 0, Price: decimal.NewFromInt(8000), Active: true},
		{Name: "Course 10", SessionsTotal: 10, MaskTotal: 0, Price: decimal.NewFromInt(15000), Active: true},
		{Name: "Course 10 + 3 Masks", SessionsTotal: 10, MaskTotal: 3, Price: decimal.NewFromInt(17000), Active: true},
	}

	var existingNames []string
	if err := db.Model(&packages.Package{}).Pluck("name", &existingNames).Error; err != nil {
		log.Printf("❌ Failed to load existing packages: %v", err)
		return
	}

	existing := make(map[string]bool, len(existingNames))
	for _, name := range existingNames {
		existing[name] = true
	}

	var missing []packages.Package
	for _, p := range catalog {
		if !existing[p.Name] {
			missing = append(missing, p)
		}
	}

	log.Printf("📊 Package catalog check: expected %d, existing %d, missing %d",
		len(catalog), len(existingNames), len(missing))

	if len(missing) == 0 {
		log.Printf("✅ All packages are already present. No seeding needed.")
		return
	}

	for _, p := range missing {
		if err := db.Create(&p).Error; err != nil {
			log.Printf("❌ Failed to seed package %s: %v", p.Name, err)
		} else {
			log.Printf("✅ Added package: %s", p.Name)
		}
	}
}
