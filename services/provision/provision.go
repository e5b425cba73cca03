package provision

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	packagesModel "clinic-booking/models/packages"
	"clinic-booking/services/audit"
	"clinic-booking/types"
)

// legacyCoursePattern matches the course notation carried over from the old
// spreadsheet, e.g. "hydra facial course 10" or "whitening course 10/2"
// (sessions, optionally /masks).
var legacyCoursePattern = regexp.MustCompile(`(?i)\bcourse\s*(\d{1,2})(?:\s*/\s*(\d{1,2}))?\b`)

// ParseLegacyCourse recognizes the legacy course notation in free treatment
// text and extracts the session and mask totals.
func ParseLegacyCourse(text string) (sessions, masks int, ok bool) {
	m := legacyCoursePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	sessions, err := strconv.Atoi(m[1])
	if err != nil || sessions == 0 {
		return 0, 0, false
	}
	if m[2] != "" {
		masks, _ = strconv.Atoi(m[2])
	}
	return sessions, masks, true
}

// Service creates CustomerPackage rows: explicit purchases from the catalog
// and auto-provisioned packages recognized from legacy treatment text.
type Service struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Purchase instantiates a catalog package for a customer, copying the
// allowance totals so later catalog edits never change a sold package.
func (s *Service) Purchase(customerID, packageID uint, actor audit.StaffIdentity) (*packagesModel.CustomerPackage, error) {
	var catalog packagesModel.Package
	if err := s.DB.First(&catalog, packageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound(types.CodePackageNotFound, "package not found")
		}
		return nil, err
	}
	if !catalog.Active {
		return nil, types.Conflict(types.CodePackageNotActive, "package is no longer sold")
	}

	cp := packagesModel.CustomerPackage{
		Uuid:          uuid.NewString(),
		CustomerID:    customerID,
		PackageID:     &catalog.ID,
		SessionsTotal: catalog.SessionsTotal,
		MaskTotal:     catalog.MaskTotal,
		Price:         catalog.Price,
		Status:        packagesModel.PackageStatusActive,
		Source:        packagesModel.PackageSourcePurchase,
		PurchasedAt:   time.Now(),
		CreatedBy:     actor.Name,
	}
	if cp.CreatedBy == "" {
		cp.CreatedBy = actor.ID
	}

	if err := s.DB.Create(&cp).Error; err != nil {
		return nil, err
	}
	return &cp, nil
}

// AutoProvisionFromText creates a legacy-text package inside the caller's
// transaction when the treatment text matches the course notation. Returns
// nil with ok=false when the text is not recognized — not an error, most
// treatment text is a one-off service.
func (s *Service) AutoProvisionFromText(tx *gorm.DB, customerID uint, text string,
	source packagesModel.PackageSource, purchasedAt time.Time,
	actor audit.StaffIdentity) (*packagesModel.CustomerPackage, bool, error) {

	sessions, masks, ok := ParseLegacyCourse(text)
	if !ok {
		return nil, false, nil
	}

	cp := packagesModel.CustomerPackage{
		Uuid:          uuid.NewString(),
		CustomerID:    customerID,
		SessionsTotal: sessions,
		MaskTotal:     masks,
		Status:        packagesModel.PackageStatusActive,
		Source:        source,
		PurchasedAt:   purchasedAt,
		CreatedBy:     actor.Name,
	}
	if cp.CreatedBy == "" {
		cp.CreatedBy = actor.ID
	}

	if err := tx.Create(&cp).Error; err != nil {
		return nil, false, err
	}
	return &cp, true, nil
}
