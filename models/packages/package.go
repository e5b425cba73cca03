package packages

import (
	"time"

	"github.com/shopspring/decimal"

	"clinic-booking/models/customer"
)

// Package is one catalog entry for a multi-session bundle: N sessions and
// optionally M mask units sold at a fixed price.
type Package struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string          `gorm:"type:varchar(255);not null;unique" json:"name"`
	SessionsTotal int             `gorm:"type:int;not null" json:"sessions_total"`
	MaskTotal     int             `gorm:"type:int;not null;default:0" json:"mask_total"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Active        bool            `gorm:"type:bool;default:true" json:"active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CustomerPackage is one customer's purchased instance of a Package. The
// allowance totals are copied at purchase time so later catalog edits never
// change an already-sold package.
type CustomerPackage struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Uuid string `gorm:"type:varchar(255);not null;unique" json:"uuid"`

	CustomerID uint              `gorm:"not null;index" json:"customer_id"`
	Customer   customer.Customer `gorm:"foreignKey:CustomerID" json:"customer"`

	// Nullable: legacy-text provisioned packages have no catalog row.
	PackageID *uint    `gorm:"index" json:"package_id,omitempty"`
	Package   *Package `gorm:"foreignKey:PackageID" json:"package,omitempty"`

	SessionsTotal int             `gorm:"type:int;not null" json:"sessions_total"`
	MaskTotal     int             `gorm:"type:int;not null;default:0" json:"mask_total"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`

	Status      PackageStatus `gorm:"type:varchar(20);not null;default:active" json:"status"`
	Source      PackageSource `gorm:"type:varchar(20);not null;default:purchase" json:"source"`
	PurchasedAt time.Time     `gorm:"not null" json:"purchased_at"`

	CreatedBy string    `gorm:"type:varchar(255);not null" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PackageUsage records the consumption of exactly one session (and optionally
// one mask unit) from one CustomerPackage by one appointment. Rows are only
// ever inserted by completion and deleted by revert, never updated. The unique
// index on appointment_id is the constraint backstop for the one-usage-per-
// appointment invariant; the primary mechanism is the locked pre-check in the
// ledger service.
type PackageUsage struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	CustomerPackageID uint            `gorm:"not null;index" json:"customer_package_id"`
	CustomerPackage   CustomerPackage `gorm:"foreignKey:CustomerPackageID" json:"customer_package"`

	AppointmentID uint `gorm:"not null;uniqueIndex" json:"appointment_id"`

	SessionNo int  `gorm:"type:int;not null" json:"session_no"`
	UsedMask  bool `gorm:"type:bool;not null;default:false" json:"used_mask"`

	CreatedBy string    `gorm:"type:varchar(255);not null" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
