package appointment

import (
	"time"

	"clinic-booking/models/customer"
	"clinic-booking/models/treatment"
)

// Appointment represents one scheduled or historical visit. Appointments are
// never deleted, only status-transitioned; every mutation is mirrored into
// the append-only AppointmentEvent log.
type Appointment struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Uuid string `gorm:"type:varchar(255);not null;unique" json:"uuid"`

	CustomerID uint              `gorm:"not null;index" json:"customer_id"`
	Customer   customer.Customer `gorm:"foreignKey:CustomerID" json:"customer"`

	TreatmentID *uint                `gorm:"index" json:"treatment_id,omitempty"`
	Treatment   *treatment.Treatment `gorm:"foreignKey:TreatmentID" json:"treatment,omitempty"`

	ScheduledAt time.Time `gorm:"not null;index" json:"scheduled_at"`
	Branch      string    `gorm:"type:varchar(100);not null" json:"branch"`

	Status AppointmentStatus `gorm:"type:varchar(20);not null;default:booked" json:"status"`

	// Set when the row was carried over from the legacy spreadsheet import.
	ImportRef *string `gorm:"type:varchar(255)" json:"import_ref,omitempty"`

	CreatedBy string     `gorm:"type:varchar(255);not null" json:"created_by"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedBy string     `gorm:"type:varchar(255)" json:"updated_by,omitempty"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}
