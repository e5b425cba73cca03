package customer

import (
	"time"
)

// Customer represents one client of the clinic.
type Customer struct {
	ID    uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Uuid  string  `gorm:"type:varchar(255);not null;unique" json:"uuid"`
	Name  string  `gorm:"type:varchar(255);not null" json:"name"`
	Phone string  `gorm:"type:varchar(20);not null;index" json:"phone"`
	Email *string `gorm:"type:varchar(255)" json:"email,omitempty"`
	Note  string  `gorm:"type:text" json:"note,omitempty"`

	CreatedBy string     `gorm:"type:varchar(255);not null" json:"created_by"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}
