package staff

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Staff represents a clinic employee who can authenticate and mutate bookings.
type Staff struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Uuid         string  `gorm:"type:varchar(255);not null;unique" json:"uuid"`
	Username     string  `gorm:"type:varchar(255);not null;unique" json:"username"`
	Name         string  `gorm:"type:varchar(255);not null" json:"name"`
	Phone        string  `gorm:"type:varchar(20);not null" json:"phone"`
	PasswordHash string  `gorm:"type:varchar(255);not null" json:"-"`
	Branch       string  `gorm:"type:varchar(100)" json:"branch,omitempty"`
	Email        *string `gorm:"type:varchar(255);unique" json:"email,omitempty"`

	Permissions StringSlice `gorm:"type:json" json:"permissions"` // JSON column to store slice of strings

	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// StringSlice is a custom type to handle JSON serialization for PostgreSQL
type StringSlice []string

// Scan implements the Scanner interface for database deserialization
func (ss *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*ss = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, ss)
}

// Value implements the driver Valuer interface for database serialization
func (ss StringSlice) Value() (driver.Value, error) {
	if ss == nil {
		return nil, nil
	}
	return json.Marshal(ss)
}
