package treatment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Treatment is one catalog entry for a single-visit service.
type Treatment struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null;unique" json:"name"`
	DurationMin int             `gorm:"type:int;not null;default:60" json:"duration_min"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Active      bool            `gorm:"type:bool;default:true" json:"active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
