package appointment

import (
	"encoding/json"
	"time"
)

// AppointmentEvent is one append-only log entry for an appointment. Events
// are never updated or deleted: they are the source of truth for any field
// whose current value cannot be read off a single relational column
// (treatment item free text, plan mode, package linkage).
type AppointmentEvent struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	// DO NOT make this unique here (events are many per appointment)
	AppointmentID uint        `gorm:"not null;index" json:"appointment_id"`
	Appointment   Appointment `gorm:"foreignKey:AppointmentID" json:"appointment"`

	EventType  EventType  `gorm:"type:varchar(50);not null;index" json:"event_type"`
	ActorClass ActorClass `gorm:"type:varchar(20);not null;default:staff" json:"actor_class"`

	// Business timestamp of the event; nullable for legacy rows that only
	// carry a created_at. Resolution orders by this, nulls last.
	EventAt *time.Time `gorm:"index" json:"event_at,omitempty"`

	Note string `gorm:"type:text" json:"note,omitempty"`

	// Meta holds the before/after field diff plus flat top-level fields kept
	// for compatibility with the older writer generation.
	Meta json.RawMessage `gorm:"type:jsonb" json:"meta,omitempty"`

	CreatedBy string    `gorm:"type:varchar(255);not null" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName sets the table name for the AppointmentEvent model
func (AppointmentEvent) TableName() string {
	return "appointment_events"
}

// DecodedMeta parses the event's meta document. Malformed or missing JSON
// degrades to an empty meta, never an error: validation happens at write
// time, reads must tolerate whatever history contains.
func (e *AppointmentEvent) DecodedMeta() EventMeta {
	return DecodeMeta(e.Meta)
}
