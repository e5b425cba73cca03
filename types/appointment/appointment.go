package appointment

import (
	"time"
)

// AppointmentCreateRequest is the payload for booking a new visit.
type AppointmentCreateRequest struct {
	CustomerID        uint      `json:"customer_id"`
	TreatmentID       *uint     `json:"treatment_id,omitempty"`
	TreatmentItemText string    `json:"treatment_item_text,omitempty"`
	ScheduledAt       time.Time `json:"scheduled_at"`
	Branch            string    `json:"branch"`
	Note              string    `json:"note,omitempty"`
}

// BackdateCreateRequest records a visit that already happened. When the
// treatment text matches a recognized legacy course pattern and no package id
// is given, a CustomerPackage is auto-provisioned for the customer.
type BackdateCreateRequest struct {
	CustomerID        uint      `json:"customer_id"`
	TreatmentID       *uint     `json:"treatment_id,omitempty"`
	TreatmentItemText string    `json:"treatment_item_text,omitempty"`
	ScheduledAt       time.Time `json:"scheduled_at"`
	Branch            string    `json:"branch"`
	Note              string    `json:"note,omitempty"`

	// Optional immediate completion against a package.
	Complete          bool  `json:"complete,omitempty"`
	CustomerPackageID *uint `json:"customer_package_id,omitempty"`
	UsedMask          bool  `json:"used_mask,omitempty"`
}

// AdminUpdateRequest is a partial field edit. Only non-nil fields are
// touched; the resolved current values form the before side of the diff.
type AdminUpdateRequest struct {
	ScheduledAt       *time.Time `json:"scheduled_at,omitempty"`
	Branch            *string    `json:"branch,omitempty"`
	TreatmentItemText *string    `json:"treatment_item_text,omitempty"`
	TreatmentPlanMode *string    `json:"treatment_plan_mode,omitempty"`
	Note              string     `json:"note,omitempty"`

	// Package linkage edits. UnlinkPackage wins over CustomerPackageID.
	CustomerPackageID *uint `json:"customer_package_id,omitempty"`
	UnlinkPackage     bool  `json:"unlink_package,omitempty"`

	// When linking a package on an already completed appointment the admin
	// path records the deduction through the ledger as well.
	CreateUsage bool `json:"create_usage,omitempty"`
	UsedMask    bool `json:"used_mask,omitempty"`
}

// CompleteRequest drives the service-completion endpoint. A zero
// CustomerPackageID means a one-off completion.
type CompleteRequest struct {
	CustomerPackageID *uint  `json:"customer_package_id,omitempty"`
	UsedMask          bool   `json:"used_mask,omitempty"`
	Note              string `json:"note,omitempty"`
}

// StatusPatchRequest is the admin status overwrite.
type StatusPatchRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ResolvedView is an appointment row decorated with its event-resolved
// logical fields for listings and detail reads.
type ResolvedView struct {
	ID                uint      `json:"id"`
	Uuid              string    `json:"uuid"`
	CustomerID        uint      `json:"customer_id"`
	CustomerName      string    `json:"customer_name,omitempty"`
	ScheduledAt       time.Time `json:"scheduled_at"`
	Branch            string    `json:"branch"`
	Status            string    `json:"status"`
	PackageID         string    `json:"package_id,omitempty"`
	TreatmentPlanMode string    `json:"treatment_plan_mode,omitempty"`
	TreatmentItemText string    `json:"treatment_item_text,omitempty"`
	StaffName         string    `json:"staff_name,omitempty"`
}
