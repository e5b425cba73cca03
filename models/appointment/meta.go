package appointment

import (
	"encoding/json"
)

// EventFields is the canonical set of event-sourced field values an event can
// carry, either as a before/after pair or (for the older writer generation)
// flat at the top level of the meta document.
type EventFields struct {
	PackageID         string `json:"package_id,omitempty"`
	TreatmentPlanMode string `json:"treatment_plan_mode,omitempty"`
	TreatmentItemText string `json:"treatment_item_text,omitempty"`
	ScheduledAt       string `json:"scheduled_at,omitempty"`
	Branch            string `json:"branch,omitempty"`
	Status            string `json:"status,omitempty"`
	StaffName         string `json:"staff_name,omitempty"`
	StaffID           string `json:"staff_id,omitempty"`

	// Explicit unlink markers. Either spelling freezes the package linkage to
	// empty during resolution; older writers used package_unlinked.
	UnlinkPackage   bool `json:"unlink_package,omitempty"`
	PackageUnlinked bool `json:"package_unlinked,omitempty"`
}

// PackageCounts is a point-in-time allowance snapshot embedded in audit
// events so they replay independently of the ledger tables.
type PackageCounts struct {
	CustomerPackageID uint   `json:"customer_package_id,omitempty"`
	Status            string `json:"status,omitempty"`
	SessionsTotal     int    `json:"sessions_total"`
	SessionsUsed      int    `json:"sessions_used"`
	SessionsRemaining int    `json:"sessions_remaining"`
	MaskTotal         int    `json:"mask_total"`
	MaskUsed          int    `json:"mask_used"`
	MaskRemaining     int    `json:"mask_remaining"`
}

// EventMeta is the canonical internal form of an event's meta document. Two
// writer generations exist: the current one nests changed values under
// before/after, the legacy one wrote the same keys flat at the top level.
// Both unmarshal into this one struct; readers go through the accessor
// methods, which prefer the after sub-object and fall back to the flat keys.
type EventMeta struct {
	Before *EventFields `json:"before,omitempty"`
	After  *EventFields `json:"after,omitempty"`

	// Legacy flat layout.
	EventFields

	// Audit context written by the ledger and status services.
	Kind              string         `json:"kind,omitempty"` // one_off | package
	CustomerPackageID uint           `json:"customer_package_id,omitempty"`
	SessionNo         int            `json:"session_no,omitempty"`
	UsedMask          bool           `json:"used_mask,omitempty"`
	Reason            string         `json:"reason,omitempty"`
	RevertedUsageIDs  []uint         `json:"reverted_usage_ids,omitempty"`
	PackageBefore     *PackageCounts `json:"package_before,omitempty"`
	PackageAfter      *PackageCounts `json:"package_after,omitempty"`
	Packages          []PackageCounts `json:"packages,omitempty"`
	DeletedUsageCount int            `json:"deleted_usage_count,omitempty"`
}

// DecodeMeta normalizes a raw meta document into the canonical EventMeta.
// Malformed JSON is treated as an empty object: this feeds a resolution
// engine, not a validator.
func DecodeMeta(raw json.RawMessage) EventMeta {
	var m EventMeta
	if len(raw) == 0 {
		return m
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return EventMeta{}
	}
	return m
}

// Encode marshals the meta back to its wire form.
func (m EventMeta) Encode() (json.RawMessage, error) {
	return json.Marshal(m)
}

// ResolvedPackageID reads the package linkage, after sub-object first.
func (m EventMeta) ResolvedPackageID() string {
	if m.After != nil && m.After.PackageID != "" {
		return m.After.PackageID
	}
	return m.PackageID
}

// ResolvedTreatmentPlanMode reads the raw plan mode, after sub-object first.
func (m EventMeta) ResolvedTreatmentPlanMode() string {
	if m.After != nil && m.After.TreatmentPlanMode != "" {
		return m.After.TreatmentPlanMode
	}
	return m.TreatmentPlanMode
}

// ResolvedTreatmentItemText reads the free-text item, after sub-object first.
func (m EventMeta) ResolvedTreatmentItemText() string {
	if m.After != nil && m.After.TreatmentItemText != "" {
		return m.After.TreatmentItemText
	}
	return m.TreatmentItemText
}

// UnlinkRequested reports whether the event carries an explicit package
// unlink marker in either spelling, nested or flat.
func (m EventMeta) UnlinkRequested() bool {
	if m.After != nil && (m.After.UnlinkPackage || m.After.PackageUnlinked) {
		return true
	}
	return m.UnlinkPackage || m.PackageUnlinked
}

// ResolvedStaffName reads the acting staff name, after sub-object first.
func (m EventMeta) ResolvedStaffName() string {
	if m.After != nil && m.After.StaffName != "" {
		return m.After.StaffName
	}
	return m.StaffName
}

// ResolvedStaffID reads the acting staff id, after sub-object first.
func (m EventMeta) ResolvedStaffID() string {
	if m.After != nil && m.After.StaffID != "" {
		return m.After.StaffID
	}
	return m.StaffID
}
