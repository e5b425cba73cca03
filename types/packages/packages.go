package packages

// PurchaseRequest creates a CustomerPackage from a catalog package.
type PurchaseRequest struct {
	PackageID uint `json:"package_id"`
}

// PackageSnapshot is the derived allowance view returned by the ledger and
// the customer package listing. Remaining counts are recomputed from usage
// rows, never stored.
type PackageSnapshot struct {
	CustomerPackageID uint   `json:"customer_package_id"`
	Status            string `json:"status"`
	SessionsTotal     int    `json:"sessions_total"`
	SessionsUsed      int    `json:"sessions_used"`
	SessionsRemaining int    `json:"sessions_remaining"`
	MaskTotal         int    `json:"mask_total"`
	MaskUsed          int    `json:"mask_used"`
	MaskRemaining     int    `json:"mask_remaining"`
}

// UsageSnapshot describes one ledger row in responses.
type UsageSnapshot struct {
	CustomerPackageID uint `json:"customer_package_id"`
	SessionNo         int  `json:"session_no"`
	UsedMask          bool `json:"used_mask"`
}

// LedgerResult is the mutation result shape shared by the completion,
// revert and admin-deduction paths. Usage and Package are nil for one-off
// completions and pure status resets.
type LedgerResult struct {
	AppointmentID uint             `json:"appointment_id"`
	Status        string           `json:"status"`
	Usage         *UsageSnapshot   `json:"usage"`
	Package       *PackageSnapshot `json:"package"`
}
