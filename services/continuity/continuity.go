package continuity

import (
	"clinic-booking/models/packages"
)

// Remaining is the derived allowance state of one CustomerPackage. It is
// always recomputed from usage row counts under lock, never cached, so a
// stale counter can never drift from the ledger.
type Remaining struct {
	SessionsTotal     int
	SessionsUsed      int
	SessionsRemaining int
	MaskTotal         int
	MaskUsed          int
	MaskRemaining     int
}

// ComputeRemaining clamps every input to >= 0 and derives the remaining
// counts. Remaining is never negative, even if used temporarily exceeds
// total (e.g. mid-cleanup of historic duplicates).
func ComputeRemaining(sessionsTotal, sessionsUsed, maskTotal, maskUsed int) Remaining {
	sessionsTotal = clampNonNegative(sessionsTotal)
	sessionsUsed = clampNonNegative(sessionsUsed)
	maskTotal = clampNonNegative(maskTotal)
	maskUsed = clampNonNegative(maskUsed)

	return Remaining{
		SessionsTotal:     sessionsTotal,
		SessionsUsed:      sessionsUsed,
		SessionsRemaining: clampNonNegative(sessionsTotal - sessionsUsed),
		MaskTotal:         maskTotal,
		MaskUsed:          maskUsed,
		MaskRemaining:     clampNonNegative(maskTotal - maskUsed),
	}
}

// DeriveContinuousStatus is the single place a CustomerPackage status is
// computed. An active package with nothing remaining completes; a completed
// package that regained sessions (after a revert) reactivates; anything else
// is left unchanged.
func DeriveContinuousStatus(current packages.PackageStatus, sessionsRemaining int) packages.PackageStatus {
	switch {
	case current == packages.PackageStatusActive && sessionsRemaining <= 0:
		return packages.PackageStatusCompleted
	case current == packages.PackageStatusCompleted && sessionsRemaining > 0:
		return packages.PackageStatusActive
	default:
		return current
	}
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
