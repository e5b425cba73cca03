package packages

// PackageStatus is the continuity status of a CustomerPackage. It is derived
// from the remaining session count and must only be computed through the
// continuity service, never set directly.
type PackageStatus string

const (
	PackageStatusActive    PackageStatus = "active"
	PackageStatusCompleted PackageStatus = "completed"
)

func (ps PackageStatus) String() string {
	return string(ps)
}

func (ps PackageStatus) IsValid() bool {
	switch ps {
	case PackageStatusActive, PackageStatusCompleted:
		return true
	default:
		return false
	}
}

// PackageSource records how a CustomerPackage came to exist.
type PackageSource string

const (
	PackageSourcePurchase   PackageSource = "purchase"
	PackageSourceLegacyText PackageSource = "legacy_text"
)

func (ps PackageSource) String() string {
	return string(ps)
}

func (ps PackageSource) IsValid() bool {
	switch ps {
	case PackageSourcePurchase, PackageSourceLegacyText:
		return true
	default:
		return false
	}
}
