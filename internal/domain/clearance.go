package domain

import "strings"

// Clearance is the ordinal rank a caller holds. Tiers are cumulative: an
// operation requiring tier N is permitted for any caller with tier >= N.
type Clearance int

const (
	ClearanceAny       Clearance = 0 // no (or invalid) credential
	ClearanceRegular   Clearance = 1
	ClearanceCashier   Clearance = 2
	ClearanceManager   Clearance = 3
	ClearanceSuperuser Clearance = 4
)

// ClearanceForRole maps a stored role to its clearance tier. Unknown roles
// resolve to ClearanceAny rather than failing.
func ClearanceForRole(role string) Clearance {
	switch strings.ToUpper(role) {
	case RoleRegular:
		return ClearanceRegular
	case RoleCashier:
		return ClearanceCashier
	case RoleManager:
		return ClearanceManager
	case RoleSuperuser:
		return ClearanceSuperuser
	default:
		return ClearanceAny
	}
}
