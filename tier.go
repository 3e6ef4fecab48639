package authcore

// Tier is the ordered role tier of an account. The total order is defined
// here once; both the authenticator and any authorization helper must use
// Meets rather than comparing constants directly.
type Tier uint8

const (
	// TierPublic means no authentication is required. It is never stored on
	// a user; it is only meaningful as a minimum requirement.
	TierPublic Tier = iota
	// TierBase is the default tier assigned to new accounts.
	TierBase
	// TierElevated grants content-administration operations.
	TierElevated
	// TierSuper grants account and role administration.
	TierSuper
)

// Meets reports whether t satisfies the minimum tier min.
func (t Tier) Meets(min Tier) bool {
	return t >= min
}

func (t Tier) String() string {
	switch t {
	case TierPublic:
		return "public"
	case TierBase:
		return "base"
	case TierElevated:
		return "elevated"
	case TierSuper:
		return "super"
	}
	return "unknown"
}
