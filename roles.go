package lodging

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, IsValidRole(role)
}

// IsValidStatus checks the status against the known lifecycle states
func IsValidStatus(s ApplicationStatus) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDenied:
		return true
	default:
		return false
	}
}

// IsDecisionStatus reports whether the status is a legal transition target.
// Applications never move back to pending.
func IsDecisionStatus(s ApplicationStatus) bool {
	return s == StatusAccepted || s == StatusDenied
}
