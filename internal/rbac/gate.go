package rbac

import "slices"

// Allowed reports whether held covers every required permission.
// There is no partial credit and no OR.
func Allowed(held []string, required ...string) bool {
	for _, r := range required {
		if !slices.Contains(held, r) {
			return false
		}
	}
	return true
}

// RoleAllowed is a plain membership test, independent of the permission table.
func RoleAllowed(role string, allowed ...string) bool {
	return role != "" && slices.Contains(allowed, role)
}
