// Package permissions maps clinic roles to the operations they may
// perform and checks required permissions with wildcard support.
//
// Permission format:
//   - "*" - full access (clinic admin)
//   - "resource.*" - all actions on a resource (e.g., "patients.*")
//   - "resource.action" - specific action (e.g., "appointments.read")
package permissions

import (
	"strings"
)

// Clinic roles. Every role is tenant-scoped; there is no platform-wide
// role that crosses clinics.
const (
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RoleReceptionist = "receptionist"
)

// rolePermissions is the static role-to-permission grant table.
var rolePermissions = map[string][]string{
	RoleAdmin: {"*"},
	RoleDoctor: {
		"patients.*",
		"appointments.*",
		"prescriptions.*",
		"casestudies.*",
		"dentalcharts.*",
		"doctors.read",
	},
	RoleReceptionist: {
		"patients.read",
		"patients.write",
		"appointments.*",
		"doctors.read",
	},
}

// ForRole returns the permission grants for a clinic role.
func ForRole(role string) []string {
	return rolePermissions[role]
}

// ValidRole reports whether the given role is a known clinic role.
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission checks if the role's permissions include the required permission.
// Supports wildcard matching:
//   - "*" matches everything
//   - "patients.*" matches "patients.read", "patients.write", etc.
//   - Exact match for specific permissions
func HasPermission(role string, required string) bool {
	if required == "" {
		return true // no permission required
	}

	for _, p := range ForRole(role) {
		if p == "*" {
			return true
		}
		if p == required {
			return true
		}
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}

// HasAnyPermission checks if the role has any of the required permissions.
func HasAnyPermission(role string, required []string) bool {
	for _, req := range required {
		if HasPermission(role, req) {
			return true
		}
	}
	return false
}
