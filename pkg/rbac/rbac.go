package rbac

// Permission constants
const (
	PermissionReadMilestone   = "milestone:read"
	PermissionCreateMilestone = "milestone:create"
	PermissionCloseMilestone  = "milestone:close"

	PermissionCreateRelease    = "release:create"
	PermissionAssociateRelease = "release:associate"
)

// Role constants
const (
	RoleReporter  = "reporter"
	RoleDeveloper = "developer"
	RoleAdmin     = "admin"
)

var rolePermissions = map[string][]string{
	RoleReporter: {
		PermissionReadMilestone,
	},
	RoleDeveloper: {
		PermissionReadMilestone,
		PermissionCreateMilestone,
		PermissionCreateRelease,
		PermissionAssociateRelease,
	},
	RoleAdmin: {
		PermissionReadMilestone,
		PermissionCreateMilestone,
		PermissionCloseMilestone,
		PermissionCreateRelease,
		PermissionAssociateRelease,
	},
}

// HasPermission checks whether a role grants the given permission.
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission returns an error instead of a boolean so call sites
// can bubble it straight up.
func CheckPermission(role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError reports a missing capability.
type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
