package constants

// Staff and customer roles carried in JWT claims
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"
	RoleManager    = "MANAGER"
	RoleWorker     = "WORKER"
	RoleCustomer   = "CUSTOMER"

	// Special role matcher: any authenticated user
	RoleAny = "any"
)

// Role groups for convenience
var (
	ManagerRoles = []string{
		RoleSuperAdmin,
		RoleAdmin,
		RoleManager,
	}

	StaffRoles = []string{
		RoleSuperAdmin,
		RoleAdmin,
		RoleManager,
		RoleWorker,
	}
)

// IsValidRole reports whether the given role is one of the known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleManager, RoleWorker, RoleCustomer:
		return true
	default:
		return false
	}
}
