package domain

// UserRole represents an employee's organizational role.
// The set is fixed by the HR structure of the company.
type UserRole string

const (
	RoleAgent         UserRole = "agent"
	RoleBranchManager UserRole = "branch_manager"
	RoleOpsManager    UserRole = "ops_manager"
	RoleDirector      UserRole = "director"
	RoleSecurity      UserRole = "security"
	RoleAccountant    UserRole = "accountant"
	RoleITAdmin       UserRole = "it_admin"
	RoleHR            UserRole = "hr"
)

// AllRoles lists every valid role.
var AllRoles = []UserRole{
	RoleAgent,
	RoleBranchManager,
	RoleOpsManager,
	RoleDirector,
	RoleSecurity,
	RoleAccountant,
	RoleITAdmin,
	RoleHR,
}

// IsValid returns true if the role is one of the known roles.
func (r UserRole) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
