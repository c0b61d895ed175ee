package rbac

// Built-in role names.
const (
	RoleViewer     = "viewer"
	RoleAgent      = "agent"
	RoleSupervisor = "supervisor"
	RoleExecutor   = "executor"
	RoleAdmin      = "admin"
)

// BuiltinRoles returns fresh copies of the roles every authority ships with.
func BuiltinRoles() []*Role {
	return []*Role{
		NewRole(RoleViewer, PermissionRead),
		NewRole(RoleAgent, PermissionRead, PermissionPropose),
		NewRole(RoleSupervisor, PermissionRead, PermissionPropose, PermissionApprove),
		NewRole(RoleExecutor, PermissionRead, PermissionExecute),
		NewRole(RoleAdmin, PermissionRead, PermissionPropose, PermissionApprove, PermissionExecute),
	}
}

// BuiltinHierarchy returns the static inherits-from relation between the
// built-in roles. The graph is acyclic by construction.
func BuiltinHierarchy() map[string][]string {
	return map[string][]string{
		RoleAdmin:      {RoleSupervisor, RoleExecutor},
		RoleSupervisor: {RoleAgent, RoleViewer},
		RoleExecutor:   {RoleViewer},
		RoleAgent:      {RoleViewer},
	}
}
