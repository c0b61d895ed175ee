// Package rbac implements the role-based permission authority that gates
// every external-facing action. Permissions are granted to roles, roles to
// users; a role hierarchy lets one role inherit everything reachable from it.
package rbac
