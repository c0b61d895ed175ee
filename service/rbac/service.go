package rbac

import (
	"context"
)

// Service is the permission authority. It owns role definitions, the role
// hierarchy, user assignments and the audit trail; callers never reach into
// its tables directly.
type Service interface {
	// RegisterRole adds or replaces a role definition by name; last write
	// wins.
	RegisterRole(ctx context.Context, role *Role) error

	// RegisterHierarchy declares that role inherits the supplied roles. It
	// returns an error when the addition would introduce a cycle; a cyclic
	// hierarchy is a configuration fault, not a runtime condition.
	RegisterHierarchy(ctx context.Context, role string, inherits ...string) error

	// AssignRole adds roleName to the user's assignment set. It returns
	// false when the role is unknown; re-assigning is a no-op success.
	AssignRole(ctx context.Context, userID, roleName string) bool

	// RevokeRole removes roleName from the user's assignment set. It
	// returns false when the role is unknown; revoking an unassigned role
	// is a no-op success.
	RevokeRole(ctx context.Context, userID, roleName string) bool

	// CheckPermission reports whether any of the user's effective roles
	// (direct assignments expanded transitively through the hierarchy)
	// grants the permission for the given resource. Every call appends
	// exactly one audit entry. An empty resourceID denotes an unscoped
	// check.
	CheckPermission(ctx context.Context, userID string, permission Permission, resourceID string) bool

	// RequirePermission is CheckPermission surfaced as an error: it returns
	// *PermissionDeniedError when the check fails and nil otherwise.
	RequirePermission(ctx context.Context, userID string, permission Permission, resourceID string) error

	// AuditLog returns a copy of the most recent limit audit entries,
	// oldest first. A non-positive limit returns the full log.
	AuditLog(limit int) []AuditEntry
}
