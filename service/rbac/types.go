package rbac

import (
	"fmt"
	"time"
)

// Permission is an atomic capability. The set is closed; values outside the
// enumeration are rejected at construction, never compared as bare strings at
// call sites.
type Permission string

const (
	PermissionRead    Permission = "read"
	PermissionPropose Permission = "propose"
	PermissionApprove Permission = "approve"
	PermissionExecute Permission = "execute"
)

// Valid reports whether p is a member of the closed enumeration.
func (p Permission) Valid() bool {
	switch p {
	case PermissionRead, PermissionPropose, PermissionApprove, PermissionExecute:
		return true
	}
	return false
}

// Role is a named bundle of permissions, optionally limited to resources
// matching a glob-style scope pattern. Roles are immutable once registered;
// re-registering a name replaces the previous definition.
type Role struct {
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
	// Scope limits the role to resource ids matching this pattern, e.g.
	// "twin-*". Empty means unscoped.
	Scope string `json:"scope,omitempty"`
}

// NewRole builds a role granting the supplied permissions.
func NewRole(name string, permissions ...Permission) *Role {
	return &Role{Name: name, Permissions: permissions}
}

// Grants reports whether the role carries the permission.
func (r *Role) Grants(permission Permission) bool {
	for _, candidate := range r.Permissions {
		if candidate == permission {
			return true
		}
	}
	return false
}

// AuditEntry records the verdict of a single permission check. Entries are
// append-only; Seq is the monotonic position in the audit log.
type AuditEntry struct {
	Seq        int        `json:"seq"`
	Timestamp  time.Time  `json:"timestamp"`
	UserID     string     `json:"userID"`
	Permission Permission `json:"permission"`
	ResourceID string     `json:"resourceID,omitempty"`
	Granted    bool       `json:"granted"`
}

// PermissionDeniedError is returned by RequirePermission. It is the only
// fault in this package surfaced as an error; every other negative outcome is
// an ordinary boolean.
type PermissionDeniedError struct {
	UserID     string
	Permission Permission
	ResourceID string
}

func (e *PermissionDeniedError) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("user %s lacks %s permission for %s", e.UserID, e.Permission, e.ResourceID)
	}
	return fmt.Sprintf("user %s lacks %s permission", e.UserID, e.Permission)
}
