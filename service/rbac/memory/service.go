package memory

import (
	"context"
	"fmt"
	"path"

	"sync"

	"github.com/opstwin/autonomy/internal/clock"
	"github.com/opstwin/autonomy/service/dao"
	"github.com/opstwin/autonomy/service/dao/store"
	"github.com/opstwin/autonomy/service/messaging"
	"github.com/opstwin/autonomy/service/rbac"
)

type service struct {
	roleDAO dao.Service[string, rbac.Role]

	// assignments and hierarchy are guarded together; checks expand the
	// hierarchy while assignments may be mutated concurrently.
	mu          sync.RWMutex
	assignments map[string]map[string]bool
	hierarchy   map[string][]string

	audit      *store.AppendLog[rbac.AuditEntry]
	auditQueue messaging.Queue[rbac.AuditEntry]
	now        clock.Clock
}

func roleKey(r *rbac.Role) string { return r.Name }

// New creates the in-memory permission authority pre-loaded with the built-in
// roles and hierarchy.
func New(options ...Option) rbac.Service {
	ret := &service{
		roleDAO:     store.NewMemoryStore[string, rbac.Role](roleKey),
		assignments: make(map[string]map[string]bool),
		hierarchy:   rbac.BuiltinHierarchy(),
		audit:       store.NewAppendLog[rbac.AuditEntry](),
		now:         clock.System(),
	}
	ctx := context.Background()
	for _, role := range rbac.BuiltinRoles() {
		_ = ret.roleDAO.Save(ctx, role)
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (s *service) RegisterRole(ctx context.Context, role *rbac.Role) error {
	if role == nil {
		return dao.ErrNilEntity
	}
	if role.Name == "" {
		return dao.ErrInvalidID
	}
	for _, permission := range role.Permissions {
		if !permission.Valid() {
			return fmt.Errorf("role %s: unknown permission %q", role.Name, permission)
		}
	}
	return s.roleDAO.Save(ctx, role)
}

func (s *service) RegisterHierarchy(_ context.Context, role string, inherits ...string) error {
	if role == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := make(map[string][]string, len(s.hierarchy)+1)
	for name, parents := range s.hierarchy {
		candidate[name] = parents
	}
	candidate[role] = append(append([]string(nil), candidate[role]...), inherits...)

	if cyclic, via := hasCycle(candidate, role); cyclic {
		return fmt.Errorf("hierarchy cycle: %s inherits %s which reaches back to %s", role, via, role)
	}
	s.hierarchy = candidate
	return nil
}

// hasCycle walks the inherits-from relation starting at root and reports
// whether root is reachable from itself.
func hasCycle(hierarchy map[string][]string, root string) (bool, string) {
	visited := map[string]bool{}
	stack := append([]string(nil), hierarchy[root]...)
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == root {
			return true, current
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		stack = append(stack, hierarchy[current]...)
	}
	return false, ""
}

func (s *service) AssignRole(ctx context.Context, userID, roleName string) bool {
	role, _ := s.roleDAO.Load(ctx, roleName)
	if role == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	roles, ok := s.assignments[userID]
	if !ok {
		roles = make(map[string]bool)
		s.assignments[userID] = roles
	}
	roles[roleName] = true
	return true
}

func (s *service) RevokeRole(ctx context.Context, userID, roleName string) bool {
	role, _ := s.roleDAO.Load(ctx, roleName)
	if role == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assignments[userID], roleName)
	return true
}

func (s *service) CheckPermission(ctx context.Context, userID string, permission rbac.Permission, resourceID string) bool {
	granted := s.evaluate(ctx, userID, permission, resourceID)
	entry := rbac.AuditEntry{
		Timestamp:  s.now(),
		UserID:     userID,
		Permission: permission,
		ResourceID: resourceID,
		Granted:    granted,
	}
	entry.Seq = s.audit.Append(entry)
	if s.auditQueue != nil {
		_ = s.auditQueue.Publish(ctx, &entry)
	}
	return granted
}

func (s *service) evaluate(ctx context.Context, userID string, permission rbac.Permission, resourceID string) bool {
	if !permission.Valid() {
		return false
	}
	for _, roleName := range s.effectiveRoles(userID) {
		role, _ := s.roleDAO.Load(ctx, roleName)
		if role == nil || !role.Grants(permission) {
			continue
		}
		if role.Scope != "" && resourceID != "" && !matchScope(role.Scope, resourceID) {
			continue
		}
		return true
	}
	return false
}

func (s *service) RequirePermission(ctx context.Context, userID string, permission rbac.Permission, resourceID string) error {
	if s.CheckPermission(ctx, userID, permission, resourceID) {
		return nil
	}
	return &rbac.PermissionDeniedError{UserID: userID, Permission: permission, ResourceID: resourceID}
}

// effectiveRoles expands the user's direct assignments transitively through
// the hierarchy. An unknown user simply has no roles.
func (s *service) effectiveRoles(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{}
	var queue []string
	for roleName := range s.assignments[userID] {
		queue = append(queue, roleName)
	}
	var effective []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if seen[current] {
			continue
		}
		seen[current] = true
		effective = append(effective, current)
		queue = append(queue, s.hierarchy[current]...)
	}
	return effective
}

func (s *service) AuditLog(limit int) []rbac.AuditEntry {
	return s.audit.Tail(limit)
}

// matchScope applies glob-style matching ("twin-*") between a role scope and
// a resource id. A malformed pattern never matches.
func matchScope(pattern, resourceID string) bool {
	ok, err := path.Match(pattern, resourceID)
	return err == nil && ok
}

var _ rbac.Service = (*service)(nil)
