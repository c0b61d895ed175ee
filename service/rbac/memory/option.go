package memory

import (
	"github.com/opstwin/autonomy/internal/clock"
	"github.com/opstwin/autonomy/service/messaging"
	"github.com/opstwin/autonomy/service/rbac"
)

type Option func(*service)

// WithClock overrides the audit timestamp source.
func WithClock(now clock.Clock) Option {
	return func(s *service) { s.now = now }
}

// WithAuditQueue mirrors every audit entry onto the supplied queue so an
// external process can export the trail; the in-memory log stays
// authoritative.
func WithAuditQueue(queue messaging.Queue[rbac.AuditEntry]) Option {
	return func(s *service) { s.auditQueue = queue }
}
