package autonomy

import (
	"github.com/opstwin/autonomy/internal/clock"
	"github.com/opstwin/autonomy/service/approval"
	"github.com/opstwin/autonomy/service/confidence"
	"github.com/opstwin/autonomy/service/decision"
	"github.com/opstwin/autonomy/service/event"
	"github.com/opstwin/autonomy/service/messaging"
	"github.com/opstwin/autonomy/service/rbac"
)

// Option defines a functional option for configuring the gate service.
type Option func(*Service)

// WithConfig sets the gate configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithAuthority sets a custom permission authority.
func WithAuthority(authority rbac.Service) Option {
	return func(s *Service) {
		s.authority = authority
	}
}

// WithScorer sets a custom confidence scorer.
func WithScorer(scorer *confidence.Scorer) Option {
	return func(s *Service) {
		s.scorer = scorer
	}
}

// WithDecider sets a custom decision service.
func WithDecider(decider *decision.Service) Option {
	return func(s *Service) {
		s.decider = decider
	}
}

// WithApprovalService sets a custom approval workflow backend.
func WithApprovalService(approvals approval.Service) Option {
	return func(s *Service) {
		s.approvals = approvals
	}
}

// WithEventService sets a custom event service.
func WithEventService(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}

// WithAuditExport mirrors every permission-check audit entry onto the
// supplied queue, typically a file-backed queue polled by an external
// exporter. It only applies to the default in-memory authority.
func WithAuditExport(queue messaging.Queue[rbac.AuditEntry]) Option {
	return func(s *Service) {
		s.auditQueue = queue
	}
}

// WithClock sets the time source used by gate-owned components.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithGateID sets a stable identifier reported in stats and spans.
func WithGateID(id string) Option {
	return func(s *Service) {
		s.gateID = id
	}
}

// WithTracing enables OpenTelemetry tracing with a stdout/file exporter.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		s.tracer = &tracerSetup{
			serviceName:    serviceName,
			serviceVersion: serviceVersion,
			outputFile:     outputFile,
		}
	}
}
