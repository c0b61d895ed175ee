package memory

import (
	"github.com/opstwin/autonomy/internal/clock"
	"github.com/opstwin/autonomy/internal/idgen"
	"github.com/opstwin/autonomy/service/approval"
	"github.com/opstwin/autonomy/service/messaging"
)

type Option func(*service)

// WithClock overrides the expiry and creation time source.
func WithClock(now clock.Clock) Option {
	return func(s *service) { s.now = now }
}

// WithIDGenerator overrides proposal id generation.
func WithIDGenerator(newID idgen.Generator) Option {
	return func(s *service) { s.newID = newID }
}

// WithQueue replaces the default in-memory lifecycle event queue, e.g. with a
// file-backed queue an external process polls.
func WithQueue(queue messaging.Queue[approval.Event]) Option {
	return func(s *service) { s.events = queue }
}
