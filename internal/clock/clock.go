package clock

import "time"

// Clock supplies the current time. Components accept a Clock so that proposal
// expiry and audit timestamps stay deterministic under test.
type Clock func() time.Time

// System returns a wall-clock backed Clock.
func System() Clock { return time.Now }

// Fixed returns a Clock frozen at t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}
