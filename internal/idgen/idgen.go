package idgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator produces a new unique identifier per call. Constructors take a
// Generator so tests can substitute a deterministic sequence.
type Generator func() string

// UUID returns a Generator backed by random UUIDs.
func UUID() Generator {
	return func() string { return uuid.New().String() }
}

// Prefixed returns a Generator that emits ids of the form "<prefix>_<hex12>",
// e.g. "prop_3f2a9c1d04be".
func Prefixed(prefix string) Generator {
	return func() string {
		hex := strings.ReplaceAll(uuid.New().String(), "-", "")
		return fmt.Sprintf("%s_%s", prefix, hex[:12])
	}
}

// Sequence returns a Generator yielding "<prefix>_1", "<prefix>_2", … It is
// not safe for concurrent use and is intended for tests only.
func Sequence(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s_%d", prefix, n)
	}
}
