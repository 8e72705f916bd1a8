package testutil

import (
	"testing"
	"time"

	"github.com/roach88/mandaatsync/internal/ir"
)

// MustTime parses an RFC 3339 timestamp or a date, failing the test on error.
func MustTime(t testing.TB, s string) time.Time {
	t.Helper()
	ts, err := ir.ParseTime(s)
	if err != nil {
		t.Fatalf("MustTime(%q): %v", s, err)
	}
	return ts
}

// Clock returns a fixed clock set to s.
//
// Tests advance it explicitly; it never moves on its own.
func Clock(t testing.TB, s string) *ir.FixedClock {
	t.Helper()
	return ir.NewFixedClock(MustTime(t, s))
}
