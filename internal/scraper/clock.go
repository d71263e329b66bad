package scraper

import "github.com/jonboulle/clockwork"

// clock is a package-level time source so tests can control pacing via SetClock.
// Production code uses the real clock; tests inject a fake for deterministic walks.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for pacing and walk durations.
// Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
