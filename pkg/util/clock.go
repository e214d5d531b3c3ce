package util

import "time"

// Clock abstracts time for the engine: trade timestamps, quote staleness,
// and oracle freshness all go through it so tests can pin the clock.
type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

// RealClock is the wall-clock implementation used outside tests.
type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (RealClock) Now() time.Time                         { return time.Now() }
