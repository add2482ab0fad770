package worker

import "time"

// Clock creates timers and tells the time. Tests swap in a manual clock so
// reply and analysis delays can be stepped instead of slept through.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer the loop needs.
type Timer interface {
	Stop() bool
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Clock returns the loop's clock so state owned by the loop stamps times
// from the same source its timers use.
func (l *Loop) Clock() Clock {
	return l.clock
}
