package jeopardy

import "time"

// Timer is a cancelable pending callback.
type Timer interface {
	// Stop cancels the timer. It reports false if the timer already
	// fired or was stopped.
	Stop() bool
}

// Scheduler issues delayed callbacks. The session holds at most one
// close timer and one next-open timer at a time; callbacks run on their
// own goroutine and re-enter the session through its mutex.
type Scheduler interface {
	After(d time.Duration, fn func()) Timer
}

// WallScheduler schedules callbacks on the wall clock.
type WallScheduler struct{}

// NewWallScheduler creates the production scheduler.
func NewWallScheduler() *WallScheduler {
	return &WallScheduler{}
}

// After schedules fn to run once after d.
func (s *WallScheduler) After(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
