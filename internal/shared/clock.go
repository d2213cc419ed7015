package shared

import "time"

// Timer is a scheduled callback that can be cancelled.
//
// Stop reports whether the call prevented the callback from running, matching [time.Timer.Stop].
type Timer interface {
	Stop() bool
}

// Clock abstracts wall time and deferred callbacks so debounce and polling can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// NewClock returns a [Clock] backed by the time package.
func NewClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
