package reconcile

import "time"

type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// Clock creates the timers a run waits on; tests swap it for one that
// records the requested delays.
type Clock interface {
	NewTimer(d time.Duration) Timer
}

type realClock struct{}

type realTimer struct {
	t *time.Timer
}

func (realClock) NewTimer(d time.Duration) Timer {
	return realTimer{t: time.NewTimer(d)}
}

func (r realTimer) C() <-chan time.Time {
	return r.t.C
}

func (r realTimer) Stop() bool {
	return r.t.Stop()
}
