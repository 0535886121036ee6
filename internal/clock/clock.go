// internal/clock/clock.go
package clock

import "time"

// Clock abstracts wall-clock reads and deferred callbacks. The debounce,
// cooldown and transient-effect timers in the courtroom core are all driven
// through a Clock so tests can advance time manually instead of sleeping.
type Clock interface {
	Now() time.Time

	// AfterFunc schedules fn to run once after d elapses. A stopped timer
	// never fires.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a cancellable deferred callback handle.
type Timer interface {
	// Stop cancels the timer. It reports false if the timer already fired
	// or was already stopped.
	Stop() bool
}

// System returns a Clock backed by the real wall clock.
func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return systemTimer{t: time.AfterFunc(d, fn)}
}

type systemTimer struct{ t *time.Timer }

func (st systemTimer) Stop() bool { return st.t.Stop() }
