package votally

import (
	"sync"
	"time"
)

// NewDeadline creates a one-shot timer that calls action once delay has
// elapsed after it is started.
func NewDeadline(delay time.Duration, action func()) *Deadline {
	return &Deadline{
		delay:  delay,
		action: action,
	}
}

// Deadline wraps a time.Timer with start and stop semantics. The poll uses it
// to close balloting automatically after the configured uptime.
type Deadline struct {
	sync.Mutex
	delay   time.Duration // The delay before the action is called
	action  func()        // The callback executed when the deadline passes
	timer   *time.Timer   // The internal timer to wrap
	expires time.Time     // When the running timer will call the action
	fired   bool          // If the action has already been called
}

// GetDelay returns the deadline duration.
func (t *Deadline) GetDelay() time.Duration {
	return t.delay
}

// Start the deadline. Returns true if the timer gets started, false if it is
// already started or has already fired.
func (t *Deadline) Start() bool {
	t.Lock()
	defer t.Unlock()

	if t.timer != nil || t.fired {
		return false
	}

	t.expires = time.Now().Add(t.delay)
	t.timer = time.AfterFunc(t.delay, t.run)
	return true
}

// run marks the deadline as fired then calls the action outside of the lock so
// that the action may stop the deadline itself.
func (t *Deadline) run() {
	t.Lock()
	if t.fired || t.timer == nil {
		t.Unlock()
		return
	}
	t.fired = true
	t.timer = nil
	t.expires = time.Time{}
	t.Unlock()

	t.action()
}

// Stop the deadline so that the action is not called. Returns true if the call
// stops the deadline, false if already fired or never started.
func (t *Deadline) Stop() bool {
	t.Lock()
	defer t.Unlock()

	if t.timer == nil {
		return false
	}

	stopped := t.timer.Stop()
	t.timer = nil
	t.expires = time.Time{}
	return stopped
}

// Expires returns when the action will be called, or the zero time if the
// deadline is not counting down.
func (t *Deadline) Expires() time.Time {
	t.Lock()
	defer t.Unlock()
	return t.expires
}

// Fired returns true if the action has been called.
func (t *Deadline) Fired() bool {
	t.Lock()
	defer t.Unlock()
	return t.fired
}
