package votally

import "sync"

// signal is a single-writer, multi-reader broadcast. Firing closes a channel
// so every current waiter resumes, and any reader that arrives later sees the
// signal immediately. Values published alongside a signal must be written
// before it fires; readers may then access them after receiving from Done
// without further synchronization.
type signal struct {
	once sync.Once
	done chan struct{}
}

func newSignal() *signal {
	return &signal{done: make(chan struct{})}
}

// fire the signal, returning true only for the call that actually fired it.
func (s *signal) fire() (fired bool) {
	s.once.Do(func() {
		close(s.done)
		fired = true
	})
	return fired
}

// Done returns a channel that is closed when the signal fires.
func (s *signal) Done() <-chan struct{} {
	return s.done
}

// fired reports whether the signal has been fired without blocking.
func (s *signal) fired() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
