package core

import "sync"

// Lifecycle is a one-shot shutdown signal. Signal may be called any number
// of times from any goroutine; only the first call has an effect.
type Lifecycle struct {
	done chan struct{}
	once sync.Once
}

// NewLifecycle creates an unfired lifecycle signal
func NewLifecycle() *Lifecycle {
	return &Lifecycle{done: make(chan struct{})}
}

// Signal fires the shutdown signal. It reports whether this call fired it.
func (l *Lifecycle) Signal() bool {
	fired := false
	l.once.Do(func() {
		close(l.done)
		fired = true
	})
	return fired
}

// Done is closed once the signal has fired
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}

// Fired reports whether the signal has fired
func (l *Lifecycle) Fired() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}
