// internal/lifecycle/signal.go
package lifecycle

import (
	"sync"
	"sync/atomic"
)

// Signal is the cooperative cancellation flag shared between the
// scheduling loop and asynchronous sources (interrupt handler).
// Set is idempotent and safe from any goroutine.
type Signal struct {
	set  atomic.Bool
	once sync.Once
	done chan struct{}
	init sync.Once
}

// NewSignal returns an unset signal.
func NewSignal() *Signal {
	s := &Signal{}
	s.lazyInit()
	return s
}

func (s *Signal) lazyInit() {
	s.init.Do(func() { s.done = make(chan struct{}) })
}

// Set raises the flag. Later calls are no-ops.
func (s *Signal) Set() {
	s.lazyInit()
	s.set.Store(true)
	s.once.Do(func() { close(s.done) })
}

// IsSet reports whether the flag was raised.
func (s *Signal) IsSet() bool {
	return s.set.Load()
}

// Done is closed once the flag is raised.
func (s *Signal) Done() <-chan struct{} {
	s.lazyInit()
	return s.done
}
