// internal/poller/runner.go
package poller

import "time"

// Cancelled is the view of the cancellation flag a poll run observes.
// Done is closed once IsSet turns true.
type Cancelled interface {
	IsSet() bool
	Done() <-chan struct{}
}

// RunAll polls every device once, in order, on the calling goroutine.
// Cancellation is checked before each device and cuts short the delay
// between devices. Results for devices not reached are omitted.
func RunAll(pollers []*Poller, cancel Cancelled, delay time.Duration) []PollResult {
	out := make([]PollResult, 0, len(pollers))
	for i, p := range pollers {
		if cancel != nil && cancel.IsSet() {
			return out
		}
		if i > 0 && delay > 0 && !pause(delay, cancel) {
			return out
		}
		out = append(out, p.PollOnce())
	}
	return out
}

// pause waits d and reports false if cancelled meanwhile.
func pause(d time.Duration, cancel Cancelled) bool {
	var done <-chan struct{}
	if cancel != nil {
		done = cancel.Done()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-done:
		return false
	}
}
