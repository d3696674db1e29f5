// internal/lifecycle/signal_test.go
package lifecycle

import (
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestSignal_SetIsIdempotent(t *testing.T) {
	s := NewSignal()
	if s.IsSet() {
		t.Fatalf("new signal must be unset")
	}

	s.Set()
	s.Set()

	if !s.IsSet() {
		t.Fatalf("signal not set")
	}
	select {
	case <-s.Done():
	default:
		t.Fatalf("Done not closed after Set")
	}
}

func TestSignal_ZeroValueUsable(t *testing.T) {
	var s Signal
	s.Set()
	if !s.IsSet() {
		t.Fatalf("zero value signal not set")
	}
	<-s.Done()
}

func TestSignal_ConcurrentSet(t *testing.T) {
	s := NewSignal()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set()
			_ = s.IsSet()
		}()
	}
	wg.Wait()
	if !s.IsSet() {
		t.Fatalf("signal not set")
	}
}

func TestInstallOn_SetsSignal(t *testing.T) {
	s := NewSignal()
	stop := installOn(s, nil, syscall.SIGUSR1)
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("signal not delivered")
	}
	stop()
}
