// internal/lifecycle/interrupt.go
package lifecycle

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InstallInterrupt routes SIGINT/SIGTERM into sig.
// The handler's only effect is sig.Set(). Call once before the loop starts;
// the returned func stops delivery.
func InstallInterrupt(sig *Signal, log *slog.Logger) (stop func()) {
	return installOn(sig, log, os.Interrupt, syscall.SIGTERM)
}

func installOn(sig *Signal, log *slog.Logger, signals ...os.Signal) func() {
	ch := make(chan os.Signal, 1)
	quit := make(chan struct{})
	signal.Notify(ch, signals...)

	go func() {
		for {
			select {
			case s := <-ch:
				if log != nil {
					log.Info("Exiting", "signal", s.String(), "program", os.Args[0])
				}
				sig.Set()
			case <-quit:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(quit)
		})
	}
}
