// internal/bridge/bridge.go
package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tamzrod/modbus-bridge/internal/clock"
	"github.com/tamzrod/modbus-bridge/internal/command"
	"github.com/tamzrod/modbus-bridge/internal/lifecycle"
	"github.com/tamzrod/modbus-bridge/internal/logfields"
	"github.com/tamzrod/modbus-bridge/internal/metrics"
	"github.com/tamzrod/modbus-bridge/internal/poller"
)

// FieldGateway is the device side of the bridge.
type FieldGateway interface {
	Setup(cancel poller.Cancelled) error
	Poll()
	Publish(timestamp *float64)
	PublishDiagnostics()
	Export(path string, timestamp *float64)
	WriteCoil(device string, address int, value int) bool
	WriteRegister(device string, address int, value int) bool
	Close() error
}

// BusGateway is the pub/sub side of the bridge. Receive must not block.
type BusGateway interface {
	Setup() error
	Receive() (topic, payload string, ok bool)
	Close() error
}

// Options control the loop cadence and which outputs run.
type Options struct {
	PollInterval        float64 // seconds
	DiagnosticsInterval float64 // seconds, 0 disables
	TopicPrefix         string
	ExportPath          string
	Timestamp           bool
	Once                bool

	// Idle pauses an iteration that did nothing. Zero spins.
	Idle time.Duration
}

// Loop drives polling, diagnostics and command dispatch on one goroutine.
type Loop struct {
	opts   Options
	field  FieldGateway
	bus    BusGateway
	clock  clock.Clock
	cancel *lifecycle.Signal
	log    *slog.Logger
	rec    *metrics.Recorder

	dispatcher *command.Dispatcher
	lastPoll   float64
	lastDiag   float64
	release    sync.Once
}

// New wires a loop. bus is nil when no broker is configured.
func New(opts Options, field FieldGateway, bus BusGateway, clk clock.Clock, cancel *lifecycle.Signal, log *slog.Logger, rec *metrics.Recorder) *Loop {
	if log == nil {
		log = slog.Default()
	}
	if cancel == nil {
		cancel = lifecycle.NewSignal()
	}
	return &Loop{
		opts:       opts,
		field:      field,
		bus:        bus,
		clock:      clk,
		cancel:     cancel,
		log:        log,
		rec:        rec,
		dispatcher: command.NewDispatcher(opts.TopicPrefix, field, log),
	}
}

// Run sets up both gateways, loops until cancellation and releases the
// gateways exactly once. A non-nil error means setup failed.
func (l *Loop) Run() error {
	defer l.close()

	if err := l.setup(); err != nil {
		return err
	}

	l.run()
	return nil
}

func (l *Loop) setup() error {
	if l.opts.PollInterval <= 0 {
		return errors.New("bridge: poll interval must be > 0")
	}

	if l.bus != nil {
		l.log.Info("Setup bus connection")
		if err := l.bus.Setup(); err != nil {
			return fmt.Errorf("bridge: bus setup: %w", err)
		}
	} else {
		l.log.Info("No bus host specified, skip bus setup")
	}

	if err := l.field.Setup(l.cancel); err != nil {
		return fmt.Errorf("bridge: field setup: %w", err)
	}
	return nil
}

func (l *Loop) run() {
	for !l.cancel.IsSet() {
		busy := false
		now := l.clock.Now()

		if now > l.lastPoll+l.opts.PollInterval {
			elapsed := l.opts.PollInterval
			if l.lastPoll != 0 {
				elapsed = clock.RoundMicro(now - l.lastPoll)
			}
			l.lastPoll = now
			busy = true

			l.log.Info("polling", logfields.Rate(l.opts.PollInterval), logfields.Elapsed(elapsed))
			l.rec.SetLastPoll(now)
			l.field.Poll()
			if l.cancel.IsSet() {
				return
			}

			var ts *float64
			if l.opts.Timestamp {
				ts = &now
			}
			if l.bus != nil {
				l.field.Publish(ts)
			}
			if l.opts.ExportPath != "" {
				l.field.Export(l.opts.ExportPath, ts)
			}
		}

		if l.opts.DiagnosticsInterval > 0 && now > l.lastDiag+l.opts.DiagnosticsInterval {
			l.lastDiag = now
			busy = true
			l.field.PublishDiagnostics()
			l.rec.IncDiagnostics()
		}

		if l.cancel.IsSet() {
			return
		}

		if l.bus != nil {
			if topic, payload, ok := l.bus.Receive(); ok && topic != "" && payload != "" {
				busy = true
				outcome := l.dispatcher.Dispatch(topic, payload)
				l.rec.IncCommand(outcome.String())
			}
		}

		if l.opts.Once {
			l.cancel.Set()
			return
		}

		if !busy {
			l.idle()
		}
	}
}

func (l *Loop) idle() {
	if l.opts.Idle <= 0 {
		return
	}
	t := time.NewTimer(l.opts.Idle)
	defer t.Stop()
	select {
	case <-t.C:
	case <-l.cancel.Done():
	}
}

// close releases the field gateway, then the bus gateway. A failure
// releasing one never skips the other.
func (l *Loop) close() {
	l.release.Do(func() {
		if err := l.field.Close(); err != nil {
			l.log.Warn("Field release failed", logfields.Error(err))
		}
		if l.bus != nil {
			if err := l.bus.Close(); err != nil {
				l.log.Warn("Bus release failed", logfields.Error(err))
			}
		}
	})
}
