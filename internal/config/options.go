// internal/config/options.go
package config

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

// Bus kinds.
const (
	BusMQTT = "mqtt"
	BusNATS = "nats"
)

// Options is the runtime surface consumed by the scheduling loop and the
// gateways. It is filled from flags/env by the command.
type Options struct {
	DevicesPath string

	PollInterval        float64 // seconds, > 0
	DiagnosticsInterval float64 // seconds, 0 disables

	BusHost     string // empty disables the bus
	BusPort     int
	BusKind     string
	BusUser     string
	BusPass     string
	BusQoS      byte
	TopicPrefix string
	SingleTopic bool

	ExportPath string
	Timestamp  bool
	Once       bool

	Timeout     time.Duration // per Modbus request
	DeviceDelay time.Duration // pause between devices in one poll
	PrintTable  bool
	MetricsAddr string
}

// BusEnabled reports whether a bus connection is configured.
func (o Options) BusEnabled() bool { return o.BusHost != "" }

// ExportEnabled reports whether an export sink is configured.
func (o Options) ExportEnabled() bool { return o.ExportPath != "" }

// ExportIsSQLite selects the SQLite sink by file extension.
func (o Options) ExportIsSQLite() bool {
	switch strings.ToLower(filepath.Ext(o.ExportPath)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// ValidateOptions checks option correctness without mutating.
func ValidateOptions(o Options) error {
	var errs []error

	if o.DevicesPath == "" {
		errs = append(errs, errors.New("options: device file path required"))
	}
	if !(o.PollInterval > 0) {
		errs = append(errs, errors.New("options: poll interval must be > 0"))
	}
	if o.DiagnosticsInterval < 0 {
		errs = append(errs, errors.New("options: diagnostics interval must be >= 0"))
	}
	if o.BusEnabled() && o.BusKind != BusMQTT && o.BusKind != BusNATS {
		errs = append(errs, errors.New("options: bus kind must be mqtt or nats"))
	}
	if o.BusQoS > 2 {
		errs = append(errs, errors.New("options: bus qos must be 0, 1 or 2"))
	}
	if o.BusPort < 0 || o.BusPort > 65535 {
		errs = append(errs, errors.New("options: bus port out of range"))
	}
	if o.Timeout < 0 || o.DeviceDelay < 0 {
		errs = append(errs, errors.New("options: durations must be >= 0"))
	}

	return errors.Join(errs...)
}
