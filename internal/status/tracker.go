// internal/status/tracker.go
package status

import (
	"errors"
	"time"

	"github.com/goburrow/modbus"
)

// Tracker owns the health state of one device.
// It is driven only from the scheduling loop's goroutine.
type Tracker struct {
	snap       Snapshot
	errorSince time.Time
}

// NewTracker starts in the unknown state.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// ObservePoll records one poll cycle outcome.
func (t *Tracker) ObservePoll(at time.Time, err error) {
	t.snap.PollsTotal++
	t.snap.LastPollAt = at

	if err == nil {
		// Recovery / OK
		t.snap.Health = HealthOK
		t.snap.LastErrorCode = 0
		t.snap.LastError = ""
		t.errorSince = time.Time{}
		return
	}

	t.snap.PollsFailed++
	if t.snap.Health != HealthError {
		t.errorSince = at
	}
	t.snap.Health = HealthError
	t.snap.LastErrorCode = ErrorCode(err)
	t.snap.LastError = err.Error()
}

// ObserveWrite records one write outcome. Writes do not change health.
func (t *Tracker) ObserveWrite(err error) {
	t.snap.WritesTotal++
	if err != nil {
		t.snap.WritesFailed++
	}
}

// Snapshot returns the state as of now.
func (t *Tracker) Snapshot(now time.Time) Snapshot {
	s := t.snap
	if s.Health == HealthError && !t.errorSince.IsZero() {
		secs := now.Sub(t.errorSince) / time.Second
		switch {
		case secs < 0:
			s.SecondsInError = 0
		case secs > MaxSecondsInError:
			s.SecondsInError = MaxSecondsInError
		default:
			s.SecondsInError = uint16(secs)
		}
	}
	return s
}

// ErrorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// Modbus exceptions yield their exception code. Otherwise returns 1 (generic error).
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	var mbErr *modbus.ModbusError
	if errors.As(err, &mbErr) {
		return uint16(mbErr.ExceptionCode)
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}

	return 1
}
