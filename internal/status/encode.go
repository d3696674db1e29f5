// internal/status/encode.go
package status

import (
	"encoding/json"
	"time"
)

// Diagnostics is the wire form of a Snapshot.
type Diagnostics struct {
	Device         string `json:"device"`
	Health         string `json:"health"`
	HealthCode     uint16 `json:"health_code"`
	LastErrorCode  uint16 `json:"last_error_code"`
	LastError      string `json:"last_error,omitempty"`
	SecondsInError uint16 `json:"seconds_in_error"`
	PollsTotal     uint64 `json:"polls_total"`
	PollsFailed    uint64 `json:"polls_failed"`
	WritesTotal    uint64 `json:"writes_total"`
	WritesFailed   uint64 `json:"writes_failed"`
	LastPollMs     int64  `json:"last_poll_ms,omitempty"`
	TimestampMs    int64  `json:"timestamp_ms"`
}

// Encode converts a Snapshot into a diagnostics payload.
// No IO. No side effects.
func Encode(device string, s Snapshot, now time.Time) ([]byte, error) {
	d := Diagnostics{
		Device:         device,
		Health:         HealthName(s.Health),
		HealthCode:     s.Health,
		LastErrorCode:  s.LastErrorCode,
		LastError:      s.LastError,
		SecondsInError: s.SecondsInError,
		PollsTotal:     s.PollsTotal,
		PollsFailed:    s.PollsFailed,
		WritesTotal:    s.WritesTotal,
		WritesFailed:   s.WritesFailed,
		TimestampMs:    now.UnixMilli(),
	}
	if !s.LastPollAt.IsZero() {
		d.LastPollMs = s.LastPollAt.UnixMilli()
	}
	return json.Marshal(d)
}
