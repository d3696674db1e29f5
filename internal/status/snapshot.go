// internal/status/snapshot.go
package status

import "time"

// Snapshot represents exactly what a diagnostics publish delivers for one device.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	LastError      string
	SecondsInError uint16

	PollsTotal   uint64
	PollsFailed  uint64
	WritesTotal  uint64
	WritesFailed uint64

	LastPollAt time.Time
}
