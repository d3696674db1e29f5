// internal/status/constants.go
package status

// Health codes published in diagnostics.
// These values are part of the bus contract and MUST NOT be configurable.

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy device.
const HealthOK uint16 = 1

// HealthError represents a device error state.
const HealthError uint16 = 2

// MaxSecondsInError caps seconds_in_error; it MUST NOT wrap.
const MaxSecondsInError = 65535

// HealthName is the human label for a health code.
func HealthName(h uint16) string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	default:
		return "unknown"
	}
}
