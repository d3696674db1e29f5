// internal/logfields/logfields.go
package logfields

import "log/slog"

// Canonical log keys shared by the loop and the gateways.
const (
	KeyDevice     = "device"
	KeyTopic      = "topic"
	KeyAddress    = "address"
	KeyObjectType = "object_type"
	KeyPayload    = "payload"
	KeyElapsed    = "elapsed"
	KeyRate       = "rate"
	KeyError      = "error"
)

func Device(name string) slog.Attr      { return slog.String(KeyDevice, name) }
func Topic(t string) slog.Attr          { return slog.String(KeyTopic, t) }
func Address(a int) slog.Attr           { return slog.Int(KeyAddress, a) }
func ObjectType(k string) slog.Attr     { return slog.String(KeyObjectType, k) }
func Payload(p string) slog.Attr        { return slog.String(KeyPayload, p) }
func Elapsed(seconds float64) slog.Attr { return slog.Float64(KeyElapsed, seconds) }
func Rate(seconds float64) slog.Attr    { return slog.Float64(KeyRate, seconds) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
