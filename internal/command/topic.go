// internal/command/topic.go
package command

import "strings"

// SetSuffix terminates every inbound write topic.
const SetSuffix = "/set"

// Matcher extracts the device name from "<prefix><device>/set".
type Matcher struct {
	Prefix string
}

// Match returns the captured device name. The capture must be non-empty
// and must not contain a path separator or a newline.
func (m Matcher) Match(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, m.Prefix)
	if !ok {
		return "", false
	}
	device, ok := strings.CutSuffix(rest, SetSuffix)
	if !ok || device == "" {
		return "", false
	}
	if strings.ContainsAny(device, "/\n") {
		return "", false
	}
	return device, true
}

// Topic builds the write topic for a device.
func (m Matcher) Topic(device string) string {
	return m.Prefix + device + SetSuffix
}
