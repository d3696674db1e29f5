// internal/command/command.go
package command

import "errors"

// Kind is the addressable object a write command targets.
type Kind string

const (
	KindCoil            Kind = "coil"
	KindHoldingRegister Kind = "holding_register"
)

// Command is one parsed write request. It is transient: built from a
// single (topic, payload) pair and consumed immediately.
type Command struct {
	Device  string
	Kind    Kind
	Address int
	Value   int
}

var (
	// ErrMalformed means the payload is not valid JSON text.
	ErrMalformed = errors.New("command: malformed json payload")
	// ErrInvalid means the JSON parsed but a required key is missing or has the wrong type.
	ErrInvalid = errors.New("command: invalid payload")
	// ErrUnknownKind means object_type is outside the known set.
	ErrUnknownKind = errors.New("command: unknown object_type")
)
