// internal/command/dispatcher.go
package command

import (
	"errors"
	"log/slog"

	"github.com/tamzrod/modbus-bridge/internal/logfields"
)

// Writer is the field-side write surface the dispatcher drives.
type Writer interface {
	WriteCoil(device string, address int, value int) bool
	WriteRegister(device string, address int, value int) bool
}

// Outcome tells the caller what happened to one inbound message.
type Outcome int

const (
	OutcomeDispatched Outcome = iota
	OutcomeNoMatch
	OutcomeMalformed
	OutcomeInvalid
	OutcomeUnknownKind
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDispatched:
		return "dispatched"
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeUnknownKind:
		return "unknown_kind"
	default:
		return "unknown"
	}
}

// Dispatcher turns one (topic, payload) pair into zero or one write call.
// It never touches the bus or the schedule.
type Dispatcher struct {
	matcher Matcher
	writer  Writer
	log     *slog.Logger
}

func NewDispatcher(prefix string, w Writer, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		matcher: Matcher{Prefix: prefix},
		writer:  w,
		log:     log,
	}
}

// Dispatch handles one inbound message.
//
// Topic mismatches and unknown object types are dropped without logging.
// Malformed or structurally invalid payloads are logged at warning level
// and dropped.
func (d *Dispatcher) Dispatch(topic, payload string) Outcome {
	device, ok := d.matcher.Match(topic)
	if !ok {
		return OutcomeNoMatch
	}

	cmd, err := Parse(device, payload)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnknownKind):
		return OutcomeUnknownKind
	case errors.Is(err, ErrMalformed):
		d.log.Warn("Fail to parse json message", logfields.Topic(topic), logfields.Payload(payload))
		return OutcomeMalformed
	default:
		d.log.Warn("Rejected write command",
			logfields.Topic(topic),
			logfields.Payload(payload),
			logfields.Error(err))
		return OutcomeInvalid
	}

	var accepted bool
	switch cmd.Kind {
	case KindCoil:
		accepted = d.writer.WriteCoil(cmd.Device, cmd.Address, cmd.Value)
	case KindHoldingRegister:
		accepted = d.writer.WriteRegister(cmd.Device, cmd.Address, cmd.Value)
	}

	d.log.Debug("Write command dispatched",
		logfields.Device(cmd.Device),
		logfields.ObjectType(string(cmd.Kind)),
		logfields.Address(cmd.Address),
		slog.Int("value", cmd.Value),
		slog.Bool("accepted", accepted))

	return OutcomeDispatched
}
