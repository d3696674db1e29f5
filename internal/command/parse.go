// internal/command/parse.go
package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Parse turns a JSON payload into a Command for device.
//
// object_type is checked first: an unknown kind yields ErrUnknownKind even
// when address or value are unusable.
func Parse(device, payload string) (Command, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var objectType string
	if err := decodeField(raw, "object_type", &objectType); err != nil {
		return Command{}, err
	}

	kind := Kind(objectType)
	switch kind {
	case KindCoil, KindHoldingRegister:
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownKind, objectType)
	}

	addr, err := integerField(raw, "address")
	if err != nil {
		return Command{}, err
	}
	if addr < 0 || addr > math.MaxUint16 {
		return Command{}, fmt.Errorf("%w: address %d out of range", ErrInvalid, addr)
	}

	value, err := valueField(raw, kind)
	if err != nil {
		return Command{}, err
	}

	return Command{
		Device:  device,
		Kind:    kind,
		Address: int(addr),
		Value:   value,
	}, nil
}

func decodeField(raw map[string]json.RawMessage, key string, dst any) error {
	msg, ok := raw[key]
	if !ok {
		return fmt.Errorf("%w: missing %q", ErrInvalid, key)
	}
	if err := json.Unmarshal(msg, dst); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalid, key, err)
	}
	return nil
}

func integerField(raw map[string]json.RawMessage, key string) (int64, error) {
	msg, ok := raw[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrInvalid, key)
	}
	n, ok := asInteger(msg)
	if !ok {
		return 0, fmt.Errorf("%w: %q must be an integer", ErrInvalid, key)
	}
	return n, nil
}

// valueField accepts booleans for coils only. Register values must fit
// a 16-bit register, signed or unsigned.
func valueField(raw map[string]json.RawMessage, kind Kind) (int, error) {
	msg, ok := raw["value"]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrInvalid, "value")
	}

	if kind == KindCoil {
		var b bool
		if err := json.Unmarshal(msg, &b); err == nil {
			if b {
				return 1, nil
			}
			return 0, nil
		}
	}

	n, ok := asInteger(msg)
	if !ok {
		return 0, fmt.Errorf("%w: %q must be an integer for %s", ErrInvalid, "value", kind)
	}
	if kind == KindHoldingRegister && (n < math.MinInt16 || n > math.MaxUint16) {
		return 0, fmt.Errorf("%w: register value %d out of range", ErrInvalid, n)
	}
	return int(n), nil
}

func asInteger(msg json.RawMessage) (int64, bool) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	n, err := num.Int64()
	if err != nil {
		return 0, false
	}
	return n, true
}
