// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
	"unicode"
)

// Modbus protocol limits per read request.
const (
	maxBitsPerRead      = 2000
	maxRegistersPerRead = 125
)

// Validate checks device file correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil || len(cfg.Devices) == 0 {
		return fmt.Errorf("no devices configured")
	}

	seen := make(map[string]struct{})

	for _, d := range cfg.Devices {
		// ------------------------------------------------------------
		// DEVICE IDENTITY
		// ------------------------------------------------------------

		if d.Name == "" {
			return fmt.Errorf("device name required")
		}
		// Names become one topic level (MQTT) or one subject token (NATS).
		if strings.ContainsAny(d.Name, "/+#.*>") || strings.IndexFunc(d.Name, unicode.IsSpace) >= 0 {
			return fmt.Errorf("device %q: name must not contain '/', '+', '#', '.', '*', '>' or whitespace", d.Name)
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("device %q: duplicate name", d.Name)
		}
		seen[d.Name] = struct{}{}

		// ------------------------------------------------------------
		// TRANSPORT (exactly one)
		// ------------------------------------------------------------

		switch {
		case d.Endpoint == "" && d.Serial == nil:
			return fmt.Errorf("device %q: endpoint or serial required", d.Name)
		case d.Endpoint != "" && d.Serial != nil:
			return fmt.Errorf("device %q: endpoint and serial are exclusive", d.Name)
		case d.Serial != nil && d.Serial.Port == "":
			return fmt.Errorf("device %q: serial port required", d.Name)
		}
		if d.Serial != nil {
			switch strings.ToUpper(d.Serial.Parity) {
			case "", "N", "E", "O":
			default:
				return fmt.Errorf("device %q: parity must be N, E or O", d.Name)
			}
		}

		if len(d.Polls) == 0 {
			return fmt.Errorf("device %q: at least one poll required", d.Name)
		}

		refs := make(map[string]struct{})
		for _, p := range d.Polls {
			if err := validatePoll(d.Name, p, refs); err != nil {
				return err
			}
		}
	}

	return nil
}

// validatePoll checks one poll. names collects reference names across all
// polls of the device.
func validatePoll(device string, p PollConfig, names map[string]struct{}) error {
	bit := IsBitObject(p.ObjectType)

	switch p.ObjectType {
	case ObjectCoil, ObjectDiscreteInput, ObjectHoldingRegister, ObjectInputRegister:
	default:
		return fmt.Errorf("device %q: unknown object_type %q", device, p.ObjectType)
	}

	if p.Size == 0 {
		return fmt.Errorf("device %q: %s poll at %d has size 0", device, p.ObjectType, p.Start)
	}
	limit := uint16(maxRegistersPerRead)
	if bit {
		limit = maxBitsPerRead
	}
	if p.Size > limit {
		return fmt.Errorf("device %q: %s poll at %d exceeds %d items", device, p.ObjectType, p.Start, limit)
	}
	if int(p.Start)+int(p.Size) > 65536 {
		return fmt.Errorf("device %q: %s poll at %d runs past address space", device, p.ObjectType, p.Start)
	}

	end := int(p.Start) + int(p.Size) // exclusive

	for _, r := range p.Refs {
		if r.Name == "" {
			return fmt.Errorf("device %q: reference at %d has no name", device, r.Address)
		}
		if _, dup := names[r.Name]; dup {
			return fmt.Errorf("device %q: duplicate reference %q", device, r.Name)
		}
		names[r.Name] = struct{}{}

		switch r.Type {
		case "", TypeBool:
		case TypeInt16, TypeUint16, TypeInt32, TypeUint32, TypeFloat32, TypeString:
			if bit {
				return fmt.Errorf("device %q: reference %q: %s objects only carry bool", device, r.Name, p.ObjectType)
			}
		default:
			return fmt.Errorf("device %q: reference %q: unknown type %q", device, r.Name, r.Type)
		}
		if r.Type == TypeBool && !bit {
			return fmt.Errorf("device %q: reference %q: bool requires a bit object type", device, r.Name)
		}

		switch r.WordOrder {
		case "", WordOrderBig, WordOrderLittle:
		default:
			return fmt.Errorf("device %q: reference %q: word_order must be big or little", device, r.Name)
		}

		width := 1
		if !bit {
			width = int(r.RegisterWidth())
		}
		if int(r.Address) < int(p.Start) || int(r.Address)+width > end {
			return fmt.Errorf(
				"device %q: reference %q at %d (width %d) outside poll range %d-%d",
				device, r.Name, r.Address, width, p.Start, end-1,
			)
		}
	}

	return nil
}
