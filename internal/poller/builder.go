// internal/poller/builder.go
package poller

import (
	"fmt"

	cfg "github.com/tamzrod/modbus-bridge/internal/config"
)

// FunctionCode maps a config object type to its Modbus read function.
func FunctionCode(objectType string) (uint8, error) {
	switch objectType {
	case cfg.ObjectCoil:
		return 1, nil
	case cfg.ObjectDiscreteInput:
		return 2, nil
	case cfg.ObjectHoldingRegister:
		return 3, nil
	case cfg.ObjectInputRegister:
		return 4, nil
	default:
		return 0, fmt.Errorf("poller: unknown object type %q", objectType)
	}
}

// Build constructs a Poller for one device over an already connected client.
// Assumes config has already passed validation and normalization.
func Build(d cfg.DeviceConfig, client Client) (*Poller, error) {
	reads := make([]ReadBlock, 0, len(d.Polls))
	for _, p := range d.Polls {
		fc, err := FunctionCode(p.ObjectType)
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", d.Name, err)
		}

		rb := ReadBlock{
			ObjectType: p.ObjectType,
			FC:         fc,
			Address:    p.Start,
			Quantity:   p.Size,
		}
		for _, r := range p.Refs {
			rb.Refs = append(rb.Refs, Ref{
				Name:      r.Name,
				Address:   r.Address,
				Type:      r.Type,
				Length:    r.Length,
				Scale:     r.Scale,
				WordOrder: r.WordOrder,
			})
		}
		reads = append(reads, rb)
	}

	return New(Config{Device: d.Name, Reads: reads}, client)
}
