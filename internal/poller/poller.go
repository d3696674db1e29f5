// internal/poller/poller.go
package poller

import (
	"errors"
	"fmt"
	"time"
)

// Client abstracts Modbus operations needed by the poller.
// The poller depends on geometry only.
type Client interface {
	ReadCoils(addr, qty uint16) ([]bool, error)              // FC 1
	ReadDiscreteInputs(addr, qty uint16) ([]bool, error)     // FC 2
	ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) // FC 3
	ReadInputRegisters(addr, qty uint16) ([]uint16, error)   // FC 4
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	Device string
	Reads  []ReadBlock
}

// Poller reads every block of one device on demand.
type Poller struct {
	cfg    Config
	client Client
	now    func() time.Time
}

// New creates a poller with immutable config.
func New(cfg Config, client Client) (*Poller, error) {
	if cfg.Device == "" {
		return nil, errors.New("poller: device name required")
	}
	if len(cfg.Reads) == 0 {
		return nil, errors.New("poller: at least one read block required")
	}
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	return &Poller{cfg: cfg, client: client, now: time.Now}, nil
}

// Device returns the device name.
func (p *Poller) Device() string { return p.cfg.Device }

// Reads returns the configured read blocks.
func (p *Poller) Reads() []ReadBlock { return p.cfg.Reads }

// PollOnce performs exactly one poll cycle.
// All-or-nothing: any failure aborts the cycle.
func (p *Poller) PollOnce() (res PollResult) {
	start := p.now()
	res.Device = p.cfg.Device
	defer func() {
		res.At = p.now()
		res.Duration = res.At.Sub(start)
	}()

	var blocks []BlockResult

	for _, rb := range p.cfg.Reads {
		b := BlockResult{FC: rb.FC, Address: rb.Address, Quantity: rb.Quantity}
		var err error

		switch rb.FC {
		case 1:
			b.Bits, err = p.client.ReadCoils(rb.Address, rb.Quantity)
		case 2:
			b.Bits, err = p.client.ReadDiscreteInputs(rb.Address, rb.Quantity)
		case 3:
			b.Registers, err = p.client.ReadHoldingRegisters(rb.Address, rb.Quantity)
		case 4:
			b.Registers, err = p.client.ReadInputRegisters(rb.Address, rb.Quantity)
		default:
			err = fmt.Errorf("poller: unsupported function code %d", rb.FC)
		}
		if err != nil {
			res.Err = fmt.Errorf("%s at %d: %w", rb.ObjectType, rb.Address, err)
			return res
		}
		blocks = append(blocks, b)
	}

	values, err := decodeAll(p.cfg.Reads, blocks)
	if err != nil {
		res.Err = err
		return res
	}

	// Commit only if all reads succeeded
	res.Blocks = blocks
	res.Values = values
	return res
}
