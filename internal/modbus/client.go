// internal/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Client is one connection (TCP endpoint or serial port) shared by every
// device behind it. It serializes requests because it mutates SlaveId per
// request.
type Client struct {
	mu      sync.Mutex
	name    string
	closer  func() error
	setUnit func(uint8)
	client  modbus.Client
}

type TCPConfig struct {
	Endpoint string
	Timeout  time.Duration
}

type RTUConfig struct {
	Port     string
	BaudRate int
	DataBits int
	Parity   string
	StopBits int
	Timeout  time.Duration
}

// NewTCP creates a connected Modbus TCP client.
func NewTCP(cfg TCPConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus client: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus client: connect %s: %w", cfg.Endpoint, err)
	}

	return &Client{
		name:    cfg.Endpoint,
		closer:  h.Close,
		setUnit: func(id uint8) { h.SlaveId = id },
		client:  modbus.NewClient(h),
	}, nil
}

// NewRTU creates a connected Modbus RTU client on a serial port.
func NewRTU(cfg RTUConfig) (*Client, error) {
	if cfg.Port == "" {
		return nil, errors.New("modbus client: serial port required")
	}

	h := modbus.NewRTUClientHandler(cfg.Port)
	h.BaudRate = cfg.BaudRate
	h.DataBits = cfg.DataBits
	h.Parity = cfg.Parity
	h.StopBits = cfg.StopBits
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus client: open %s: %w", cfg.Port, err)
	}

	return &Client{
		name:    cfg.Port,
		closer:  h.Close,
		setUnit: func(id uint8) { h.SlaveId = id },
		client:  modbus.NewClient(h),
	}, nil
}

// Name is the endpoint or serial port this client talks to.
func (c *Client) Name() string { return c.name }

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closer()
}

// Unit binds the client to one slave id.
func (c *Client) Unit(id uint8) *Unit {
	return &Unit{c: c, id: id}
}

// Unit is a Client view for a single device.
type Unit struct {
	c  *Client
	id uint8
}

// ---- reads ----

func (u *Unit) ReadCoils(addr, qty uint16) ([]bool, error) {
	raw, err := u.do(func(m modbus.Client) ([]byte, error) { return m.ReadCoils(addr, qty) })
	if err != nil {
		return nil, err
	}
	return unpackBits(raw, int(qty)), nil
}

func (u *Unit) ReadDiscreteInputs(addr, qty uint16) ([]bool, error) {
	raw, err := u.do(func(m modbus.Client) ([]byte, error) { return m.ReadDiscreteInputs(addr, qty) })
	if err != nil {
		return nil, err
	}
	return unpackBits(raw, int(qty)), nil
}

func (u *Unit) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	raw, err := u.do(func(m modbus.Client) ([]byte, error) { return m.ReadHoldingRegisters(addr, qty) })
	if err != nil {
		return nil, err
	}
	return unpackRegisters(raw, int(qty))
}

func (u *Unit) ReadInputRegisters(addr, qty uint16) ([]uint16, error) {
	raw, err := u.do(func(m modbus.Client) ([]byte, error) { return m.ReadInputRegisters(addr, qty) })
	if err != nil {
		return nil, err
	}
	return unpackRegisters(raw, int(qty))
}

// ---- writes ----

// WriteCoil writes a single coil (FC 5).
func (u *Unit) WriteCoil(addr uint16, on bool) error {
	v := uint16(0x0000)
	if on {
		v = 0xFF00
	}
	_, err := u.do(func(m modbus.Client) ([]byte, error) { return m.WriteSingleCoil(addr, v) })
	return err
}

// WriteRegister writes a single holding register (FC 6).
func (u *Unit) WriteRegister(addr, value uint16) error {
	_, err := u.do(func(m modbus.Client) ([]byte, error) { return m.WriteSingleRegister(addr, value) })
	return err
}

func (u *Unit) do(fn func(modbus.Client) ([]byte, error)) ([]byte, error) {
	if u == nil || u.c == nil || u.c.client == nil {
		return nil, errors.New("modbus client: not connected")
	}
	u.c.mu.Lock()
	defer u.c.mu.Unlock()

	u.c.setUnit(u.id)
	return fn(u.c.client)
}

// ---- helpers (pure geometry) ----

func unpackBits(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		byteIdx := i / 8
		bitIdx := i % 8
		if byteIdx >= len(data) {
			out[i] = false
			continue
		}
		out[i] = (data[byteIdx]&(1<<bitIdx) != 0)
	}
	return out
}

func unpackRegisters(data []byte, want int) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, errors.New("modbus: read-registers byte count not even")
	}
	n := len(data) / 2
	if n < want {
		return nil, fmt.Errorf("modbus: short read-registers payload: got=%d want=%d", n, want)
	}
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out, nil
}
