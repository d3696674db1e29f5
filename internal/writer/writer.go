// internal/writer/writer.go
package writer

import (
	"fmt"
	"math"
)

type writerImpl struct {
	clients map[string]DeviceClient
}

// New builds a writer over one client per device name.
func New(clients map[string]DeviceClient) Writer {
	return &writerImpl{clients: clients}
}

// WriteCoil switches a coil; any non-zero value means on.
func (w *writerImpl) WriteCoil(device string, address int, value int) error {
	cli, addr, err := w.target(device, address)
	if err != nil {
		return err
	}
	if err := cli.WriteCoil(addr, value != 0); err != nil {
		return fmt.Errorf("writer: device=%s coil=%d: %w", device, addr, err)
	}
	return nil
}

// WriteRegister writes a holding register. Negative values are written
// as their 16-bit two's complement.
func (w *writerImpl) WriteRegister(device string, address int, value int) error {
	cli, addr, err := w.target(device, address)
	if err != nil {
		return err
	}
	if value < math.MinInt16 || value > math.MaxUint16 {
		return fmt.Errorf("writer: device=%s register=%d: value %d out of range", device, addr, value)
	}

	reg := uint16(value)
	if value < 0 {
		reg = uint16(int16(value))
	}

	if err := cli.WriteRegister(addr, reg); err != nil {
		return fmt.Errorf("writer: device=%s register=%d: %w", device, addr, err)
	}
	return nil
}

func (w *writerImpl) target(device string, address int) (DeviceClient, uint16, error) {
	cli := w.clients[device]
	if cli == nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownDevice, device)
	}
	if address < 0 || address > math.MaxUint16 {
		return nil, 0, fmt.Errorf("writer: device=%s address %d out of range", device, address)
	}
	return cli, uint16(address), nil
}
