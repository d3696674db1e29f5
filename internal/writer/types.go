// internal/writer/types.go
package writer

import "errors"

// ErrUnknownDevice means no device with that name is configured.
var ErrUnknownDevice = errors.New("writer: unknown device")

// DeviceClient is the exact contract the writer uses per device.
type DeviceClient interface {
	WriteCoil(addr uint16, on bool) error
	WriteRegister(addr, value uint16) error
}

// Writer delivers single-object writes to named devices.
type Writer interface {
	WriteCoil(device string, address int, value int) error
	WriteRegister(device string, address int, value int) error
}
