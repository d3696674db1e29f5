// internal/field/connector.go
package field

import (
	"errors"
	"time"

	cfg "github.com/tamzrod/modbus-bridge/internal/config"
	"github.com/tamzrod/modbus-bridge/internal/modbus"
	"github.com/tamzrod/modbus-bridge/internal/poller"
	"github.com/tamzrod/modbus-bridge/internal/writer"
)

// DeviceConn is what one device needs from the transport.
type DeviceConn interface {
	poller.Client
	writer.DeviceClient
}

// Connector hands out device connections and owns the transports behind them.
type Connector interface {
	Connect(d cfg.DeviceConfig) (DeviceConn, error)
	Close() error
}

// modbusConnector shares one transport per TCP endpoint or serial port.
type modbusConnector struct {
	timeout time.Duration
	pool    map[string]*modbus.Client
	order   []*modbus.Client
}

// NewModbusConnector returns the production connector.
func NewModbusConnector(timeout time.Duration) Connector {
	return &modbusConnector{timeout: timeout, pool: make(map[string]*modbus.Client)}
}

func (c *modbusConnector) Connect(d cfg.DeviceConfig) (DeviceConn, error) {
	key := d.Endpoint
	if d.Serial != nil {
		key = "serial:" + d.Serial.Port
	}

	if cli, ok := c.pool[key]; ok {
		return cli.Unit(d.UnitID), nil
	}

	var (
		cli *modbus.Client
		err error
	)
	if d.Serial != nil {
		cli, err = modbus.NewRTU(modbus.RTUConfig{
			Port:     d.Serial.Port,
			BaudRate: d.Serial.BaudRate,
			DataBits: d.Serial.DataBits,
			Parity:   d.Serial.Parity,
			StopBits: d.Serial.StopBits,
			Timeout:  c.timeout,
		})
	} else {
		cli, err = modbus.NewTCP(modbus.TCPConfig{Endpoint: d.Endpoint, Timeout: c.timeout})
	}
	if err != nil {
		return nil, err
	}

	c.pool[key] = cli
	c.order = append(c.order, cli)
	return cli.Unit(d.UnitID), nil
}

// Close closes every transport, continuing past failures.
func (c *modbusConnector) Close() error {
	var errs []error
	for _, cli := range c.order {
		if err := cli.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.order = nil
	c.pool = make(map[string]*modbus.Client)
	return errors.Join(errs...)
}
