// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the device file: which devices to poll and what to decode.
type Config struct {
	Devices []DeviceConfig `yaml:"devices"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Name     string        `yaml:"name"`
	Endpoint string        `yaml:"endpoint"` // Modbus TCP host:port
	Serial   *SerialConfig `yaml:"serial"`   // Modbus RTU (exclusive with endpoint)
	UnitID   uint8         `yaml:"unit_id"`
	Polls    []PollConfig  `yaml:"polls"`
}

// ---- SERIAL ----

type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"` // N, E, O
	StopBits int    `yaml:"stop_bits"`
}

// ---- READ GEOMETRY ----

// Object types, named as on the bus.
const (
	ObjectCoil            = "coil"
	ObjectDiscreteInput   = "discrete_input"
	ObjectHoldingRegister = "holding_register"
	ObjectInputRegister   = "input_register"
)

type PollConfig struct {
	ObjectType string      `yaml:"object_type"`
	Start      uint16      `yaml:"start"`
	Size       uint16      `yaml:"size"`
	Refs       []RefConfig `yaml:"refs"`
}

// ---- REFERENCE ----

// Reference data types.
const (
	TypeBool    = "bool"
	TypeInt16   = "int16"
	TypeUint16  = "uint16"
	TypeInt32   = "int32"
	TypeUint32  = "uint32"
	TypeFloat32 = "float32"
	TypeString  = "string"
)

// Word orders for multi-register values.
const (
	WordOrderBig    = "big"
	WordOrderLittle = "little"
)

type RefConfig struct {
	Name      string  `yaml:"name"`
	Address   uint16  `yaml:"address"`
	Type      string  `yaml:"type"`
	Length    uint16  `yaml:"length"` // registers, string type only
	Scale     float64 `yaml:"scale"`
	WordOrder string  `yaml:"word_order"`
}

// Load reads and decodes a device file. It does not validate.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read device file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("decode device file %s: %w", path, err)
	}
	return &cfg, nil
}

// IsBitObject reports whether an object type reads single bits.
func IsBitObject(objectType string) bool {
	return objectType == ObjectCoil || objectType == ObjectDiscreteInput
}

// RegisterWidth is the number of 16-bit registers a reference occupies.
func (r RefConfig) RegisterWidth() uint16 {
	switch r.Type {
	case TypeInt32, TypeUint32, TypeFloat32:
		return 2
	case TypeString:
		if r.Length == 0 {
			return 1
		}
		return r.Length
	default:
		return 1
	}
}
