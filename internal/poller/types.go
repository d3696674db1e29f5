// internal/poller/types.go
package poller

import "time"

// Ref is one named value decoded out of a read block.
type Ref struct {
	Name      string
	Address   uint16
	Type      string
	Length    uint16 // registers, string type only
	Scale     float64
	WordOrder string
}

// ReadBlock describes one Modbus read geometry and the refs inside it.
type ReadBlock struct {
	ObjectType string
	FC         uint8
	Address    uint16
	Quantity   uint16
	Refs       []Ref
}

// BlockResult is the raw result of a single read.
type BlockResult struct {
	FC       uint8
	Address  uint16
	Quantity uint16

	// Exactly one of these is used depending on FC.
	Bits      []bool   // FC 1,2
	Registers []uint16 // FC 3,4
}

// Value is a decoded reference.
// Value holds bool, int64, uint64, float64 or string.
type Value struct {
	Name       string
	ObjectType string
	Address    uint16
	Value      any
}

// PollResult is a snapshot produced by one poll cycle of one device.
type PollResult struct {
	Device   string
	At       time.Time
	Duration time.Duration

	Blocks []BlockResult
	Values []Value
	Err    error // non-nil means the poll cycle failed
}
