// internal/poller/decode.go
package poller

import (
	"fmt"
	"math"
	"strings"

	cfg "github.com/tamzrod/modbus-bridge/internal/config"
)

func decodeAll(reads []ReadBlock, blocks []BlockResult) ([]Value, error) {
	var out []Value
	for i, rb := range reads {
		b := blocks[i]
		for _, r := range rb.Refs {
			v, err := decodeRef(r, b)
			if err != nil {
				return nil, fmt.Errorf("poller: ref %q: %w", r.Name, err)
			}
			out = append(out, Value{
				Name:       r.Name,
				ObjectType: rb.ObjectType,
				Address:    r.Address,
				Value:      v,
			})
		}
	}
	return out, nil
}

func decodeRef(r Ref, b BlockResult) (any, error) {
	if r.Address < b.Address {
		return nil, fmt.Errorf("address %d before block start %d", r.Address, b.Address)
	}
	off := int(r.Address - b.Address)

	if b.Bits != nil {
		if off >= len(b.Bits) {
			return nil, fmt.Errorf("address %d outside block", r.Address)
		}
		return b.Bits[off], nil
	}

	width := 1
	switch r.Type {
	case cfg.TypeInt32, cfg.TypeUint32, cfg.TypeFloat32:
		width = 2
	case cfg.TypeString:
		width = max(int(r.Length), 1)
	}
	if off+width > len(b.Registers) {
		return nil, fmt.Errorf("address %d width %d outside block", r.Address, width)
	}
	regs := b.Registers[off : off+width]

	switch r.Type {
	case cfg.TypeInt16:
		return scaled(int64(int16(regs[0])), r.Scale), nil
	case cfg.TypeUint16, "":
		return scaledU(uint64(regs[0]), r.Scale), nil
	case cfg.TypeInt32:
		return scaled(int64(int32(join32(regs, r.WordOrder))), r.Scale), nil
	case cfg.TypeUint32:
		return scaledU(uint64(join32(regs, r.WordOrder)), r.Scale), nil
	case cfg.TypeFloat32:
		f := float64(math.Float32frombits(join32(regs, r.WordOrder)))
		if r.Scale != 0 && r.Scale != 1 {
			f *= r.Scale
		}
		return f, nil
	case cfg.TypeString:
		return decodeString(regs), nil
	default:
		return nil, fmt.Errorf("unsupported type %q", r.Type)
	}
}

// join32 combines two registers. "big" word order means the first
// register holds the high word.
func join32(regs []uint16, wordOrder string) uint32 {
	hi, lo := regs[0], regs[1]
	if wordOrder == cfg.WordOrderLittle {
		hi, lo = lo, hi
	}
	return uint32(hi)<<16 | uint32(lo)
}

func scaled(v int64, scale float64) any {
	if scale == 0 || scale == 1 {
		return v
	}
	return float64(v) * scale
}

func scaledU(v uint64, scale float64) any {
	if scale == 0 || scale == 1 {
		return v
	}
	return float64(v) * scale
}

// decodeString unpacks two ASCII bytes per register, big-endian, and
// trims trailing padding.
func decodeString(regs []uint16) string {
	b := make([]byte, 0, len(regs)*2)
	for _, r := range regs {
		b = append(b, byte(r>>8), byte(r))
	}
	return strings.TrimRight(string(b), "\x00 ")
}
