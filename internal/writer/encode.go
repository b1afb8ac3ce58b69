// internal/writer/encode.go
package writer

import (
	"fmt"
	"math"
)

// Encoding is how one value is laid out in holding registers.
// Multi-register values are big-endian: high word at the lowest address.
type Encoding string

const (
	Int16   Encoding = "int16"
	Int32   Encoding = "int32"
	Float32 Encoding = "float32"
	Float64 Encoding = "float64"
)

// ParseEncoding validates a config encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(s); e {
	case Int16, Int32, Float32, Float64:
		return e, nil
	default:
		return "", fmt.Errorf("writer: unknown encoding %q", s)
	}
}

// Width returns the register count of e.
func (e Encoding) Width() int {
	switch e {
	case Int16:
		return 1
	case Int32, Float32:
		return 2
	case Float64:
		return 4
	default:
		return 0
	}
}

// EncodeValue converts v to registers. Integer encodings round and clamp.
func EncodeValue(e Encoding, v float64) ([]uint16, error) {
	switch e {
	case Int16:
		return []uint16{uint16(int16(clamp(math.Round(v), math.MinInt16, math.MaxInt16)))}, nil
	case Int32:
		u := uint32(int32(clamp(math.Round(v), math.MinInt32, math.MaxInt32)))
		return []uint16{uint16(u >> 16), uint16(u)}, nil
	case Float32:
		u := math.Float32bits(float32(v))
		return []uint16{uint16(u >> 16), uint16(u)}, nil
	case Float64:
		u := math.Float64bits(v)
		return []uint16{uint16(u >> 48), uint16(u >> 32), uint16(u >> 16), uint16(u)}, nil
	default:
		return nil, fmt.Errorf("writer: unknown encoding %q", e)
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
