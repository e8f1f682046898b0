// Package layout holds the memory-layout contract shared by host code and
// the compute kernels. Every record crossing the host/device boundary is
// described here once, and both sides read the same bytes the same way.
package layout

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Element sizes in bytes
const (
	ElementSize     = 4  // one f32 sample
	ConfigSize      = 4  // Config record
	DataElementSize = 8  // DataElement record
	UniformAlign    = 16 // uniform buffers are allocated in multiples of this
)

// Role tags a device buffer with what it carries
type Role int

const (
	RoleInput Role = iota
	RoleOutput
	RoleUniform
	RoleStaging
)

func (r Role) String() string {
	switch r {
	case RoleInput:
		return "input"
	case RoleOutput:
		return "output"
	case RoleUniform:
		return "uniform"
	case RoleStaging:
		return "staging"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Stride returns the element stride a buffer of this role is measured in.
func (r Role) Stride() int {
	if r == RoleUniform {
		return ConfigSize
	}
	return ElementSize
}

// Config is the uniform record read by the beamforming kernel.
// Matches `struct BeamformingConfig { speed_of_sound: f32 }` in WGSL.
type Config struct {
	SpeedOfSound float32
}

// Bytes encodes the config padded to the uniform alignment.
func (c Config) Bytes() []byte {
	out := make([]byte, UniformAlign)
	binary.LittleEndian.PutUint32(out[0:4], math.Float32bits(c.SpeedOfSound))
	return out
}

// DataElement is one record of the element-wise multiply kernel.
type DataElement struct {
	Value      float32
	Multiplier float32
}

// Field is one named member of a record
type Field struct {
	Name   string
	Offset int
	Size   int
}

// Descriptor describes a record: its stride and field order.
type Descriptor struct {
	Name   string
	Stride int
	Fields []Field
}

var (
	InputSample = Descriptor{
		Name:   "InputSample",
		Stride: ElementSize,
		Fields: []Field{{Name: "value", Offset: 0, Size: 4}},
	}
	OutputSample = Descriptor{
		Name:   "OutputSample",
		Stride: ElementSize,
		Fields: []Field{{Name: "value", Offset: 0, Size: 4}},
	}
	ConfigRecord = Descriptor{
		Name:   "Config",
		Stride: ConfigSize,
		Fields: []Field{{Name: "speed_of_sound", Offset: 0, Size: 4}},
	}
	DataElementRecord = Descriptor{
		Name:   "DataElement",
		Stride: DataElementSize,
		Fields: []Field{
			{Name: "value", Offset: 0, Size: 4},
			{Name: "multiplier", Offset: 4, Size: 4},
		},
	}
)

// Validate checks that fields are naturally aligned, in order, and cover
// the stride with no padding.
func (d Descriptor) Validate() error {
	if d.Stride <= 0 {
		return fmt.Errorf("layout %s: stride %d must be positive", d.Name, d.Stride)
	}
	next := 0
	for _, f := range d.Fields {
		if f.Size <= 0 {
			return fmt.Errorf("layout %s: field %s has size %d", d.Name, f.Name, f.Size)
		}
		if f.Offset%f.Size != 0 {
			return fmt.Errorf("layout %s: field %s at offset %d is not %d-byte aligned", d.Name, f.Name, f.Offset, f.Size)
		}
		if f.Offset != next {
			return fmt.Errorf("layout %s: field %s at offset %d, expected %d", d.Name, f.Name, f.Offset, next)
		}
		next = f.Offset + f.Size
	}
	if next != d.Stride {
		return fmt.Errorf("layout %s: fields cover %d bytes, stride is %d", d.Name, next, d.Stride)
	}
	return nil
}

// EncodeFloats packs samples tightly, little-endian.
func EncodeFloats(v []float32) []byte {
	out := make([]byte, len(v)*ElementSize)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*ElementSize:], math.Float32bits(f))
	}
	return out
}

// DecodeFloats is the inverse of EncodeFloats.
func DecodeFloats(b []byte) ([]float32, error) {
	if len(b)%ElementSize != 0 {
		return nil, fmt.Errorf("layout: %d bytes is not a whole number of samples", len(b))
	}
	out := make([]float32, len(b)/ElementSize)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*ElementSize:]))
	}
	return out, nil
}

// EncodeElements packs DataElement records in field order.
func EncodeElements(v []DataElement) []byte {
	out := make([]byte, len(v)*DataElementSize)
	for i, e := range v {
		off := i * DataElementSize
		binary.LittleEndian.PutUint32(out[off:], math.Float32bits(e.Value))
		binary.LittleEndian.PutUint32(out[off+4:], math.Float32bits(e.Multiplier))
	}
	return out
}
