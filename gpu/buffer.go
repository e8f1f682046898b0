package gpu

import (
	"fmt"
	"strings"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/openfluke/beamsum/layout"
)

// Usage is the set of permitted access patterns of a buffer.
type Usage uint8

const (
	UsageDeviceRead Usage = 1 << iota
	UsageDeviceWrite
	UsageHostRead
	UsageHostWrite
)

// Has reports whether every flag of want is set.
func (u Usage) Has(want Usage) bool { return u&want == want }

func (u Usage) String() string {
	var parts []string
	for _, f := range []struct {
		flag Usage
		name string
	}{
		{UsageDeviceRead, "device-read"},
		{UsageDeviceWrite, "device-write"},
		{UsageHostRead, "host-read"},
		{UsageHostWrite, "host-write"},
	} {
		if u.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// RoleUsage is the fixed usage set of a role.
func RoleUsage(r layout.Role) Usage {
	switch r {
	case layout.RoleInput, layout.RoleUniform:
		return UsageDeviceRead | UsageHostWrite
	case layout.RoleOutput:
		return UsageDeviceRead | UsageDeviceWrite
	case layout.RoleStaging:
		return UsageDeviceWrite | UsageHostRead
	default:
		return 0
	}
}

func nativeUsage(r layout.Role) wgpu.BufferUsage {
	switch r {
	case layout.RoleInput:
		return wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	case layout.RoleOutput:
		return wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
	case layout.RoleUniform:
		return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	case layout.RoleStaging:
		return wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst
	default:
		return 0
	}
}

// Buffer is a device allocation with a fixed role.
type Buffer struct {
	Label string
	Role  layout.Role
	Usage Usage

	size     uint64
	raw      *wgpu.Buffer
	ctx      *Context
	readback *Readback
}

// Size is the byte extent of the buffer.
func (b *Buffer) Size() uint64 { return b.size }

// Raw exposes the native buffer.
func (b *Buffer) Raw() *wgpu.Buffer { return b.raw }

func validateSize(role layout.Role, size int) error {
	if RoleUsage(role) == 0 {
		return fmt.Errorf("%w: unknown role %s", ErrInvalidSize, role)
	}
	if size <= 0 {
		return fmt.Errorf("%w: %s buffer of %d bytes", ErrInvalidSize, role, size)
	}
	if stride := role.Stride(); size%stride != 0 {
		return fmt.Errorf("%w: %s buffer of %d bytes is not a multiple of %d", ErrInvalidSize, role, size, stride)
	}
	return nil
}

// allocSize pads uniform blocks to the uniform alignment.
func allocSize(role layout.Role, size int) uint64 {
	n := uint64(size)
	if role == layout.RoleUniform {
		const a = layout.UniformAlign
		n = (n + a - 1) / a * a
	}
	return n
}

// Allocate creates a buffer of byteSize bytes for role. Uniform buffers are
// padded to the uniform alignment and report the padded size.
func (c *Context) Allocate(label string, role layout.Role, byteSize int) (*Buffer, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if err := validateSize(role, byteSize); err != nil {
		return nil, err
	}
	size := allocSize(role, byteSize)

	raw, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: nativeUsage(role),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s buffer %s: %v", role, label, err)
	}

	buffersAllocated.WithLabelValues(role.String()).Inc()
	bufferBytes.WithLabelValues(role.String()).Add(float64(size))
	if Debug {
		Log("allocated %s buffer %s (%d bytes)", role, label, size)
	}
	return &Buffer{
		Label: label,
		Role:  role,
		Usage: RoleUsage(role),
		size:  size,
		raw:   raw,
		ctx:   c,
	}, nil
}

func (b *Buffer) checkWrite(offset uint64, n int) error {
	if !b.Usage.Has(UsageHostWrite) {
		return fmt.Errorf("%w: %s buffer %s is not host-writable", ErrUsage, b.Role, b.Label)
	}
	if offset%layout.ElementSize != 0 || n%layout.ElementSize != 0 {
		return fmt.Errorf("%w: write of %d bytes at %d is not 4-byte aligned", ErrInvalidSize, n, offset)
	}
	end := offset + uint64(n)
	if end < offset || end > b.size {
		return fmt.Errorf("%w: write [%d, %d) into %s (%d bytes)", ErrOutOfBounds, offset, end, b.Label, b.size)
	}
	return nil
}

// Write copies data into b starting at offset. The copy is visible to every
// dispatch submitted after Write returns.
func (c *Context) Write(b *Buffer, offset uint64, data []byte) error {
	if err := c.alive(); err != nil {
		return err
	}
	if err := b.checkWrite(offset, len(data)); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if b.raw == nil {
		return fmt.Errorf("%w: buffer %s released", ErrUsage, b.Label)
	}

	c.submitMu.Lock()
	defer c.submitMu.Unlock()
	c.Queue.WriteBuffer(b.raw, offset, data)
	if Debug {
		Log("wrote %d bytes to %s at %d", len(data), b.Label, offset)
	}
	return nil
}

// MapForRead requests host visibility of a staging buffer and returns the
// pending readback. The data is readable once Wait succeeds.
func (b *Buffer) MapForRead() (*Readback, error) {
	if b.Role != layout.RoleStaging || !b.Usage.Has(UsageHostRead) {
		return nil, fmt.Errorf("%w: %s buffer %s cannot be mapped for reading", ErrUsage, b.Role, b.Label)
	}
	if err := b.ctx.alive(); err != nil {
		return nil, err
	}
	if b.raw == nil {
		return nil, fmt.Errorf("%w: buffer %s released", ErrUsage, b.Label)
	}
	if b.readback == nil {
		b.readback = newReadback(nativeMapper{buf: b.raw, dev: b.ctx.Device}, b.size, b.ctx.poll, b.ctx.MarkLost)
	}
	if err := b.readback.request(); err != nil {
		return nil, err
	}
	return b.readback, nil
}

// Release frees the device allocation. It is safe to call twice.
func (b *Buffer) Release() {
	if b.raw == nil {
		return
	}
	if b.readback != nil {
		_ = b.readback.Release()
	}
	b.raw.Destroy()
	b.raw.Release()
	b.raw = nil
	bufferBytes.WithLabelValues(b.Role.String()).Sub(float64(b.size))
}
