package gpu

import (
	"fmt"
	"sort"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/openfluke/beamsum/kernel"
	"github.com/openfluke/beamsum/layout"
)

// BindingLayout is the host-declared binding contract of descriptor set 0.
type BindingLayout struct {
	Label string
	Slots []kernel.Slot
	raw   *wgpu.BindGroupLayout
}

// Release frees the native layout.
func (l *BindingLayout) Release() {
	if l.raw != nil {
		l.raw.Release()
		l.raw = nil
	}
}

// Pipeline is a compiled kernel bound to a layout.
type Pipeline struct {
	Label   string
	Program *kernel.Program
	Layout  *BindingLayout
	raw     *wgpu.ComputePipeline
}

// Release frees the native pipeline.
func (p *Pipeline) Release() {
	if p.raw != nil {
		p.raw.Release()
		p.raw = nil
	}
}

// BindingSet attaches concrete buffers to a pipeline's slots.
type BindingSet struct {
	Buffers map[uint32]*Buffer
	raw     *wgpu.BindGroup
}

// Release frees the native bind group.
func (s *BindingSet) Release() {
	if s.raw != nil {
		s.raw.Release()
		s.raw = nil
	}
}

func bindingType(a kernel.Access) wgpu.BufferBindingType {
	switch a {
	case kernel.AccessStorage:
		return wgpu.BufferBindingTypeStorage
	case kernel.AccessUniform:
		return wgpu.BufferBindingTypeUniform
	default:
		return wgpu.BufferBindingTypeReadOnlyStorage
	}
}

// roleAccess lists the accesses each role may be bound with.
func roleAccess(r layout.Role, a kernel.Access) bool {
	switch r {
	case layout.RoleInput:
		return a == kernel.AccessReadOnlyStorage
	case layout.RoleOutput:
		return a == kernel.AccessStorage
	case layout.RoleUniform:
		return a == kernel.AccessUniform
	default:
		return false
	}
}

func sortedSlots(slots []kernel.Slot) []kernel.Slot {
	out := append([]kernel.Slot(nil), slots...)
	sort.Slice(out, func(i, j int) bool { return out[i].Binding < out[j].Binding })
	return out
}

func checkSlots(slots []kernel.Slot) error {
	if len(slots) == 0 {
		return fmt.Errorf("%w: no bindings", ErrLayoutMismatch)
	}
	seen := make(map[uint32]bool, len(slots))
	for _, s := range slots {
		if seen[s.Binding] {
			return fmt.Errorf("%w: binding %d declared twice", ErrLayoutMismatch, s.Binding)
		}
		seen[s.Binding] = true
		if !roleAccess(s.Role, s.Access) {
			return fmt.Errorf("%w: %s cannot bind a %s buffer", ErrLayoutMismatch, s.Access, s.Role)
		}
	}
	return nil
}

// matchSlots compares the host layout with what a kernel declares. Order does
// not matter, binding numbers do.
func matchSlots(host, kern []kernel.Slot) error {
	if len(host) != len(kern) {
		return fmt.Errorf("%w: layout has %d bindings, kernel declares %d", ErrLayoutMismatch, len(host), len(kern))
	}
	h, k := sortedSlots(host), sortedSlots(kern)
	for i := range h {
		if h[i] != k[i] {
			return fmt.Errorf("%w: layout %s, kernel %s", ErrLayoutMismatch, h[i], k[i])
		}
	}
	return nil
}

// BuildBindingLayout creates the native layout for slots.
func (c *Context) BuildBindingLayout(label string, slots []kernel.Slot) (*BindingLayout, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if err := checkSlots(slots); err != nil {
		return nil, err
	}

	slots = sortedSlots(slots)
	entries := make([]wgpu.BindGroupLayoutEntry, len(slots))
	for i, s := range slots {
		entries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    s.Binding,
			Visibility: wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type: bindingType(s.Access),
			},
		}
	}
	raw, err := c.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group layout %s: %v", label, err)
	}
	return &BindingLayout{Label: label, Slots: slots, raw: raw}, nil
}

func shaderDescriptor(label string, prog *kernel.Program) *wgpu.ShaderModuleDescriptor {
	d := &wgpu.ShaderModuleDescriptor{Label: label}
	if len(prog.SPIRV) > 0 {
		d.SPIRVDescriptor = &wgpu.ShaderModuleSPIRVDescriptor{Code: prog.SPIRV}
	} else {
		d.WGSLDescriptor = &wgpu.ShaderModuleWGSLDescriptor{Code: prog.WGSL}
	}
	return d
}

// NewPipeline compiles prog against bl. The kernel's declared bindings must
// equal the layout's.
func (c *Context) NewPipeline(label string, bl *BindingLayout, prog *kernel.Program) (*Pipeline, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if err := prog.Validate(); err != nil {
		return nil, err
	}
	if err := matchSlots(bl.Slots, prog.Slots); err != nil {
		return nil, err
	}

	module, err := c.Device.CreateShaderModule(shaderDescriptor(label, prog))
	if err != nil {
		return nil, fmt.Errorf("failed to create shader module %s: %v", label, err)
	}
	defer module.Release()

	pl, err := c.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + "_Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bl.raw},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline layout %s: %v", label, err)
	}
	defer pl.Release()

	raw, err := c.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label,
		Layout: pl,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: prog.EntryPoint,
		},
	})
	if err != nil {
		// The device rejects a kernel whose bindings disagree with the layout.
		return nil, fmt.Errorf("%w: %s: %v", ErrLayoutMismatch, label, err)
	}
	if Debug {
		Log("compiled %s (entry %s, %d bindings)", label, prog.EntryPoint, len(prog.Slots))
	}
	return &Pipeline{Label: label, Program: prog, Layout: bl, raw: raw}, nil
}

func checkBindings(slots []kernel.Slot, bufs map[uint32]*Buffer) error {
	if len(bufs) != len(slots) {
		return fmt.Errorf("%w: %d buffers for %d bindings", ErrLayoutMismatch, len(bufs), len(slots))
	}
	for _, s := range slots {
		b, ok := bufs[s.Binding]
		if !ok || b == nil {
			return fmt.Errorf("%w: nothing bound at %d", ErrLayoutMismatch, s.Binding)
		}
		if b.Role != s.Role {
			return fmt.Errorf("%w: %s buffer %s bound to %s", ErrLayoutMismatch, b.Role, b.Label, s)
		}
		if !b.Usage.Has(UsageDeviceRead) {
			return fmt.Errorf("%w: %s is not device-readable", ErrUsage, b.Label)
		}
	}
	return nil
}

// Bind attaches bufs, keyed by binding number, to p.
func (c *Context) Bind(p *Pipeline, bufs map[uint32]*Buffer) (*BindingSet, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if err := checkBindings(p.Layout.Slots, bufs); err != nil {
		return nil, err
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(p.Layout.Slots))
	for _, s := range p.Layout.Slots {
		b := bufs[s.Binding]
		if b.raw == nil {
			return nil, fmt.Errorf("%w: buffer %s released", ErrUsage, b.Label)
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: s.Binding,
			Buffer:  b.raw,
			Size:    b.size,
		})
	}
	raw, err := c.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.Label + "_BindGroup",
		Layout:  p.Layout.raw,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group for %s: %v", p.Label, err)
	}
	return &BindingSet{Buffers: bufs, raw: raw}, nil
}
