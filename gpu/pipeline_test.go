package gpu

import (
	"testing"

	"github.com/openfluke/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfluke/beamsum/kernel"
	"github.com/openfluke/beamsum/layout"
)

func TestBindingType(t *testing.T) {
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, bindingType(kernel.AccessReadOnlyStorage))
	assert.Equal(t, wgpu.BufferBindingTypeStorage, bindingType(kernel.AccessStorage))
	assert.Equal(t, wgpu.BufferBindingTypeUniform, bindingType(kernel.AccessUniform))
}

func TestCheckSlots(t *testing.T) {
	require.NoError(t, checkSlots(kernel.BeamformSlots))
	require.NoError(t, checkSlots(kernel.MultiplySlots))

	assert.ErrorIs(t, checkSlots(nil), ErrLayoutMismatch)
	assert.ErrorIs(t, checkSlots([]kernel.Slot{
		{Binding: 0, Role: layout.RoleInput, Access: kernel.AccessReadOnlyStorage},
		{Binding: 0, Role: layout.RoleOutput, Access: kernel.AccessStorage},
	}), ErrLayoutMismatch)
	assert.ErrorIs(t, checkSlots([]kernel.Slot{
		{Binding: 0, Role: layout.RoleInput, Access: kernel.AccessStorage},
	}), ErrLayoutMismatch, "input is never device-writable")
	assert.ErrorIs(t, checkSlots([]kernel.Slot{
		{Binding: 3, Role: layout.RoleStaging, Access: kernel.AccessStorage},
	}), ErrLayoutMismatch, "staging is never bound")
}

func TestMatchSlots(t *testing.T) {
	reversed := []kernel.Slot{kernel.BeamformSlots[2], kernel.BeamformSlots[1], kernel.BeamformSlots[0]}
	assert.NoError(t, matchSlots(kernel.BeamformSlots, reversed))

	assert.ErrorIs(t, matchSlots(kernel.MultiplySlots, kernel.BeamformSlots), ErrLayoutMismatch)

	moved := append([]kernel.Slot(nil), kernel.BeamformSlots...)
	moved[2].Binding = 3
	assert.ErrorIs(t, matchSlots(kernel.BeamformSlots, moved), ErrLayoutMismatch)

	retyped := append([]kernel.Slot(nil), kernel.BeamformSlots...)
	retyped[0].Access = kernel.AccessStorage
	assert.ErrorIs(t, matchSlots(kernel.BeamformSlots, retyped), ErrLayoutMismatch)
}

func TestCheckBindings(t *testing.T) {
	in := fakeBuffer(layout.RoleInput, 256)
	out := fakeBuffer(layout.RoleOutput, 4)
	uni := fakeBuffer(layout.RoleUniform, 16)

	require.NoError(t, checkBindings(kernel.BeamformSlots, map[uint32]*Buffer{0: in, 1: out, 2: uni}))

	assert.ErrorIs(t, checkBindings(kernel.BeamformSlots, map[uint32]*Buffer{0: in, 1: out}), ErrLayoutMismatch)
	assert.ErrorIs(t, checkBindings(kernel.BeamformSlots, map[uint32]*Buffer{0: in, 1: out, 3: uni}), ErrLayoutMismatch)
	assert.ErrorIs(t, checkBindings(kernel.BeamformSlots, map[uint32]*Buffer{0: out, 1: in, 2: uni}), ErrLayoutMismatch)

	staging := fakeBuffer(layout.RoleStaging, 4)
	slots := []kernel.Slot{{Binding: 0, Role: layout.RoleStaging, Access: kernel.AccessStorage}}
	assert.ErrorIs(t, checkBindings(slots, map[uint32]*Buffer{0: staging}), ErrUsage)
}

func TestShaderDescriptor(t *testing.T) {
	d := shaderDescriptor("bf", kernel.Beamform())
	require.NotNil(t, d.WGSLDescriptor)
	assert.Nil(t, d.SPIRVDescriptor)
	assert.Contains(t, d.WGSLDescriptor.Code, "main_shader")

	spv := &kernel.Program{Name: "spv", EntryPoint: "main_shader", SPIRV: []byte{0x03, 0x02, 0x23, 0x07}, WorkgroupSize: 64}
	d = shaderDescriptor("spv", spv)
	require.NotNil(t, d.SPIRVDescriptor)
	assert.Nil(t, d.WGSLDescriptor)
	assert.Equal(t, spv.SPIRV, d.SPIRVDescriptor.Code)
}

func TestCheckDispatch(t *testing.T) {
	out := fakeBuffer(layout.RoleOutput, 64)
	staging := fakeBuffer(layout.RoleStaging, 64)

	require.NoError(t, checkDispatch(16, 65535, out, staging))
	require.NoError(t, checkDispatch(16, 0, out, fakeBuffer(layout.RoleStaging, 128)))

	assert.ErrorIs(t, checkDispatch(0, 65535, out, staging), ErrInvalidSize)
	assert.ErrorIs(t, checkDispatch(70000, 65535, out, staging), ErrInvalidSize)
	assert.ErrorIs(t, checkDispatch(1, 65535, out, fakeBuffer(layout.RoleStaging, 32)), ErrOutOfBounds)
	assert.ErrorIs(t, checkDispatch(1, 65535, fakeBuffer(layout.RoleInput, 64), staging), ErrUsage)
	assert.ErrorIs(t, checkDispatch(1, 65535, out, fakeBuffer(layout.RoleOutput, 64)), ErrUsage)
}
