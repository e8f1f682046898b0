package kernel

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfluke/beamsum/layout"
)

func TestBeamformImpulse(t *testing.T) {
	const samples = 16
	in := ImpulseInput(samples, NumChannels, 8)
	cfg := layout.Config{SpeedOfSound: 1540}

	got, err := EmulateBeamform(context.Background(), in, cfg, samples)
	require.NoError(t, err)
	require.Len(t, got, samples)

	for i, v := range got {
		if i == 8 {
			assert.Equal(t, float32(98560), v)
			continue
		}
		assert.Zerof(t, v, "sample %d", i)
	}
}

func TestEmulateMatchesReferenceBitForBit(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	in := make([]float32, 37*NumChannels)
	for i := range in {
		in[i] = rng.Float32()*2000 - 1000
	}
	scale := float32(1540)

	want := ReferenceBeamform(in, scale, NumChannels)
	got, err := EmulateBeamform(context.Background(), in, layout.Config{SpeedOfSound: scale}, len(want))
	require.NoError(t, err)

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equalf(t, math.Float32bits(want[i]), math.Float32bits(got[i]), "group %d", i)
	}
}

func TestEmulateIsIdempotent(t *testing.T) {
	in := make([]float32, 8*NumChannels)
	for i := range in {
		in[i] = float32(i%13) * 0.1
	}
	cfg := layout.Config{SpeedOfSound: 3.5}

	first, err := EmulateBeamform(context.Background(), in, cfg, 8)
	require.NoError(t, err)
	second, err := EmulateBeamform(context.Background(), in, cfg, 8)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPartialGroupIsZeroFilled(t *testing.T) {
	// 64 + 3 values: the second group only has three live channels.
	in := make([]float32, NumChannels+3)
	for i := range in {
		in[i] = 1
	}
	cfg := layout.Config{SpeedOfSound: 2}
	groups := int(GroupCount(len(in), WorkgroupSize))
	require.Equal(t, 2, groups)

	want := ReferenceBeamform(in, cfg.SpeedOfSound, NumChannels)
	assert.Equal(t, []float32{128, 6}, want)

	got, err := EmulateBeamform(context.Background(), in, cfg, groups)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEmulateHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := EmulateBeamform(ctx, make([]float32, 4*NumChannels), layout.Config{SpeedOfSound: 1}, 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReferenceMultiply(t *testing.T) {
	in := []layout.DataElement{{Value: 1, Multiplier: 2}, {Value: 2, Multiplier: 3}, {Value: 3, Multiplier: 4}, {Value: 4, Multiplier: 5}}
	assert.Equal(t, []float32{2, 6, 12, 20}, ReferenceMultiply(in))
}

func TestGroupCount(t *testing.T) {
	assert.Equal(t, uint32(0), GroupCount(0, 64))
	assert.Equal(t, uint32(1), GroupCount(4, 64))
	assert.Equal(t, uint32(1), GroupCount(64, 64))
	assert.Equal(t, uint32(2), GroupCount(65, 64))
	assert.Equal(t, uint32(16), GroupCount(16*64, 64))
}

func TestProgramsDeclareTheirBindings(t *testing.T) {
	bf := Beamform()
	require.NoError(t, bf.Validate())
	assert.Equal(t, "main_shader", bf.EntryPoint)
	assert.Len(t, bf.Slots, 3)
	assert.Contains(t, bf.WGSL, "workgroupBarrier()")
	assert.Contains(t, bf.WGSL, "@workgroup_size(64)")
	for _, s := range bf.Slots {
		assert.Contains(t, bf.WGSL, "@binding("+string(rune('0'+s.Binding))+")")
	}

	mul := Multiply()
	require.NoError(t, mul.Validate())
	assert.Len(t, mul.Slots, 2)

	// Returned slot lists are copies.
	bf.Slots[0].Binding = 9
	assert.Equal(t, uint32(0), Beamform().Slots[0].Binding)
}

func TestProgramValidate(t *testing.T) {
	p := &Program{Name: "x", EntryPoint: "main", WorkgroupSize: 64}
	assert.Error(t, p.Validate(), "no source")

	p.WGSL = "fn main() {}"
	p.SPIRV = []byte{0x03, 0x02, 0x23, 0x07}
	assert.Error(t, p.Validate(), "both sources")

	p.SPIRV = nil
	p.Slots = []Slot{{Binding: 0}, {Binding: 0}}
	assert.Error(t, p.Validate(), "duplicate binding")
}

func TestLoadSPIRV(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "beamform.spv")
	blob := []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}
	require.NoError(t, os.WriteFile(path, blob, 0o644))

	p, err := LoadSPIRV(path, "main_shader", BeamformSlots)
	require.NoError(t, err)
	assert.Equal(t, "beamform", p.Name)
	// The module is passed through byte for byte.
	assert.Equal(t, blob, p.SPIRV)
	assert.Empty(t, p.WGSL)

	ragged := filepath.Join(dir, "ragged.spv")
	require.NoError(t, os.WriteFile(ragged, blob[:5], 0o644))
	_, err = LoadSPIRV(ragged, "main_shader", BeamformSlots)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "32-bit words"))

	_, err = LoadSPIRV(filepath.Join(dir, "missing.spv"), "main_shader", BeamformSlots)
	assert.Error(t, err)
}
