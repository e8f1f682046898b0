package layout

import (
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorsMatchHostTypes(t *testing.T) {
	var f float32
	var c Config
	var e DataElement

	assert.Equal(t, int(unsafe.Sizeof(f)), InputSample.Stride)
	assert.Equal(t, int(unsafe.Sizeof(f)), OutputSample.Stride)
	assert.Equal(t, int(unsafe.Sizeof(c)), ConfigRecord.Stride)
	assert.Equal(t, int(unsafe.Sizeof(e)), DataElementRecord.Stride)
	assert.Equal(t, int(unsafe.Offsetof(e.Multiplier)), DataElementRecord.Fields[1].Offset)

	for _, d := range []Descriptor{InputSample, OutputSample, ConfigRecord, DataElementRecord} {
		require.NoError(t, d.Validate(), d.Name)
	}
}

func TestValidateRejectsPadding(t *testing.T) {
	padded := Descriptor{
		Name:   "padded",
		Stride: 8,
		Fields: []Field{{Name: "a", Offset: 0, Size: 4}},
	}
	assert.Error(t, padded.Validate())

	unaligned := Descriptor{
		Name:   "unaligned",
		Stride: 8,
		Fields: []Field{{Name: "a", Offset: 2, Size: 4}},
	}
	assert.Error(t, unaligned.Validate())
}

func TestConfigBytesPadded(t *testing.T) {
	b := Config{SpeedOfSound: 1540}.Bytes()
	require.Len(t, b, UniformAlign)

	got, err := DecodeFloats(b[:ConfigSize])
	require.NoError(t, err)
	assert.Equal(t, float32(1540), got[0])
	assert.Equal(t, make([]byte, UniformAlign-ConfigSize), b[ConfigSize:])
}

func TestEncodeMatchesInMemoryLayout(t *testing.T) {
	// Bytes produced for the device must equal the host's own memory image.
	elems := []DataElement{{1, 2}, {3, float32(math.Inf(1))}}
	encoded := EncodeElements(elems)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&elems[0])), len(elems)*DataElementSize)
	assert.Equal(t, raw, encoded)

	samples := []float32{0.5, -2, float32(math.NaN())}
	raw = unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples)*ElementSize)
	assert.Equal(t, raw, EncodeFloats(samples))
}

func TestDecodeFloatsRejectsRaggedInput(t *testing.T) {
	_, err := DecodeFloats(make([]byte, 6))
	assert.Error(t, err)
}

func TestRoleStride(t *testing.T) {
	assert.Equal(t, ElementSize, RoleInput.Stride())
	assert.Equal(t, ConfigSize, RoleUniform.Stride())
	assert.Equal(t, "staging", RoleStaging.String())
}
