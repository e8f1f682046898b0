package gpu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfluke/beamsum/kernel"
	"github.com/openfluke/beamsum/layout"
)

func TestBeamformJob(t *testing.T) {
	in := kernel.ImpulseInput(16, kernel.NumChannels, 8)
	job, err := BeamformJob(nil, in, layout.Config{SpeedOfSound: 1540}, 0)
	require.NoError(t, err)

	assert.Equal(t, "beamform", job.Program.Name)
	assert.Equal(t, 16, job.Outputs)
	assert.Equal(t, uint32(16), job.Groups)
	assert.Len(t, job.Input, 16*kernel.NumChannels*4)
	assert.Len(t, job.Uniform, layout.UniformAlign)
	assert.NoError(t, matchSlots(job.Slots, job.Program.Slots))

	job, err = BeamformJob(nil, in, layout.Config{}, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), job.Groups)

	_, err = BeamformJob(nil, nil, layout.Config{}, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestMultiplyJob(t *testing.T) {
	job, err := MultiplyJob([]layout.DataElement{{Value: 1, Multiplier: 2}, {Value: 2, Multiplier: 3}, {Value: 3, Multiplier: 4}, {Value: 4, Multiplier: 5}})
	require.NoError(t, err)
	assert.Equal(t, 4, job.Outputs)
	assert.Equal(t, uint32(1), job.Groups)
	assert.Len(t, job.Input, 4*layout.DataElementSize)
	assert.Empty(t, job.Uniform)
	assert.NoError(t, matchSlots(job.Slots, job.Program.Slots))

	_, err = MultiplyJob(nil)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestRunRejectsEmptyJob(t *testing.T) {
	c := &Context{}
	_, err := c.Run(context.Background(), Job{})
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageAllocate, se.Stage)
	assert.ErrorIs(t, err, ErrInvalidSize)
}
