package gpu

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openfluke/beamsum/kernel"
	"github.com/openfluke/beamsum/layout"
)

// Job is everything one dispatch needs.
type Job struct {
	Program *kernel.Program
	// Slots is the host-side binding layout. The program must declare the
	// same bindings.
	Slots   []kernel.Slot
	Input   []byte
	Uniform []byte
	// Outputs is the number of f32 results.
	Outputs int
	Groups  uint32
}

// BeamformJob prepares a beamforming run over input (samples x 64 channels,
// sample-major). samples <= 0 derives the count from the input length. A nil
// prog uses the built-in kernel.
func BeamformJob(prog *kernel.Program, input []float32, cfg layout.Config, samples int) (Job, error) {
	if prog == nil {
		prog = kernel.Beamform()
	}
	if len(input) == 0 {
		return Job{}, fmt.Errorf("%w: empty input", ErrInvalidSize)
	}
	if samples <= 0 {
		samples = int(kernel.GroupCount(len(input), kernel.NumChannels))
	}
	return Job{
		Program: prog,
		Slots:   append([]kernel.Slot(nil), kernel.BeamformSlots...),
		Input:   layout.EncodeFloats(input),
		Uniform: cfg.Bytes(),
		Outputs: samples,
		Groups:  uint32(samples),
	}, nil
}

// MultiplyJob prepares an element-wise value*multiplier run.
func MultiplyJob(elems []layout.DataElement) (Job, error) {
	if len(elems) == 0 {
		return Job{}, fmt.Errorf("%w: no elements", ErrInvalidSize)
	}
	return Job{
		Program: kernel.Multiply(),
		Slots:   append([]kernel.Slot(nil), kernel.MultiplySlots...),
		Input:   layout.EncodeElements(elems),
		Outputs: len(elems),
		Groups:  kernel.GroupCount(len(elems), kernel.WorkgroupSize),
	}, nil
}

// Run allocates, uploads, dispatches and reads back one job. Every resource
// it creates is released before it returns.
func (c *Context) Run(ctx context.Context, job Job) ([]float32, error) {
	if job.Program == nil || job.Outputs <= 0 {
		return nil, stageErr(StageAllocate, fmt.Errorf("%w: job has no program or outputs", ErrInvalidSize))
	}
	id := uuid.NewString()[:8]
	prefix := job.Program.Name + "-" + id
	log := logger.With(zap.String("run", id), zap.String("kernel", job.Program.Name))

	var bufs []*Buffer
	defer func() {
		for _, b := range bufs {
			b.Release()
		}
	}()
	alloc := func(role layout.Role, size int) (*Buffer, error) {
		b, err := c.Allocate(prefix+"_"+role.String(), role, size)
		if err != nil {
			return nil, stageErr(StageAllocate, err)
		}
		bufs = append(bufs, b)
		return b, nil
	}

	outBytes := job.Outputs * layout.ElementSize
	input, err := alloc(layout.RoleInput, len(job.Input))
	if err != nil {
		return nil, err
	}
	output, err := alloc(layout.RoleOutput, outBytes)
	if err != nil {
		return nil, err
	}
	staging, err := alloc(layout.RoleStaging, outBytes)
	if err != nil {
		return nil, err
	}

	bound := make(map[uint32]*Buffer, len(job.Slots))
	for _, s := range job.Slots {
		switch s.Role {
		case layout.RoleInput:
			bound[s.Binding] = input
		case layout.RoleOutput:
			bound[s.Binding] = output
		case layout.RoleUniform:
			if len(job.Uniform) == 0 {
				return nil, stageErr(StageAllocate, fmt.Errorf("%w: %s needs a uniform block", ErrInvalidSize, job.Program.Name))
			}
			uni, err := alloc(layout.RoleUniform, len(job.Uniform))
			if err != nil {
				return nil, err
			}
			if err := c.Write(uni, 0, job.Uniform); err != nil {
				return nil, stageErr(StageWrite, err)
			}
			bound[s.Binding] = uni
		}
	}
	if err := c.Write(input, 0, job.Input); err != nil {
		return nil, stageErr(StageWrite, err)
	}

	bl, err := c.BuildBindingLayout(prefix+"_BGL", job.Slots)
	if err != nil {
		return nil, stageErr(StagePipeline, err)
	}
	defer bl.Release()

	pipe, err := c.NewPipeline(prefix, bl, job.Program)
	if err != nil {
		return nil, stageErr(StagePipeline, err)
	}
	defer pipe.Release()

	set, err := c.Bind(pipe, bound)
	if err != nil {
		return nil, stageErr(StagePipeline, err)
	}
	defer set.Release()

	if err := c.Dispatch(pipe, set, job.Groups, output, staging); err != nil {
		return nil, stageErr(StageDispatch, err)
	}

	rb, err := staging.MapForRead()
	if err != nil {
		return nil, stageErr(StageReadback, err)
	}
	vals, err := rb.ReadFloats(ctx)
	if err != nil {
		return nil, stageErr(StageReadback, err)
	}

	log.Debug("run complete", zap.Uint32("groups", job.Groups), zap.Int("outputs", job.Outputs))
	return vals[:job.Outputs], nil
}

// Beamform sums each sample's 64 channels and scales by cfg.SpeedOfSound.
func (c *Context) Beamform(ctx context.Context, input []float32, cfg layout.Config, samples int) ([]float32, error) {
	job, err := BeamformJob(nil, input, cfg, samples)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx, job)
}

// Multiply computes value*multiplier for every element.
func (c *Context) Multiply(ctx context.Context, elems []layout.DataElement) ([]float32, error) {
	job, err := MultiplyJob(elems)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx, job)
}
