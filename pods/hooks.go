package pods

import (
	"context"

	"github.com/openfluke/beamsum/gpu"
	"github.com/openfluke/beamsum/layout"
)

// GPUHooks describes the device backend. Keep it slice-based so host fallback is easy.
type GPUHooks interface {
	Beamform(ctx context.Context, input []float32, cfg layout.Config, samples int) ([]float32, error)
	Multiply(ctx context.Context, elems []layout.DataElement) ([]float32, error)
}

var _ GPUHooks = (*gpu.Context)(nil)

type noopGPU struct{}

func (noopGPU) Beamform(context.Context, []float32, layout.Config, int) ([]float32, error) {
	return nil, ErrNoGPU
}

func (noopGPU) Multiply(context.Context, []layout.DataElement) ([]float32, error) {
	return nil, ErrNoGPU
}

// Device acquires the process GPU context and returns an ExecContext that
// dispatches to it. Without a compatible device the returned context runs on
// the host and err wraps gpu.ErrNoCompatibleDevice.
func Device(ctx context.Context, opts gpu.Options) (*ExecContext, error) {
	c, err := gpu.Acquire(opts)
	if err != nil {
		return NewContext(ctx, nil), err
	}
	rep := c.Report()
	return NewContext(ctx, &rep).WithGPU(c), nil
}

// backendName names where a pod ran.
func backendName(x *ExecContext) string {
	if x.Report == nil {
		return "host"
	}
	return x.Report.Name + " (" + x.Report.Backend + ")"
}
