package pods

import (
	"context"
	"time"

	"github.com/openfluke/beamsum/detector"
)

// Pod is a unit of work (beamform, multiply, …).
type Pod interface {
	Name() string
	Run(ctx *ExecContext, in any) (out any, err error)
}

// ExecContext carries execution choices and capabilities.
type ExecContext struct {
	Ctx    context.Context
	UseGPU bool             // high-level knob; pods may override per-op
	Report *detector.Report // adapter in use, nil on the host path
	GPU    GPUHooks         // nil unless a device was acquired
	// Fallback lets pods run on the host when the device path is unavailable.
	Fallback bool
	Now      time.Time
}

func NewContext(ctx context.Context, rep *detector.Report) *ExecContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ExecContext{
		Ctx:      ctx,
		UseGPU:   false,
		Report:   rep,
		Fallback: true,
		Now:      time.Now(),
	}
}

func (ec *ExecContext) WithGPU(g GPUHooks) *ExecContext {
	ec.GPU = g
	ec.UseGPU = g != nil
	return ec
}

// hooks returns the device backend, or the no-op one when there is none.
func (ec *ExecContext) hooks() GPUHooks {
	if ec.UseGPU && ec.GPU != nil {
		return ec.GPU
	}
	return noopGPU{}
}
