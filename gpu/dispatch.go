package gpu

import (
	"fmt"

	"github.com/openfluke/beamsum/layout"
)

func checkDispatch(groups, maxGroups uint32, output, staging *Buffer) error {
	if groups == 0 {
		return fmt.Errorf("%w: zero workgroups", ErrInvalidSize)
	}
	if maxGroups > 0 && groups > maxGroups {
		return fmt.Errorf("%w: %d workgroups exceeds device limit %d", ErrInvalidSize, groups, maxGroups)
	}
	if output.Role != layout.RoleOutput {
		return fmt.Errorf("%w: copy source %s is a %s buffer", ErrUsage, output.Label, output.Role)
	}
	if staging.Role != layout.RoleStaging || !staging.Usage.Has(UsageDeviceWrite) {
		return fmt.Errorf("%w: copy target %s is a %s buffer", ErrUsage, staging.Label, staging.Role)
	}
	if staging.size < output.size {
		return fmt.Errorf("%w: staging %s (%d bytes) smaller than output %s (%d bytes)",
			ErrOutOfBounds, staging.Label, staging.size, output.Label, output.size)
	}
	return nil
}

// Dispatch records one compute pass of groups workgroups followed by a copy
// of the whole output buffer into staging, and submits both together. The
// copy is ordered after the pass, so once staging is mapped it holds the
// finished result.
func (c *Context) Dispatch(p *Pipeline, set *BindingSet, groups uint32, output, staging *Buffer) error {
	if err := c.alive(); err != nil {
		return err
	}
	if err := checkDispatch(groups, c.maxGroups(), output, staging); err != nil {
		return err
	}

	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	encoder, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %v", err)
	}
	defer encoder.Release()

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.raw)
	pass.SetBindGroup(0, set.raw, nil)
	pass.DispatchWorkgroups(groups, 1, 1)
	pass.End()
	pass.Release()

	encoder.CopyBufferToBuffer(output.raw, 0, staging.raw, 0, output.size)

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish command: %v", err)
	}
	defer cmd.Release()
	c.Queue.Submit(cmd)

	dispatches.WithLabelValues(p.Program.Name).Inc()
	if Debug {
		Log("dispatched %s: %d groups, copy %d bytes %s -> %s", p.Label, groups, output.size, output.Label, staging.Label)
	}
	return nil
}
