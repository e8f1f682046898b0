package kernel

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/openfluke/beamsum/layout"
)

// EmulateBeamform runs the beamforming kernel on the host with the device's
// execution model: each group is a set of WorkgroupSize goroutines sharing one
// scratch array, synchronized by a barrier between the load and the sum.
// Groups are independent and run concurrently.
func EmulateBeamform(ctx context.Context, input []float32, cfg layout.Config, groups int) ([]float32, error) {
	if groups < 0 {
		return nil, fmt.Errorf("emulate: negative group count %d", groups)
	}
	output := make([]float32, groups)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for g := 0; g < groups; g++ {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Scratch is scoped to this group only and starts zeroed.
			var shared [NumChannels]float32
			beamformGroup(g, &shared, input, output, cfg.SpeedOfSound)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return output, nil
}

func beamformGroup(group int, shared *[NumChannels]float32, input, output []float32, scale float32) {
	var barrier, done sync.WaitGroup
	barrier.Add(WorkgroupSize)
	done.Add(WorkgroupSize)

	for t := 0; t < WorkgroupSize; t++ {
		go func(thread int) {
			defer done.Done()

			idx := group*NumChannels + thread
			var v float32
			if idx < len(input) {
				v = input[idx]
			}
			shared[thread] = v

			// All stores above happen before any thread passes Wait.
			barrier.Done()
			barrier.Wait()

			if thread != 0 {
				return
			}
			var sum float32
			for i := 0; i < NumChannels; i++ {
				sum += shared[i]
			}
			if group < len(output) {
				output[group] = sum * scale
			}
		}(t)
	}
	done.Wait()
}
