package pods

import (
	"errors"

	"github.com/openfluke/beamsum/kernel"
	"github.com/openfluke/beamsum/layout"
)

type BeamformIn struct {
	Frame  Frame
	Config layout.Config
}

type BeamformOut struct {
	Values  []float32 // one per sample
	Backend string
}

type BeamformPod struct{}

func (BeamformPod) Name() string { return "beamform" }

func (BeamformPod) Run(x *ExecContext, in any) (any, error) {
	args, ok := in.(BeamformIn)
	if !ok {
		return nil, errors.New("BeamformIn expected")
	}
	if err := args.Frame.validate(kernel.NumChannels); err != nil {
		return nil, err
	}

	vals, err := x.hooks().Beamform(x.Ctx, args.Frame.Data, args.Config, args.Frame.Samples)
	if err == nil {
		return BeamformOut{Values: vals, Backend: backendName(x)}, nil
	}
	if !errors.Is(err, ErrNoGPU) || !x.Fallback {
		return nil, err
	}

	vals, err = kernel.EmulateBeamform(x.Ctx, args.Frame.Data, args.Config, args.Frame.Samples)
	if err != nil {
		return nil, err
	}
	return BeamformOut{Values: vals, Backend: "host"}, nil
}
