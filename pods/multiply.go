package pods

import (
	"errors"

	"github.com/openfluke/beamsum/kernel"
	"github.com/openfluke/beamsum/layout"
)

type MultiplyIn struct {
	Elements []layout.DataElement
}

type MultiplyOut struct {
	Values  []float32
	Backend string
}

type MultiplyPod struct{}

func (MultiplyPod) Name() string { return "multiply" }

func (MultiplyPod) Run(x *ExecContext, in any) (any, error) {
	args, ok := in.(MultiplyIn)
	if !ok {
		return nil, errors.New("MultiplyIn expected")
	}
	if len(args.Elements) == 0 {
		return MultiplyOut{Backend: backendName(x)}, nil
	}

	vals, err := x.hooks().Multiply(x.Ctx, args.Elements)
	if err == nil {
		return MultiplyOut{Values: vals, Backend: backendName(x)}, nil
	}
	if !errors.Is(err, ErrNoGPU) || !x.Fallback {
		return nil, err
	}
	return MultiplyOut{Values: kernel.ReferenceMultiply(args.Elements), Backend: "host"}, nil
}
