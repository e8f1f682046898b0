package pods

import (
	"errors"
	"sort"
)

var registry = map[string]Pod{}

func init() {
	Register(BeamformPod{})
	Register(MultiplyPod{})
}

func Register(p Pod) { registry[p.Name()] = p }

func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func Lookup(name string) (Pod, error) {
	p, ok := registry[name]
	if !ok {
		return nil, errors.New("unknown pod: " + name)
	}
	return p, nil
}

func Run(x *ExecContext, name string, in any) (any, error) {
	p, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return p.Run(x, in)
}
