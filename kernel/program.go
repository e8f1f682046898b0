// Package kernel describes the compute programs dispatched by the gpu
// package and provides host-side executions of the same algorithms.
package kernel

import (
	_ "embed"
	"fmt"

	"github.com/openfluke/beamsum/layout"
)

const (
	// WorkgroupSize is the number of invocations per group, one per channel.
	WorkgroupSize = 64
	// NumChannels is the number of input channels summed per output sample.
	NumChannels = 64
)

//go:embed beamform.wgsl
var beamformWGSL string

//go:embed multiply.wgsl
var multiplyWGSL string

// Access is how a kernel parameter reads its binding
type Access int

const (
	AccessReadOnlyStorage Access = iota
	AccessStorage
	AccessUniform
)

func (a Access) String() string {
	switch a {
	case AccessReadOnlyStorage:
		return "read-only-storage"
	case AccessStorage:
		return "storage"
	case AccessUniform:
		return "uniform"
	default:
		return fmt.Sprintf("access(%d)", int(a))
	}
}

// Slot is one binding of descriptor set 0.
type Slot struct {
	Binding uint32
	Role    layout.Role
	Access  Access
}

func (s Slot) String() string {
	return fmt.Sprintf("@binding(%d) %s/%s", s.Binding, s.Role, s.Access)
}

// Program is a compiled or compilable compute kernel plus its binding contract.
// Exactly one of WGSL and SPIRV is set.
type Program struct {
	Name          string
	EntryPoint    string
	WGSL          string
	SPIRV         []byte
	WorkgroupSize uint32
	Slots         []Slot
}

// BeamformSlots is the binding contract of the beamforming kernel.
var BeamformSlots = []Slot{
	{Binding: 0, Role: layout.RoleInput, Access: AccessReadOnlyStorage},
	{Binding: 1, Role: layout.RoleOutput, Access: AccessStorage},
	{Binding: 2, Role: layout.RoleUniform, Access: AccessUniform},
}

// MultiplySlots is the binding contract of the element-wise kernel.
var MultiplySlots = []Slot{
	{Binding: 0, Role: layout.RoleInput, Access: AccessReadOnlyStorage},
	{Binding: 1, Role: layout.RoleOutput, Access: AccessStorage},
}

// Beamform returns the channel-sum kernel.
func Beamform() *Program {
	return &Program{
		Name:          "beamform",
		EntryPoint:    "main_shader",
		WGSL:          beamformWGSL,
		WorkgroupSize: WorkgroupSize,
		Slots:         append([]Slot(nil), BeamformSlots...),
	}
}

// Multiply returns the element-wise value*multiplier kernel.
func Multiply() *Program {
	return &Program{
		Name:          "multiply",
		EntryPoint:    "main",
		WGSL:          multiplyWGSL,
		WorkgroupSize: WorkgroupSize,
		Slots:         append([]Slot(nil), MultiplySlots...),
	}
}

// Validate checks the program is dispatchable at all.
func (p *Program) Validate() error {
	if p.EntryPoint == "" {
		return fmt.Errorf("kernel %s: empty entry point", p.Name)
	}
	if (p.WGSL == "") == (len(p.SPIRV) == 0) {
		return fmt.Errorf("kernel %s: exactly one of WGSL or SPIR-V must be set", p.Name)
	}
	if p.WorkgroupSize == 0 {
		return fmt.Errorf("kernel %s: workgroup size is zero", p.Name)
	}
	seen := make(map[uint32]bool, len(p.Slots))
	for _, s := range p.Slots {
		if seen[s.Binding] {
			return fmt.Errorf("kernel %s: binding %d declared twice", p.Name, s.Binding)
		}
		seen[s.Binding] = true
	}
	return nil
}

// GroupCount returns ceil(n / groupSize).
func GroupCount(n, groupSize int) uint32 {
	if n <= 0 || groupSize <= 0 {
		return 0
	}
	return uint32((n + groupSize - 1) / groupSize)
}
