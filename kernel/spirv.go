package kernel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadSPIRV wraps an externally compiled SPIR-V module as a Program.
// The blob is opaque: only its size is checked and the bytes go to the
// driver untouched.
func LoadSPIRV(path, entryPoint string, slots []Slot) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shader module: %w", err)
	}
	if err := checkSPIRV(data); err != nil {
		return nil, fmt.Errorf("shader module %s: %w", path, err)
	}
	p := &Program{
		Name:          strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		EntryPoint:    entryPoint,
		SPIRV:         data,
		WorkgroupSize: WorkgroupSize,
		Slots:         append([]Slot(nil), slots...),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func checkSPIRV(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty module")
	}
	if len(data)%4 != 0 {
		return fmt.Errorf("%d bytes is not a whole number of 32-bit words", len(data))
	}
	return nil
}
