package detector

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

/* ---------- report types ---------- */

// Report is a portable summary of one adapter's identity and compute limits.
type Report struct {
	Index       int      `json:"index"`
	WhenISO     string   `json:"when_iso"`
	Runtime     string   `json:"runtime"`
	Backend     string   `json:"backend"`
	AdapterType string   `json:"adapter_type"`
	VendorID    string   `json:"vendor_id_hex"`
	DeviceID    string   `json:"device_id_hex"`
	Name        string   `json:"name"`
	Vendor      string   `json:"vendor"`
	Driver      string   `json:"driver"`
	Limits      Limits   `json:"limits"`
	Features    []string `json:"features"`
	Compatible  bool     `json:"compatible"`
	Reason      string   `json:"reason,omitempty"`
}

type Limits struct {
	MaxComputeInvocationsPerWorkgroup uint32 `json:"max_compute_invocations_per_workgroup"`
	MaxComputeWorkgroupSizeX          uint32 `json:"max_compute_workgroup_size_x"`
	MaxComputeWorkgroupsPerDimension  uint32 `json:"max_compute_workgroups_per_dimension"`
	MaxComputeWorkgroupStorageSize    uint32 `json:"max_compute_workgroup_storage_size"`
	MaxStorageBuffersPerShaderStage   uint32 `json:"max_storage_buffers_per_shader_stage"`
	MaxStorageBufferBindingSize       uint64 `json:"max_storage_buffer_binding_size"`
	MaxBufferSize                     uint64 `json:"max_buffer_size"`
}

// Requirements is the minimal capability set a compute adapter must meet.
type Requirements struct {
	WorkgroupSize  uint32 // invocations along X in one group
	SharedBytes    uint32 // workgroup-scoped scratch
	StorageBuffers uint32 // storage bindings visible to the compute stage
}

// Check reports the first limit that falls short of r, or nil.
func (l Limits) Check(r Requirements) error {
	switch {
	case l.MaxComputeWorkgroupSizeX < r.WorkgroupSize:
		return fmt.Errorf("max workgroup size x %d < %d", l.MaxComputeWorkgroupSizeX, r.WorkgroupSize)
	case l.MaxComputeInvocationsPerWorkgroup < r.WorkgroupSize:
		return fmt.Errorf("max invocations per workgroup %d < %d", l.MaxComputeInvocationsPerWorkgroup, r.WorkgroupSize)
	case l.MaxComputeWorkgroupStorageSize < r.SharedBytes:
		return fmt.Errorf("workgroup storage %d bytes < %d", l.MaxComputeWorkgroupStorageSize, r.SharedBytes)
	case l.MaxStorageBuffersPerShaderStage < r.StorageBuffers:
		return fmt.Errorf("storage buffers per stage %d < %d", l.MaxStorageBuffersPerShaderStage, r.StorageBuffers)
	case l.MaxStorageBufferBindingSize == 0:
		return fmt.Errorf("storage buffers unsupported")
	case l.MaxComputeWorkgroupsPerDimension == 0:
		return fmt.Errorf("compute dispatch unsupported")
	}
	return nil
}

// MatchesBackend reports whether the adapter runs on the named backend.
// An empty name matches every backend.
func (r Report) MatchesBackend(name string) bool {
	if name == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Backend), strings.ToLower(name))
}

// JSON renders reports as indented JSON.
func JSON(reports []Report) (string, error) {
	b, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
