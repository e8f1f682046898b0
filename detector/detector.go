// Package detector probes WebGPU adapters and decides whether each one can
// run the compute kernels.
package detector

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/openfluke/webgpu/wgpu"
)

/* ---------- public API ---------- */

// Compute is the capability set every beamsum kernel needs: 64-wide groups,
// 64 f32 of shared scratch and two storage bindings.
var Compute = Requirements{
	WorkgroupSize:  64,
	SharedBytes:    64 * 4,
	StorageBuffers: 2,
}

// Describe builds the report for one adapter and checks it against req.
func Describe(index int, adapter *wgpu.Adapter, req Requirements) Report {
	info := adapter.GetInfo()
	limits := adapter.GetLimits()

	var feats []string
	for _, f := range adapter.EnumerateFeatures() {
		feats = append(feats, featureName(f))
	}

	rep := Report{
		Index:       index,
		WhenISO:     time.Now().UTC().Format(time.RFC3339),
		Runtime:     detectRuntime(),
		Backend:     backendName(info.BackendType),
		AdapterType: adapterTypeName(info.AdapterType),
		VendorID:    fmt.Sprintf("0x%04x", info.VendorId),
		DeviceID:    fmt.Sprintf("0x%04x", info.DeviceId),
		Name:        strings.TrimSpace(info.Name),
		Vendor:      strings.TrimSpace(info.VendorName),
		Driver:      strings.TrimSpace(info.DriverDescription),
		Limits: Limits{
			MaxComputeInvocationsPerWorkgroup: limits.Limits.MaxComputeInvocationsPerWorkgroup,
			MaxComputeWorkgroupSizeX:          limits.Limits.MaxComputeWorkgroupSizeX,
			MaxComputeWorkgroupsPerDimension:  limits.Limits.MaxComputeWorkgroupsPerDimension,
			MaxComputeWorkgroupStorageSize:    limits.Limits.MaxComputeWorkgroupStorageSize,
			MaxStorageBuffersPerShaderStage:   limits.Limits.MaxStorageBuffersPerShaderStage,
			MaxStorageBufferBindingSize:       limits.Limits.MaxStorageBufferBindingSize,
			MaxBufferSize:                     limits.Limits.MaxBufferSize,
		},
		Features: feats,
	}
	if err := rep.Limits.Check(req); err != nil {
		rep.Reason = err.Error()
	} else {
		rep.Compatible = true
	}
	return rep
}

// Enumerate reports every adapter the native instance exposes.
func Enumerate(req Requirements) (reports []Report, err error) {
	// The native library panics when it cannot be loaded.
	defer func() {
		if r := recover(); r != nil {
			reports = nil
			err = fmt.Errorf("webgpu native library not available: %v", r)
		}
	}()

	inst := wgpu.CreateInstance(nil)
	if inst == nil {
		return nil, fmt.Errorf("wgpu.CreateInstance returned nil")
	}
	defer inst.Release()

	for i, a := range inst.EnumerateAdapters(nil) {
		reports = append(reports, Describe(i, a, req))
		a.Release()
	}
	return reports, nil
}

/* ---------- helpers ---------- */

func featureName(f wgpu.FeatureName) string     { return f.String() }
func backendName(b wgpu.BackendType) string     { return b.String() }
func adapterTypeName(t wgpu.AdapterType) string { return t.String() }

func detectRuntime() string {
	if runtime.GOOS == "js" {
		return "wasm"
	}
	return "native"
}
