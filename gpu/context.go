package gpu

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/openfluke/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/openfluke/beamsum/detector"
)

// PollMode selects how a readback drives the device while it waits.
type PollMode int

const (
	// PollBlock lets the device call block until the queue is idle.
	PollBlock PollMode = iota
	// PollSpin checks without blocking and backs off between checks.
	PollSpin
)

func (m PollMode) String() string {
	if m == PollSpin {
		return "spin"
	}
	return "block"
}

// Options controls device selection.
type Options struct {
	// Backend restricts selection to adapters whose backend name contains
	// this string (case-insensitive). Empty accepts any backend.
	Backend string
	// Requirements overrides detector.Compute when non-zero.
	Requirements detector.Requirements
	Poll         PollMode
}

// Context holds the single WebGPU context for the process
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue

	report detector.Report
	poll   PollMode
	opts   Options

	// submitMu serializes queue writes and submissions.
	submitMu sync.Mutex
	lost     atomic.Bool
}

var (
	currentMu sync.Mutex
	current   *Context
)

// Acquire returns the process context, creating it on first use. Options only
// apply to the call that creates it; a later call asking for different ones
// gets the existing context and a warning. A lost context is released and
// replaced. After Release the next Acquire starts over.
func Acquire(opts Options) (*Context, error) {
	currentMu.Lock()
	defer currentMu.Unlock()

	if current != nil && current.Lost() {
		logger.Warn("replacing lost device context", zap.String("adapter", current.report.Name))
		current.release()
		current = nil
	}
	if current != nil {
		if opts != (Options{}) && opts != current.opts {
			logger.Warn("context already acquired with different options",
				zap.String("backend", current.opts.Backend),
				zap.Stringer("poll", current.opts.Poll),
				zap.String("requested_backend", opts.Backend),
				zap.Stringer("requested_poll", opts.Poll),
			)
		}
		return current, nil
	}
	c, err := openContext(opts)
	if err != nil {
		return nil, stageErr(StageAcquire, err)
	}
	c.opts = opts
	current = c
	return c, nil
}

// GetContext acquires the context with default options.
func GetContext() (*Context, error) {
	return Acquire(Options{})
}

var openContext = open

func open(opts Options) (c *Context, err error) {
	// The native library panics when it cannot be loaded.
	defer func() {
		if r := recover(); r != nil {
			c = nil
			err = fmt.Errorf("%w: webgpu native library not available: %v", ErrNoCompatibleDevice, r)
		}
	}()

	req := opts.Requirements
	if req == (detector.Requirements{}) {
		req = detector.Compute
	}

	inst := wgpu.CreateInstance(nil)
	if inst == nil {
		return nil, fmt.Errorf("%w: failed to create WebGPU instance", ErrNoCompatibleDevice)
	}

	adapter, rep, err := selectAdapter(inst, opts.Backend, req)
	if err != nil {
		inst.Release()
		return nil, err
	}
	logger.Info("using adapter",
		zap.String("name", rep.Name),
		zap.String("vendor", rep.Vendor),
		zap.String("backend", rep.Backend),
		zap.String("type", rep.AdapterType),
	)

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "beamsum"})
	if err != nil {
		adapter.Release()
		inst.Release()
		return nil, fmt.Errorf("%w: request device: %v", ErrNoCompatibleDevice, err)
	}
	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		inst.Release()
		return nil, fmt.Errorf("%w: device has no queue", ErrNoCompatibleDevice)
	}

	return &Context{
		Instance: inst,
		Adapter:  adapter,
		Device:   device,
		Queue:    queue,
		report:   rep,
		poll:     opts.Poll,
	}, nil
}

// selectAdapter takes the first enumerated adapter that passes the
// capability check, falling back to power-preference requests when
// enumeration returns nothing.
func selectAdapter(inst *wgpu.Instance, backend string, req detector.Requirements) (*wgpu.Adapter, detector.Report, error) {
	adapters := inst.EnumerateAdapters(nil)

	var (
		chosen  *wgpu.Adapter
		rep     detector.Report
		rejects []string
	)
	for i, a := range adapters {
		r := detector.Describe(i, a, req)
		if chosen == nil && r.Compatible && r.MatchesBackend(backend) {
			chosen, rep = a, r
			continue
		}
		if Debug {
			Log("skipping adapter %d %s (%s): %s", i, r.Name, r.Backend, rejectReason(r, backend))
		}
		rejects = append(rejects, r.Name+": "+rejectReason(r, backend))
		a.Release()
	}
	if chosen != nil {
		return chosen, rep, nil
	}

	if len(adapters) == 0 && backend == "" {
		for _, pref := range []wgpu.PowerPreference{wgpu.PowerPreferenceHighPerformance, wgpu.PowerPreferenceLowPower} {
			a, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{PowerPreference: pref})
			if err != nil || a == nil {
				logger.Warn("adapter request failed", zap.Error(err))
				continue
			}
			r := detector.Describe(0, a, req)
			if r.Compatible {
				return a, r, nil
			}
			rejects = append(rejects, r.Name+": "+r.Reason)
			a.Release()
		}
	}

	msg := fmt.Sprintf("%d adapter(s) enumerated", len(adapters))
	if backend != "" {
		msg += fmt.Sprintf(", backend %q requested", backend)
	}
	if len(rejects) > 0 {
		msg += ": " + strings.Join(rejects, "; ")
	}
	return nil, detector.Report{}, fmt.Errorf("%w: %s", ErrNoCompatibleDevice, msg)
}

func rejectReason(r detector.Report, backend string) string {
	if !r.Compatible {
		return r.Reason
	}
	return fmt.Sprintf("backend %s does not match %q", r.Backend, backend)
}

// Report describes the adapter in use.
func (c *Context) Report() detector.Report { return c.report }

// Lost reports whether the device has been lost. A lost context fails every
// further operation and should be released.
func (c *Context) Lost() bool { return c.lost.Load() }

// MarkLost flags the device as lost.
func (c *Context) MarkLost() {
	if c.lost.CompareAndSwap(false, true) {
		logger.Error("device lost", zap.String("adapter", c.report.Name))
	}
}

func (c *Context) alive() error {
	if c == nil {
		return fmt.Errorf("%w: context not acquired", ErrNoCompatibleDevice)
	}
	if c.lost.Load() {
		return ErrDeviceLost
	}
	if c.Device == nil {
		return fmt.Errorf("%w: context released", ErrNoCompatibleDevice)
	}
	return nil
}

// maxGroups is the per-dimension dispatch limit of the device.
func (c *Context) maxGroups() uint32 {
	return c.report.Limits.MaxComputeWorkgroupsPerDimension
}

// Release destroys the device and forgets the process context.
func (c *Context) Release() {
	currentMu.Lock()
	defer currentMu.Unlock()

	c.release()
	if current == c {
		current = nil
	}
}

func (c *Context) release() {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	if c.Queue != nil {
		c.Queue.Release()
		c.Queue = nil
	}
	if c.Device != nil {
		c.Device.Release()
		c.Device = nil
	}
	if c.Adapter != nil {
		c.Adapter.Release()
		c.Adapter = nil
	}
	if c.Instance != nil {
		c.Instance.Release()
		c.Instance = nil
	}
}
