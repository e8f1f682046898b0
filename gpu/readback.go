package gpu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openfluke/webgpu/wgpu"

	"github.com/openfluke/beamsum/layout"
)

// MapState is the host-visibility state of a staging buffer.
type MapState int

const (
	Unmapped MapState = iota
	MapRequested
	MapReady
	Mapped
)

func (s MapState) String() string {
	switch s {
	case Unmapped:
		return "unmapped"
	case MapRequested:
		return "map-requested"
	case MapReady:
		return "map-ready"
	case Mapped:
		return "mapped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// mapper is the native side of a readback.
type mapper interface {
	requestMap(size uint64, done func(error)) error
	mappedRange(size uint64) []byte
	unmap()
	poll(wait bool)
}

type nativeMapper struct {
	buf *wgpu.Buffer
	dev *wgpu.Device
}

func (m nativeMapper) requestMap(size uint64, done func(error)) error {
	return m.buf.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		done(mapStatusErr(status))
	})
}

func (m nativeMapper) mappedRange(size uint64) []byte { return m.buf.GetMappedRange(0, uint(size)) }
func (m nativeMapper) unmap()                         { m.buf.Unmap() }
func (m nativeMapper) poll(wait bool)                 { m.dev.Poll(wait, nil) }

func mapStatusErr(status wgpu.BufferMapAsyncStatus) error {
	switch status {
	case wgpu.BufferMapAsyncStatusSuccess:
		return nil
	case wgpu.BufferMapAsyncStatusDeviceLost:
		return ErrDeviceLost
	default:
		return fmt.Errorf("%w: status %v", ErrMapFailed, status)
	}
}

// Readback tracks one staging buffer through
// Unmapped -> MapRequested -> MapReady -> Mapped -> Unmapped.
// The buffer only becomes MapReady from the completion callback, so no view
// of it exists before the device has finished writing.
type Readback struct {
	m      mapper
	size   uint64
	mode   PollMode
	onLost func()

	mu    sync.Mutex
	state MapState
	done  chan struct{}
	err   error
	view  *View
}

func newReadback(m mapper, size uint64, mode PollMode, onLost func()) *Readback {
	return &Readback{m: m, size: size, mode: mode, onLost: onLost}
}

// State returns the current map state.
func (r *Readback) State() MapState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Readback) request() error {
	r.mu.Lock()
	if r.state != Unmapped {
		st := r.state
		r.mu.Unlock()
		return fmt.Errorf("%w: map requested while %s", ErrMapFailed, st)
	}
	done := make(chan struct{})
	r.done = done
	r.err = nil
	r.state = MapRequested
	r.mu.Unlock()

	var once sync.Once
	err := r.m.requestMap(r.size, func(err error) {
		once.Do(func() { r.resolve(done, err) })
	})
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrMapFailed, err)
		once.Do(func() { r.resolve(done, err) })
		return err
	}
	if Debug {
		Log("map requested (%d bytes)", r.size)
	}
	return nil
}

func (r *Readback) resolve(done chan struct{}, err error) {
	r.mu.Lock()
	if r.done == done {
		r.err = err
		if err == nil {
			r.state = MapReady
		} else {
			r.state = Unmapped
		}
	}
	r.mu.Unlock()

	if errors.Is(err, ErrDeviceLost) && r.onLost != nil {
		r.onLost()
	}
	close(done)
}

// Wait drives the device until the pending map resolves or ctx ends. In block
// mode each poll may block until the queue is idle, so ctx is only checked
// between polls.
func (r *Readback) Wait(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return fmt.Errorf("%w: no map requested", ErrNotReady)
	}

	start := time.Now()
	defer func() { readbackWait.Observe(time.Since(start).Seconds()) }()

	var bo backoff.BackOff
	if r.mode == PollSpin {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 50 * time.Microsecond
		eb.MaxInterval = 5 * time.Millisecond
		eb.MaxElapsedTime = 0
		eb.Reset()
		bo = backoff.WithContext(eb, ctx)
	}

	for {
		select {
		case <-done:
			r.mu.Lock()
			err := r.err
			r.mu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.m.poll(r.mode == PollBlock)
		if bo == nil {
			continue
		}

		d := bo.NextBackOff()
		if d == backoff.Stop {
			return ctx.Err()
		}
		t := time.NewTimer(d)
		select {
		case <-done:
		case <-ctx.Done():
		case <-t.C:
		}
		t.Stop()
	}
}

// View exposes the mapped bytes. It fails with ErrNotReady until the map has
// resolved.
func (r *Readback) View() (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case MapReady:
		data := r.m.mappedRange(r.size)
		if data == nil {
			return nil, fmt.Errorf("%w: no mapped range", ErrMapFailed)
		}
		r.view = &View{rb: r, data: data}
		r.state = Mapped
		return r.view, nil
	case Mapped:
		return r.view, nil
	default:
		return nil, fmt.Errorf("%w: buffer is %s", ErrNotReady, r.state)
	}
}

// Release unmaps the buffer and invalidates any view. Releasing an unmapped
// buffer is a no-op; releasing while a map is pending is an error.
func (r *Readback) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case MapReady, Mapped:
		r.m.unmap()
		if r.view != nil {
			r.view.data = nil
			r.view.released = true
			r.view = nil
		}
		r.state = Unmapped
		return nil
	case MapRequested:
		return fmt.Errorf("%w: map still pending", ErrNotReady)
	default:
		return nil
	}
}

// ReadFloats waits, copies the mapped contents out as f32 values and
// releases the mapping.
func (r *Readback) ReadFloats(ctx context.Context) ([]float32, error) {
	if err := r.Wait(ctx); err != nil {
		return nil, err
	}
	v, err := r.View()
	if err != nil {
		return nil, err
	}
	vals, err := v.Float32s()
	if rerr := r.Release(); err == nil {
		err = rerr
	}
	return vals, err
}

// View is a read-only window onto a mapped staging buffer. It is valid until
// the owning readback is released.
type View struct {
	rb       *Readback
	data     []byte
	released bool
}

// Bytes returns a copy of the mapped bytes.
func (v *View) Bytes() ([]byte, error) {
	v.rb.mu.Lock()
	defer v.rb.mu.Unlock()
	if v.released {
		return nil, ErrViewReleased
	}
	return append([]byte(nil), v.data...), nil
}

// Float32s decodes the mapped bytes into a new slice.
func (v *View) Float32s() ([]float32, error) {
	v.rb.mu.Lock()
	defer v.rb.mu.Unlock()
	if v.released {
		return nil, ErrViewReleased
	}
	return layout.DecodeFloats(v.data)
}
