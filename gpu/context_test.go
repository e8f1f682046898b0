package gpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// withCurrent installs c as the process context and a fake opener for the
// duration of the test, restoring both afterwards.
func withCurrent(t *testing.T, c *Context, opener func(Options) (*Context, error)) {
	t.Helper()
	currentMu.Lock()
	prev, prevOpen := current, openContext
	current, openContext = c, opener
	currentMu.Unlock()

	t.Cleanup(func() {
		currentMu.Lock()
		current, openContext = prev, prevOpen
		currentMu.Unlock()
	})
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	prev := logger
	SetLogger(zap.New(core))
	t.Cleanup(func() { logger = prev })
	return logs
}

func TestAcquireReplacesLostContext(t *testing.T) {
	lost := &Context{}
	lost.MarkLost()

	opened := 0
	withCurrent(t, lost, func(opts Options) (*Context, error) {
		opened++
		return &Context{poll: opts.Poll}, nil
	})

	c, err := Acquire(Options{Poll: PollSpin})
	require.NoError(t, err)
	assert.NotSame(t, lost, c)
	assert.False(t, c.Lost())
	assert.Equal(t, 1, opened)

	again, err := Acquire(Options{})
	require.NoError(t, err)
	assert.Same(t, c, again)
	assert.Equal(t, 1, opened)
}

func TestAcquireFailureLeavesNoContext(t *testing.T) {
	withCurrent(t, nil, func(Options) (*Context, error) {
		return nil, ErrNoCompatibleDevice
	})

	_, err := Acquire(Options{})
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageAcquire, se.Stage)
	assert.ErrorIs(t, err, ErrNoCompatibleDevice)

	currentMu.Lock()
	defer currentMu.Unlock()
	assert.Nil(t, current)
}

func TestAcquireWarnsOnDifferentOptions(t *testing.T) {
	logs := observeLogs(t)
	existing := &Context{opts: Options{Backend: "vulkan", Poll: PollBlock}}
	withCurrent(t, existing, func(Options) (*Context, error) {
		return nil, errors.New("must not open a second context")
	})

	c, err := Acquire(Options{Backend: "vulkan", Poll: PollBlock})
	require.NoError(t, err)
	assert.Same(t, existing, c)
	c, err = Acquire(Options{})
	require.NoError(t, err)
	assert.Same(t, existing, c)
	assert.Zero(t, logs.Len(), "same or default options are not a conflict")

	c, err = Acquire(Options{Backend: "metal", Poll: PollSpin})
	require.NoError(t, err)
	assert.Same(t, existing, c)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "context already acquired with different options", entry.Message)
	assert.Equal(t, "metal", entry.ContextMap()["requested_backend"])
}

func TestAcquireUnknownBackend(t *testing.T) {
	deviceOrSkip(t)
	// Keep the shared device context out of the way while the real opener
	// runs against a backend no adapter has.
	withCurrent(t, nil, open)

	_, err := Acquire(Options{Backend: "no-such-backend"})
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageAcquire, se.Stage)
	assert.ErrorIs(t, err, ErrNoCompatibleDevice)
	assert.Contains(t, err.Error(), `backend "no-such-backend" requested`)

	currentMu.Lock()
	defer currentMu.Unlock()
	assert.Nil(t, current)
}
