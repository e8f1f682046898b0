package gpu

import (
	"errors"
	"fmt"
)

var (
	ErrNoCompatibleDevice = errors.New("no compatible compute device")
	ErrInvalidSize        = errors.New("invalid size")
	ErrOutOfBounds        = errors.New("range outside buffer")
	ErrUsage              = errors.New("operation not allowed by buffer usage")
	ErrLayoutMismatch     = errors.New("binding layout does not match kernel")
	ErrDeviceLost         = errors.New("device lost")
	ErrMapFailed          = errors.New("buffer map failed")
	ErrNotReady           = errors.New("buffer not mapped")
	ErrViewReleased       = errors.New("mapped view used after release")
)

// Stage names the part of a run that failed.
type Stage string

const (
	StageAcquire  Stage = "device acquisition"
	StageAllocate Stage = "buffer allocation"
	StageWrite    Stage = "buffer write"
	StagePipeline Stage = "pipeline setup"
	StageDispatch Stage = "dispatch"
	StageReadback Stage = "readback"
)

// StageError wraps a failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func stageErr(s Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	failures.WithLabelValues(string(s)).Inc()
	return &StageError{Stage: s, Err: err}
}
