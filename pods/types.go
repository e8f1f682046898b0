package pods

import "fmt"

// Frame is a sample-major block of channel data: Data[s*Channels+c].
type Frame struct {
	Data     []float32
	Samples  int
	Channels int
}

func NewFrame(samples, channels int) Frame {
	return Frame{Data: make([]float32, samples*channels), Samples: samples, Channels: channels}
}

// At returns the value of channel c in sample s.
func (f Frame) At(s, c int) float32 { return f.Data[s*f.Channels+c] }

// Set writes the value of channel c in sample s.
func (f Frame) Set(s, c int, v float32) { f.Data[s*f.Channels+c] = v }

func (f Frame) validate(channels int) error {
	if f.Channels != channels {
		return fmt.Errorf("frame has %d channels, kernel sums %d", f.Channels, channels)
	}
	if f.Samples <= 0 || len(f.Data) != f.Samples*f.Channels {
		return fmt.Errorf("frame of %d samples holds %d values", f.Samples, len(f.Data))
	}
	return nil
}
