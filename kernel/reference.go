package kernel

import "github.com/openfluke/beamsum/layout"

// ReferenceBeamform is the sequential host reduction. Channels are summed in
// ascending order starting from +0, missing channels of a trailing partial
// group count as 0, and the sum is scaled last, so the result is bit-identical
// to the kernel's.
func ReferenceBeamform(input []float32, scale float32, channels int) []float32 {
	groups := int(GroupCount(len(input), channels))
	out := make([]float32, groups)
	for g := range out {
		var sum float32
		for c := 0; c < channels; c++ {
			var v float32
			if idx := g*channels + c; idx < len(input) {
				v = input[idx]
			}
			sum += v
		}
		out[g] = sum * scale
	}
	return out
}

// ReferenceMultiply computes value*multiplier per record.
func ReferenceMultiply(in []layout.DataElement) []float32 {
	out := make([]float32, len(in))
	for i, e := range in {
		out[i] = e.Value * e.Multiplier
	}
	return out
}

// ImpulseInput builds a samples x channels input where every channel of
// sample active is 1 and everything else is 0.
func ImpulseInput(samples, channels, active int) []float32 {
	in := make([]float32, samples*channels)
	if active < 0 || active >= samples {
		return in
	}
	for c := 0; c < channels; c++ {
		in[active*channels+c] = 1
	}
	return in
}
