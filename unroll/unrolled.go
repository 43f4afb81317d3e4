package unroll

import (
	"github.com/jrwynneiii/mrconsole/sequence"
)

// ADCWindow is one contiguous run of asserted ADC gate samples.
type ADCWindow struct {
	Start  int
	Length int
}

// UnrolledSequence is the sample-accurate rendition of a sequence for one
// transmit card. Every per-sample slice has exactly SampleCount entries and
// is not modified after Unroll returns.
type UnrolledSequence struct {
	SampleCount int
	// ADCCount is the number of samples with the ADC gate asserted.
	ADCCount  int
	DwellTime float64
	Duration  float64

	// Gradients holds the raw analog value of each gradient axis.
	Gradients [sequence.NumAxes][]int16
	// RF and RFQuadrature are the I/Q pair of the modulated carrier. RF is
	// the component played by the DAC.
	RF           []int16
	RFQuadrature []int16

	RFUnblanking []bool
	ADCGate      []bool
	// Reference is the phase reference clock, high while cos(2π f t) > 0 during ADC gating.
	Reference []bool

	// Channels holds the packed words streamed to the card, one slice per channel.
	Channels [][]uint16

	ADCWindows  []ADCWindow
	BlockStarts []int

	LarmorFrequency    float64
	GradientEfficiency Axes
	GPAGain            Axes
	RFToMVolt          float64
	Wiring             Wiring

	Meta map[string]string
}

// Analog returns the raw analog samples of a source.
func (u *UnrolledSequence) Analog(s Source) []int16 {
	switch s {
	case SourceRF:
		return u.RF
	case SourceGx:
		return u.Gradients[sequence.AxisX]
	case SourceGy:
		return u.Gradients[sequence.AxisY]
	case SourceGz:
		return u.Gradients[sequence.AxisZ]
	}
	return nil
}

// Gate returns the samples of a digital line.
func (u *UnrolledSequence) Gate(l Line) []bool {
	switch l {
	case LineRFUnblanking:
		return u.RFUnblanking
	case LineADCGate:
		return u.ADCGate
	case LineReference:
		return u.Reference
	}
	return nil
}

// Interleave returns the packed channel words in card order:
// ch0[0], ch1[0], ..., chN[0], ch0[1], ...
func (u *UnrolledSequence) Interleave() []int16 {
	n := len(u.Channels)
	out := make([]int16, n*u.SampleCount)
	for ch, words := range u.Channels {
		for i, w := range words {
			out[i*n+ch] = int16(w)
		}
	}
	return out
}

// ReadoutCount is the number of distinct ADC windows the receiver will capture.
func (u *UnrolledSequence) ReadoutCount() int {
	return len(u.ADCWindows)
}
