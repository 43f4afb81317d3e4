package ddc

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/mrconsole/unroll"
)

// ErrInvalidParameter marks a pipeline parameter the down-conversion cannot work with.
var ErrInvalidParameter = errors.New("invalid ddc parameter")

// Pipeline demodulates raw receiver samples to complex baseband. Mixing
// moves LarmorFrequency to zero, a cascade of moving averages decimates by
// Decimation/2 and a droop compensating FIR decimates by the remaining 2.
//
// A Pipeline is built once with New and is safe for concurrent use.
type Pipeline struct {
	LarmorFrequency float64
	// SampleRate is the receiver sample rate in Hz.
	SampleRate float64
	// Decimation is the total rate reduction. It must be even.
	Decimation int
	// KernelSize is the length of each moving average stage.
	KernelSize int
	Stages     int
	// CompensationTaps is the odd length of the compensation filter.
	CompensationTaps int
	// DigitalBits is the number of marker bits at the top of each raw word.
	DigitalBits uint
	// Scale converts one raw unit to the output unit, usually mV.
	Scale float64
	// Workers bounds the readouts processed in parallel by ProcessAcquisition.
	Workers int

	taps []float64
}

func invalid(field string, value any) error {
	return fmt.Errorf("ddc %s = %v: %w", field, value, ErrInvalidParameter)
}

// New validates p and designs its compensation filter.
func New(p Pipeline) (*Pipeline, error) {
	switch {
	case !(p.SampleRate > 0) || math.IsInf(p.SampleRate, 0):
		return nil, invalid("sample_rate", p.SampleRate)
	case !(p.LarmorFrequency >= 0) || p.LarmorFrequency >= p.SampleRate/2:
		return nil, invalid("larmor_frequency", p.LarmorFrequency)
	case p.Decimation < 2 || p.Decimation%2 != 0:
		return nil, invalid("decimation", p.Decimation)
	case p.KernelSize < 1:
		return nil, invalid("kernel_size", p.KernelSize)
	case p.Stages < 1:
		return nil, invalid("stages", p.Stages)
	case p.CompensationTaps < 1 || p.CompensationTaps%2 == 0:
		return nil, invalid("compensation_taps", p.CompensationTaps)
	case p.DigitalBits > 15:
		return nil, invalid("digital_bits", p.DigitalBits)
	case !(p.Scale > 0) || math.IsInf(p.Scale, 0):
		return nil, invalid("scale", p.Scale)
	}
	if p.Workers < 1 {
		p.Workers = runtime.GOMAXPROCS(0)
	}

	taps, err := compensationFilter(p.SampleRate, p.Decimation, p.KernelSize, p.Stages, p.CompensationTaps)
	if err != nil {
		return nil, err
	}
	p.taps = taps

	log.Debugf("[ddc] Pipeline: f0 %g Hz at %g Hz, decimation %d, %d stages of %d, %d compensation taps",
		p.LarmorFrequency, p.SampleRate, p.Decimation, p.Stages, p.KernelSize, p.CompensationTaps)
	return &p, nil
}

// OutputRate is the baseband sample rate in Hz.
func (p *Pipeline) OutputRate() float64 {
	return p.SampleRate / float64(p.Decimation)
}

// Taps returns a copy of the compensation filter.
func (p *Pipeline) Taps() []float64 {
	return append([]float64(nil), p.taps...)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// OutputLength is the number of baseband samples Process returns for n raw
// samples. Every filter stage only produces outputs with a full kernel of
// history, so with N stages of kernel K, R = decimation/2 and T taps:
//
//	L1 = n - N(K-1)
//	L2 = ceil(L1 / R)
//	L3 = ceil((L2 - T + 1) / 2)
//
// and zero once any of them drops to zero or below.
func OutputLength(n, decimation, kernelSize, stages, taps int) int {
	l1 := n - stages*(kernelSize-1)
	if l1 <= 0 {
		return 0
	}
	l2 := ceilDiv(l1, decimation/2)
	valid := l2 - taps + 1
	if valid <= 0 {
		return 0
	}
	return ceilDiv(valid, 2)
}

// OutputLength is the package OutputLength for this pipeline's parameters.
func (p *Pipeline) OutputLength(n int) int {
	return OutputLength(n, p.Decimation, p.KernelSize, p.Stages, p.CompensationTaps)
}

// Samples strips the marker bits from raw words and applies Scale.
func (p *Pipeline) Samples(raw []int16) []float64 {
	out := make([]float64, len(raw))
	bits := 16 - p.DigitalBits
	for i, w := range raw {
		out[i] = float64(unroll.UnpackAnalog(uint16(w), bits)) * p.Scale
	}
	return out
}

// Process down-converts one readout. The mixer phase is zero at raw[0] so
// repeated readouts of the same signal line up. Readouts too short to fill
// every filter return an empty result.
func (p *Pipeline) Process(raw []int16) ([]complex128, error) {
	if p.taps == nil {
		return nil, fmt.Errorf("ddc pipeline used without New: %w", ErrInvalidParameter)
	}
	want := p.OutputLength(len(raw))
	if want == 0 {
		return []complex128{}, nil
	}

	x := mix(p.Samples(raw), p.LarmorFrequency/p.SampleRate)
	for range p.Stages {
		x = movingAverage(x, p.KernelSize)
	}
	x = decimate(x, p.Decimation/2)
	x = decimate(fir(x, p.taps), 2)

	if len(x) != want {
		return nil, fmt.Errorf("ddc produced %d samples, want %d: %w", len(x), want, ErrInvalidParameter)
	}
	return x, nil
}
