package unroll

import (
	"fmt"
	"math/bits"
)

// Source is an analog waveform produced by the unrolling.
type Source int

const (
	SourceRF Source = iota
	SourceGx
	SourceGy
	SourceGz
)

const NumSources = 4

var sourceNames = [NumSources]string{"rf", "gx", "gy", "gz"}

func (s Source) String() string {
	if s < 0 || int(s) >= NumSources {
		return fmt.Sprintf("source(%d)", int(s))
	}
	return sourceNames[s]
}

// Line is a digital gate produced by the unrolling.
type Line int

const (
	LineRFUnblanking Line = iota
	LineADCGate
	LineReference
)

const NumLines = 3

var lineNames = [NumLines]string{"rf_unblanking", "adc_gate", "reference"}

func (l Line) String() string {
	if l < 0 || int(l) >= NumLines {
		return fmt.Sprintf("line(%d)", int(l))
	}
	return lineNames[l]
}

// Marker places a digital line in one bit of a channel word. A negative
// Channel leaves the line unwired.
type Marker struct {
	Channel   int
	Bit       uint
	ActiveLow bool
}

func (m Marker) Wired() bool { return m.Channel >= 0 }

// Wiring describes how analog sources and digital lines map onto the
// transmit card channels. It varies per deployment.
type Wiring struct {
	// Analog is the channel index of each source, -1 when the source is not played.
	Analog [NumSources]int
	// OutputLimits is the maximum absolute raw analog value per channel.
	OutputLimits []int
	Markers      [NumLines]Marker
}

// DefaultWiring is the 4 channel layout of the original console: RF on
// channel 0, gradients on 1-3 with ADC gate, phase reference and RF
// unblanking in bit 15 of gx, gy and gz.
func DefaultWiring() Wiring {
	return Wiring{
		Analog:       [NumSources]int{0, 1, 2, 3},
		OutputLimits: []int{32767, 16383, 16383, 16383},
		Markers: [NumLines]Marker{
			LineRFUnblanking: {Channel: 3, Bit: 15},
			LineADCGate:      {Channel: 1, Bit: 15},
			LineReference:    {Channel: 2, Bit: 15},
		},
	}
}

func (w Wiring) NumChannels() int { return len(w.OutputLimits) }

// markerMask returns the bits used by markers on channel ch.
func (w Wiring) markerMask(ch int) uint16 {
	var mask uint16
	for _, m := range w.Markers {
		if m.Channel == ch {
			mask |= 1 << m.Bit
		}
	}
	return mask
}

// AnalogBits is the width of the two's complement analog field of channel
// ch: every bit below the lowest marker bit.
func (w Wiring) AnalogBits(ch int) uint {
	mask := w.markerMask(ch)
	if mask == 0 {
		return 16
	}
	return uint(bits.TrailingZeros16(mask))
}

// Limit is the output limit of the channel a source is wired to.
func (w Wiring) Limit(s Source) int {
	ch := w.Analog[s]
	if ch < 0 {
		return 0
	}
	return w.OutputLimits[ch]
}

func (w Wiring) Validate() error {
	n := w.NumChannels()
	if n == 0 {
		return fmt.Errorf("wiring: no channels: %w", ErrValidation)
	}

	used := make(map[int]Source)
	for s, ch := range w.Analog {
		if ch < 0 {
			continue
		}
		if ch >= n {
			return fmt.Errorf("wiring: %s on channel %d of %d: %w", Source(s), ch, n, ErrValidation)
		}
		if other, ok := used[ch]; ok {
			return fmt.Errorf("wiring: %s and %s share channel %d: %w", other, Source(s), ch, ErrValidation)
		}
		used[ch] = Source(s)
	}

	for l, m := range w.Markers {
		if !m.Wired() {
			continue
		}
		if m.Channel >= n {
			return fmt.Errorf("wiring: %s on channel %d of %d: %w", Line(l), m.Channel, n, ErrValidation)
		}
		if m.Bit < 1 || m.Bit > 15 {
			return fmt.Errorf("wiring: %s bit %d: %w", Line(l), m.Bit, ErrValidation)
		}
		for other := l + 1; other < NumLines; other++ {
			o := w.Markers[other]
			if o.Wired() && o.Channel == m.Channel && o.Bit == m.Bit {
				return fmt.Errorf("wiring: %s and %s share bit %d of channel %d: %w", Line(l), Line(other), m.Bit, m.Channel, ErrValidation)
			}
		}
	}

	for ch, limit := range w.OutputLimits {
		field := w.AnalogBits(ch)
		maxRaw := 1<<(field-1) - 1
		if limit < 0 || limit > maxRaw {
			return fmt.Errorf("wiring: output limit %d of channel %d does not fit a %d bit analog field: %w", limit, ch, field, ErrValidation)
		}
	}
	return nil
}

// PackWord combines a validated analog value with marker bits. The analog
// value is truncated to its field as two's complement so it can never reach a marker bit.
func PackWord(analog int16, analogBits uint, markers uint16) uint16 {
	mask := uint16(1<<analogBits - 1)
	return uint16(analog)&mask | markers
}

// UnpackAnalog recovers the sign-extended analog value from a packed word.
func UnpackAnalog(word uint16, analogBits uint) int16 {
	shift := 16 - analogBits
	return int16(word<<shift) >> shift
}

// MarkerBits returns the bits m contributes to a word for the given gate state.
func MarkerBits(m Marker, asserted bool) uint16 {
	if asserted != m.ActiveLow {
		return 1 << m.Bit
	}
	return 0
}

// UnpackMarker reports whether the line behind m is asserted in word.
func UnpackMarker(word uint16, m Marker) bool {
	return (word>>m.Bit&1 == 1) != m.ActiveLow
}
