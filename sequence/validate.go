package sequence

import (
	"errors"
	"math"
)

// timeTolerance absorbs floating point noise when comparing event ends to block durations.
const timeTolerance = 1e-12

func badTime(v float64) bool {
	return v < 0 || math.IsNaN(v) || math.IsInf(v, 0)
}

func (e RFEvent) validate() error {
	switch {
	case len(e.Envelope) == 0:
		return invalid(KindRF, "envelope", 0)
	case e.Duration <= 0 || badTime(e.Duration):
		return invalid(KindRF, "duration", e.Duration)
	case badTime(e.Delay):
		return invalid(KindRF, "delay", e.Delay)
	case badTime(e.DeadTime):
		return invalid(KindRF, "dead_time", e.DeadTime)
	case badTime(e.RingdownTime):
		return invalid(KindRF, "ringdown_time", e.RingdownTime)
	case len(e.Phase) != 0 && len(e.Phase) != len(e.Envelope):
		return &EventError{Block: -1, Kind: KindRF, Field: "phase", Value: float64(len(e.Phase)), Err: ErrShapeMismatch}
	}
	for _, v := range e.Envelope {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid(KindRF, "envelope", v)
		}
	}
	return nil
}

func (e TrapezoidGradient) validate() error {
	switch {
	case !e.Axis.Valid():
		return invalid(KindTrapezoid, "axis", float64(e.Axis))
	case math.IsNaN(e.Amplitude) || math.IsInf(e.Amplitude, 0):
		return invalid(KindTrapezoid, "amplitude", e.Amplitude)
	case badTime(e.RiseTime):
		return invalid(KindTrapezoid, "rise_time", e.RiseTime)
	case badTime(e.FlatTime):
		return invalid(KindTrapezoid, "flat_time", e.FlatTime)
	case badTime(e.FallTime):
		return invalid(KindTrapezoid, "fall_time", e.FallTime)
	case badTime(e.Delay):
		return invalid(KindTrapezoid, "delay", e.Delay)
	case e.Duration() <= 0:
		return invalid(KindTrapezoid, "duration", e.Duration())
	case e.Amplitude != 0 && (e.RiseTime == 0 || e.FallTime == 0):
		// A vertical ramp cannot be played by a gradient amplifier.
		return invalid(KindTrapezoid, "rise_time", e.RiseTime)
	}
	return nil
}

func (e ArbitraryGradient) validate() error {
	switch {
	case !e.Axis.Valid():
		return invalid(KindArbitrary, "axis", float64(e.Axis))
	case len(e.Waveform) < 2:
		return invalid(KindArbitrary, "waveform", float64(len(e.Waveform)))
	case e.Raster <= 0 || badTime(e.Raster):
		return invalid(KindArbitrary, "raster", e.Raster)
	case badTime(e.Delay):
		return invalid(KindArbitrary, "delay", e.Delay)
	case badTime(e.Duration):
		return invalid(KindArbitrary, "duration", e.Duration)
	}
	if e.Duration > 0 {
		if n := math.Round(e.Duration / e.Raster); int(n) != len(e.Waveform) {
			return &EventError{Block: -1, Kind: KindArbitrary, Field: "waveform", Value: float64(len(e.Waveform)), Err: ErrShapeMismatch}
		}
	}
	for _, v := range e.Waveform {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid(KindArbitrary, "waveform", v)
		}
	}
	return nil
}

func (e ADCEvent) validate() error {
	switch {
	case e.NumSamples <= 0:
		return invalid(KindADC, "num_samples", float64(e.NumSamples))
	case e.Dwell <= 0 || badTime(e.Dwell):
		return invalid(KindADC, "dwell", e.Dwell)
	case badTime(e.Delay):
		return invalid(KindADC, "delay", e.Delay)
	case badTime(e.DeadTime):
		return invalid(KindADC, "dead_time", e.DeadTime)
	}
	return nil
}

func (e DelayEvent) validate() error {
	if badTime(e.Duration) {
		return invalid(KindDelay, "duration", e.Duration)
	}
	return nil
}

// Validate checks the block's events and that every event fits inside the block.
func (b Block) Validate() error {
	if b.Duration <= 0 || badTime(b.Duration) {
		return invalid(KindBlock, "duration", b.Duration)
	}

	var haveRF bool
	var haveGrad [NumAxes]bool
	for _, ev := range b.Events {
		if ev == nil {
			return &EventError{Block: -1, Kind: KindBlock, Field: "event", Err: ErrValidation}
		}
		if err := ev.validate(); err != nil {
			return err
		}

		switch e := ev.(type) {
		case RFEvent:
			if haveRF {
				return &EventError{Block: -1, Kind: KindRF, Err: errors.Join(ErrValidation, errors.New("more than one rf event"))}
			}
			haveRF = true
		case TrapezoidGradient:
			if haveGrad[e.Axis] {
				return &EventError{Block: -1, Kind: KindTrapezoid, Field: "axis", Value: float64(e.Axis), Err: ErrValidation}
			}
			haveGrad[e.Axis] = true
		case ArbitraryGradient:
			if haveGrad[e.Axis] {
				return &EventError{Block: -1, Kind: KindArbitrary, Field: "axis", Value: float64(e.Axis), Err: ErrValidation}
			}
			haveGrad[e.Axis] = true
		case ADCEvent, DelayEvent:
		default:
			return &EventError{Block: -1, Kind: ev.Kind(), Err: ErrValidation}
		}

		if end := ev.End(); end > b.Duration+timeTolerance {
			return &EventError{Block: -1, Kind: ev.Kind(), Field: "end", Value: end, Err: ErrValidation}
		}
	}
	return nil
}

// Validate checks every block. The returned error is an *EventError carrying the block index.
func (s *Sequence) Validate() error {
	if s == nil || len(s.Blocks) == 0 {
		return &EventError{Block: -1, Kind: KindBlock, Field: "blocks", Err: ErrValidation}
	}
	for idx, b := range s.Blocks {
		if err := b.Validate(); err != nil {
			var ee *EventError
			if errors.As(err, &ee) {
				ee.Block = idx
			}
			return err
		}
	}
	return nil
}
