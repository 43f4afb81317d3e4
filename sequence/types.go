package sequence

import (
	"fmt"
	"strings"
)

// Axis is a spatial gradient axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// NumAxes is the number of gradient axes.
const NumAxes = 3

var axisNames = [NumAxes]string{"x", "y", "z"}

func (a Axis) String() string {
	if a < 0 || int(a) >= NumAxes {
		return fmt.Sprintf("axis(%d)", int(a))
	}
	return axisNames[a]
}

func (a Axis) Valid() bool {
	return a >= AxisX && a <= AxisZ
}

func ParseAxis(s string) (Axis, error) {
	for idx, name := range axisNames {
		if strings.EqualFold(s, name) {
			return Axis(idx), nil
		}
	}
	return 0, fmt.Errorf("unknown gradient axis %q: %w", s, ErrValidation)
}

func (a *Axis) UnmarshalText(text []byte) error {
	parsed, err := ParseAxis(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Axis) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// EventKind tags the concrete type behind an Event.
type EventKind int

const (
	KindBlock EventKind = iota
	KindRF
	KindTrapezoid
	KindArbitrary
	KindADC
	KindDelay
)

var kindNames = map[EventKind]string{
	KindBlock:     "block",
	KindRF:        "rf",
	KindTrapezoid: "trap",
	KindArbitrary: "grad",
	KindADC:       "adc",
	KindDelay:     "delay",
}

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is one of RFEvent, TrapezoidGradient, ArbitraryGradient, ADCEvent or DelayEvent.
// All times are in seconds relative to the start of the enclosing block.
type Event interface {
	Kind() EventKind
	// End is the time at which the event has finished, including its delay.
	End() float64
	validate() error
}

// RFEvent is an RF pulse. Envelope holds the B1 amplitude in mT, sampled
// uniformly over Duration. Phase is optional and, when set, holds a per
// sample phase in radians for complex envelopes.
type RFEvent struct {
	Envelope        []float64 `yaml:"envelope"`
	Phase           []float64 `yaml:"phase,omitempty"`
	Duration        float64   `yaml:"duration"`
	Delay           float64   `yaml:"delay"`
	DeadTime        float64   `yaml:"dead_time"`
	RingdownTime    float64   `yaml:"ringdown_time"`
	FrequencyOffset float64   `yaml:"freq_offset"`
	PhaseOffset     float64   `yaml:"phase_offset"`
}

func (RFEvent) Kind() EventKind { return KindRF }

func (e RFEvent) End() float64 { return e.Delay + e.Duration + e.RingdownTime }

// TrapezoidGradient is a trapezoidal gradient lobe. Amplitude is the flat top in mT/m.
type TrapezoidGradient struct {
	Axis      Axis    `yaml:"axis"`
	Amplitude float64 `yaml:"amplitude"`
	RiseTime  float64 `yaml:"rise_time"`
	FlatTime  float64 `yaml:"flat_time"`
	FallTime  float64 `yaml:"fall_time"`
	Delay     float64 `yaml:"delay"`
}

func (TrapezoidGradient) Kind() EventKind { return KindTrapezoid }

func (e TrapezoidGradient) Duration() float64 { return e.RiseTime + e.FlatTime + e.FallTime }

func (e TrapezoidGradient) End() float64 { return e.Delay + e.Duration() }

// At returns the gradient amplitude in mT/m at time t after the end of the delay.
func (e TrapezoidGradient) At(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t < e.RiseTime:
		return e.Amplitude * t / e.RiseTime
	case t < e.RiseTime+e.FlatTime:
		return e.Amplitude
	case t < e.Duration():
		return e.Amplitude * (e.Duration() - t) / e.FallTime
	default:
		return 0
	}
}

// ArbitraryGradient is a gradient shape sampled on its own raster. Waveform
// holds mT/m values at the centre of each raster interval. A zero Duration
// means len(Waveform)*Raster.
type ArbitraryGradient struct {
	Axis     Axis      `yaml:"axis"`
	Waveform []float64 `yaml:"waveform"`
	Raster   float64   `yaml:"raster"`
	Delay    float64   `yaml:"delay"`
	Duration float64   `yaml:"duration"`
}

func (ArbitraryGradient) Kind() EventKind { return KindArbitrary }

func (e ArbitraryGradient) ShapeDuration() float64 {
	if e.Duration > 0 {
		return e.Duration
	}
	return float64(len(e.Waveform)) * e.Raster
}

func (e ArbitraryGradient) End() float64 { return e.Delay + e.ShapeDuration() }

// ADCEvent opens the receiver for NumSamples samples of Dwell seconds each.
type ADCEvent struct {
	NumSamples int     `yaml:"num_samples"`
	Dwell      float64 `yaml:"dwell"`
	Delay      float64 `yaml:"delay"`
	DeadTime   float64 `yaml:"dead_time"`
}

func (ADCEvent) Kind() EventKind { return KindADC }

// Start is the gate opening time, the later of Delay and DeadTime.
func (e ADCEvent) Start() float64 { return max(e.Delay, e.DeadTime) }

func (e ADCEvent) Duration() float64 { return float64(e.NumSamples) * e.Dwell }

func (e ADCEvent) End() float64 { return e.Start() + e.Duration() }

// DelayEvent is a pure wait.
type DelayEvent struct {
	Duration float64 `yaml:"duration"`
}

func (DelayEvent) Kind() EventKind { return KindDelay }

func (e DelayEvent) End() float64 { return e.Duration }

// Block is one step of a sequence. Duration upper-bounds every event in it.
type Block struct {
	Duration float64
	Events   []Event
}

// Sequence is the hardware independent description of an MR sequence.
type Sequence struct {
	Name        string
	Definitions map[string]string
	Blocks      []Block
}

// Duration is the sum of all block durations.
func (s *Sequence) Duration() float64 {
	var total float64
	for _, b := range s.Blocks {
		total += b.Duration
	}
	return total
}

// RF returns the block's RF event, if any.
func (b Block) RF() (RFEvent, bool) {
	for _, ev := range b.Events {
		if rf, ok := ev.(RFEvent); ok {
			return rf, true
		}
	}
	return RFEvent{}, false
}
