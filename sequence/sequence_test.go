package sequence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFID(t *testing.T) {
	seq, err := Load("../testdata/fid.yaml")
	require.NoError(t, err)

	assert.Equal(t, "fid", seq.Name)
	assert.Equal(t, "0.25", seq.Definitions["FOV"])
	require.Len(t, seq.Blocks, 4)
	assert.InDelta(t, 8.0e-4, seq.Duration(), 1e-15)

	rf, ok := seq.Blocks[0].RF()
	require.True(t, ok)
	assert.Len(t, rf.Envelope, 7)
	assert.InDelta(t, 2.0e-5, rf.DeadTime, 1e-18)

	trap, ok := seq.Blocks[1].Events[0].(TrapezoidGradient)
	require.True(t, ok)
	assert.Equal(t, AxisX, trap.Axis)

	grad, ok := seq.Blocks[2].Events[1].(ArbitraryGradient)
	require.True(t, ok)
	assert.Equal(t, AxisY, grad.Axis)
	assert.InDelta(t, 6.0e-5, grad.ShapeDuration(), 1e-18)

	_, ok = seq.Blocks[3].Events[0].(DelayEvent)
	assert.True(t, ok)
}

func TestParseUnknownKind(t *testing.T) {
	_, err := Parse([]byte(`
blocks:
  - duration: 1.0e-4
    events:
      - kind: shim
        value: 3
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "shim")
}

func TestParseUnknownAxis(t *testing.T) {
	_, err := Parse([]byte(`
blocks:
  - duration: 1.0e-4
    events:
      - kind: trap
        axis: w
        amplitude: 1
        rise_time: 1.0e-5
        fall_time: 1.0e-5
`))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTrapezoidAt(t *testing.T) {
	trap := TrapezoidGradient{Amplitude: 10, RiseTime: 1e-5, FlatTime: 2e-5, FallTime: 1e-5}

	assert.InDelta(t, 0.0, trap.At(0), 1e-12)
	assert.InDelta(t, 5.0, trap.At(0.5e-5), 1e-9)
	assert.InDelta(t, 10.0, trap.At(2e-5), 1e-12)
	assert.InDelta(t, 5.0, trap.At(3.5e-5), 1e-9)
	assert.InDelta(t, 0.0, trap.At(4e-5), 1e-12)
	assert.InDelta(t, 0.0, trap.At(-1), 1e-12)
}

func TestValidate(t *testing.T) {
	adc := ADCEvent{NumSamples: 10, Dwell: 1e-6}
	tests := []struct {
		name  string
		block Block
		kind  EventKind
		field string
		err   error
	}{
		{"negative block duration", Block{Duration: -1e-3}, KindBlock, "duration", ErrValidation},
		{"negative rf duration", Block{Duration: 1e-3, Events: []Event{RFEvent{Envelope: []float64{1}, Duration: -1e-4}}}, KindRF, "duration", ErrValidation},
		{"empty envelope", Block{Duration: 1e-3, Events: []Event{RFEvent{Duration: 1e-4}}}, KindRF, "envelope", ErrValidation},
		{"phase length", Block{Duration: 1e-3, Events: []Event{RFEvent{Envelope: []float64{1, 1}, Phase: []float64{0}, Duration: 1e-4}}}, KindRF, "phase", ErrShapeMismatch},
		{"rf past block end", Block{Duration: 1e-4, Events: []Event{RFEvent{Envelope: []float64{1}, Duration: 1e-4, Delay: 1e-5}}}, KindRF, "end", ErrValidation},
		{"two gradients on one axis", Block{Duration: 1e-3, Events: []Event{
			TrapezoidGradient{Axis: AxisZ, Amplitude: 1, RiseTime: 1e-5, FallTime: 1e-5},
			ArbitraryGradient{Axis: AxisZ, Waveform: []float64{0, 1}, Raster: 1e-5},
		}}, KindArbitrary, "axis", ErrValidation},
		{"arbitrary shape mismatch", Block{Duration: 1e-3, Events: []Event{ArbitraryGradient{Waveform: []float64{0, 1, 0}, Raster: 1e-5, Duration: 5e-5}}}, KindArbitrary, "waveform", ErrShapeMismatch},
		{"zero adc samples", Block{Duration: 1e-3, Events: []Event{ADCEvent{Dwell: 1e-6}}}, KindADC, "num_samples", ErrValidation},
		{"nil event", Block{Duration: 1e-3, Events: []Event{adc, nil}}, KindBlock, "event", ErrValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seq := &Sequence{Blocks: []Block{{Duration: 1e-3}, tc.block}}
			err := seq.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.err)

			var ee *EventError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, 1, ee.Block)
			assert.Equal(t, tc.kind, ee.Kind)
			assert.Equal(t, tc.field, ee.Field)
			assert.Contains(t, err.Error(), "block 1")
		})
	}
}

func TestValidateEmptySequence(t *testing.T) {
	assert.ErrorIs(t, (&Sequence{}).Validate(), ErrValidation)
}

func TestValidateMultipleADC(t *testing.T) {
	seq := &Sequence{Blocks: []Block{{Duration: 1e-3, Events: []Event{
		ADCEvent{NumSamples: 100, Dwell: 1e-6},
		ADCEvent{NumSamples: 50, Dwell: 1e-6, Delay: 1e-4},
	}}}}
	assert.NoError(t, seq.Validate())
}
