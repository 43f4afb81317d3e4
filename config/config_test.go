package config

import (
	"testing"

	"github.com/jrwynneiii/mrconsole/sequence"
	"github.com/jrwynneiii/mrconsole/unroll"
	"github.com/knadh/koanf/parsers/hcl"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestConfig(t *testing.T) *koanf.Koanf {
	t.Helper()
	k := koanf.New(".")
	require.NoError(t, k.Load(file.Provider("../testdata/config.hcl"), hcl.Parser(true)))
	return k
}

func TestLoadCalibration(t *testing.T) {
	k := loadTestConfig(t)
	c := LoadCalibration(k)

	assert.Equal(t, 2.0e6, c.LarmorFrequency)
	assert.Equal(t, unroll.DefaultGyromagneticRatio, c.GyromagneticRatio)
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, c.GradientEfficiency)
	assert.Equal(t, []float64{1, 1, 1}, c.FOVScaling)

	cal, err := c.Calibration(LoadWiring(k))
	require.NoError(t, err)
	assert.Equal(t, 0.1, cal.GradientOffset[sequence.AxisY])
	assert.Equal(t, 5.0e-8, cal.DwellTime)
	assert.True(t, cal.Wiring.Markers[unroll.LineADCGate].ActiveLow)
	assert.False(t, cal.Wiring.Markers[unroll.LineReference].ActiveLow)
	assert.Equal(t, unroll.DefaultWiring().Markers[unroll.LineRFUnblanking], cal.Wiring.Markers[unroll.LineRFUnblanking])
}

func TestCalibrationAxes(t *testing.T) {
	k := loadTestConfig(t)
	c := LoadCalibration(k)
	c.GPAGain = []float64{0.001, 0.001}

	_, err := c.Calibration(LoadWiring(k))
	assert.ErrorIs(t, err, unroll.ErrValidation)
}

func TestWiringDefaults(t *testing.T) {
	w, err := LoadWiring(koanf.New(".")).Wiring()
	require.NoError(t, err)
	assert.Equal(t, unroll.DefaultWiring(), w)
}

func TestWiringInvalid(t *testing.T) {
	w := LoadWiring(koanf.New("."))
	w.Gy = w.Gx
	_, err := w.Wiring()
	assert.ErrorIs(t, err, unroll.ErrValidation)

	w = LoadWiring(koanf.New("."))
	w.Reference.Bit = -1
	_, err = w.Wiring()
	assert.ErrorIs(t, err, unroll.ErrValidation)
}

func TestLoadDDC(t *testing.T) {
	k := loadTestConfig(t)
	d := LoadDDC(k)
	assert.Equal(t, 10, d.KernelSize)
	assert.Equal(t, 1.0, d.Scale)

	p, err := d.Pipeline(2e6, 5e-8)
	require.NoError(t, err)
	assert.Equal(t, 2.5e6, p.OutputRate())
	assert.Equal(t, 2, p.Workers)
	assert.Equal(t, 1008, p.OutputLength(4096))
}

func TestDDCSampleRateFallback(t *testing.T) {
	d := LoadDDC(koanf.New("."))
	p, err := d.Pipeline(2e6, 5e-8)
	require.NoError(t, err)
	assert.InDelta(t, 2e7, p.SampleRate, 1e-6)
}

func TestLoadTui(t *testing.T) {
	tc := LoadTui(loadTestConfig(t))
	assert.Equal(t, 250, tc.RefreshMs)
	assert.Equal(t, 2000, tc.PlotPoints)
}
