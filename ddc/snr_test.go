package ddc

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noiseSpectrum has unit magnitude bins with varying phase and a peak of 100 at bin peak.
func noiseSpectrum(n, peak int) []complex128 {
	s := make([]complex128, n)
	for i := range s {
		s[i] = cmplx.Rect(1, 0.7*float64(i))
	}
	s[peak] = 100
	return s
}

func TestSignalToNoiseRatio(t *testing.T) {
	snr, err := SignalToNoiseRatio(noiseSpectrum(256, 40), SNROptions{DeadZone: 2})
	require.NoError(t, err)
	assert.InDelta(t, 40, snr, 1e-3)
}

func TestSignalToNoiseRatioTrim(t *testing.T) {
	s := noiseSpectrum(256, 40)
	s[200] = 50
	s[201] = -50

	snr, err := SignalToNoiseRatio(s, SNROptions{DeadZone: 2})
	require.NoError(t, err)
	assert.Less(t, snr, 30.0)

	snr, err = SignalToNoiseRatio(s, SNROptions{DeadZone: 2, Trim: 0.05})
	require.NoError(t, err)
	assert.InDelta(t, 40, snr, 1e-3)
}

func TestSignalToNoiseRatioWindows(t *testing.T) {
	s := noiseSpectrum(256, 40)
	s[10] = 200
	s[41] = 30

	snr, err := SignalToNoiseRatio(s, SNROptions{SearchStart: 20, SearchEnd: 60, DeadZone: 2, NoiseWindow: 20})
	require.NoError(t, err)
	assert.InDelta(t, 40, snr, 1e-3)
}

func TestSignalToNoiseRatioInvalid(t *testing.T) {
	tests := []struct {
		name     string
		spectrum []complex128
		opts     SNROptions
	}{
		{"empty", nil, SNROptions{}},
		{"trim", noiseSpectrum(64, 10), SNROptions{Trim: 0.5}},
		{"search past end", noiseSpectrum(64, 10), SNROptions{SearchEnd: 65}},
		{"inverted search", noiseSpectrum(64, 10), SNROptions{SearchStart: 30, SearchEnd: 20}},
		{"dead zone covers everything", noiseSpectrum(64, 10), SNROptions{DeadZone: 64}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SignalToNoiseRatio(tc.spectrum, tc.opts)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestSNRWithBandwidth(t *testing.T) {
	s := noiseSpectrum(256, 128)
	// 390.625 Hz bins: a 3 kHz window keeps 4 bins on each side of the peak out of the noise.
	for i := 125; i <= 131; i++ {
		if i != 128 {
			s[i] = 10
		}
	}
	snr, err := SNRWithBandwidth(s, 1e-5, 3000)
	require.NoError(t, err)
	assert.InDelta(t, 40, snr, 1e-3)

	_, err = SNRWithBandwidth(s, 0, 3000)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSpectrumTone(t *testing.T) {
	signal := make([]complex128, 64)
	for i := range signal {
		signal[i] = cmplx.Rect(2, 2*math.Pi*5*float64(i)/64)
	}
	spec := Spectrum(signal)
	require.Len(t, spec, 64)

	for i, v := range spec {
		if i == 37 {
			assert.InDelta(t, 2, cmplx.Abs(v), 1e-9)
		} else {
			assert.InDelta(t, 0, cmplx.Abs(v), 1e-9, "bin %d", i)
		}
	}
	assert.Nil(t, Spectrum(nil))
}

func TestSpectrumOfBaseband(t *testing.T) {
	p := testPipeline(t)
	out, err := p.Process(tone(4096, 1000, 2e6, 10e6))
	require.NoError(t, err)

	spec := Spectrum(out)
	snr, err := SignalToNoiseRatio(spec, SNROptions{DeadZone: 2})
	require.NoError(t, err)
	assert.Greater(t, snr, 60.0)
}

func TestPowerDoublePrecision(t *testing.T) {
	p := Power([]complex128{complex(1+1e-9, 0), complex(3, 4)})
	assert.InDelta(t, 2e-9, p[0]-1, 1e-15)
	assert.Equal(t, 25.0, p[1])
}
