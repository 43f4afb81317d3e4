package ddc

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Spectrum returns the centred discrete Fourier transform of a baseband
// readout scaled by 1/n, so a tone of amplitude A shows as a bin of magnitude A.
// Zero frequency sits at index n/2.
func Spectrum(signal []complex128) []complex128 {
	n := len(signal)
	if n == 0 {
		return nil
	}
	fft := fourier.NewCmplxFFT(n)
	coeff := fft.Coefficients(nil, signal)

	out := make([]complex128, n)
	scale := complex(1/float64(n), 0)
	for i := range out {
		out[i] = coeff[fft.ShiftIdx(i)] * scale
	}
	return out
}

// Power returns the squared magnitude of every bin.
func Power(spectrum []complex128) []float64 {
	out := make([]float64, len(spectrum))
	for i, c := range spectrum {
		out[i] = real(c)*real(c) + imag(c)*imag(c)
	}
	return out
}

// SNROptions selects the bins used by SignalToNoiseRatio.
type SNROptions struct {
	// SearchStart and SearchEnd bound the half-open bin range searched for
	// the peak. A zero SearchEnd searches to the end of the spectrum.
	SearchStart int
	SearchEnd   int
	// DeadZone is the number of bins on each side of the peak kept out of
	// the noise estimate.
	DeadZone int
	// NoiseWindow limits the noise estimate to this many bins on each side
	// beyond the dead zone. Zero uses every remaining bin.
	NoiseWindow int
	// Trim is the fraction of noise bins dropped from each end of the sorted
	// powers before averaging.
	Trim float64
}

// SignalToNoiseRatio reports 20·log10(peak / noise_rms) in dB, where
// noise_rms is the square root of the trimmed mean power outside the dead
// zone around the peak.
func SignalToNoiseRatio(spectrum []complex128, opts SNROptions) (float64, error) {
	end := opts.SearchEnd
	if end == 0 {
		end = len(spectrum)
	}
	switch {
	case opts.SearchStart < 0 || opts.SearchStart >= end || end > len(spectrum):
		return 0, fmt.Errorf("snr search range [%d, %d) of %d bins: %w", opts.SearchStart, end, len(spectrum), ErrInvalidParameter)
	case opts.DeadZone < 0 || opts.NoiseWindow < 0:
		return 0, fmt.Errorf("snr dead zone %d, noise window %d: %w", opts.DeadZone, opts.NoiseWindow, ErrInvalidParameter)
	case !(opts.Trim >= 0 && opts.Trim < 0.5):
		return 0, fmt.Errorf("snr trim %g: %w", opts.Trim, ErrInvalidParameter)
	}

	power := Power(spectrum)
	peak := opts.SearchStart + floats.MaxIdx(power[opts.SearchStart:end])

	var noise []float64
	for i, v := range power {
		d := i - peak
		if d < 0 {
			d = -d
		}
		if d <= opts.DeadZone {
			continue
		}
		if opts.NoiseWindow > 0 && d > opts.DeadZone+opts.NoiseWindow {
			continue
		}
		noise = append(noise, v)
	}

	slices.Sort(noise)
	cut := int(opts.Trim * float64(len(noise)))
	noise = noise[cut : len(noise)-cut]
	if len(noise) == 0 {
		return 0, fmt.Errorf("snr: no noise bins outside dead zone of %d around bin %d: %w", opts.DeadZone, peak, ErrInvalidParameter)
	}

	noisePower := stat.Mean(noise, nil)
	if noisePower == 0 {
		return math.Inf(1), nil
	}
	return 10 * math.Log10(power[peak]/noisePower), nil
}

// SNRWithBandwidth estimates the SNR of a centred spectrum of a readout
// sampled every dwellTime seconds, excluding a window of windowWidth Hz
// around the peak from the noise.
func SNRWithBandwidth(spectrum []complex128, dwellTime, windowWidth float64) (float64, error) {
	if !(dwellTime > 0) || !(windowWidth >= 0) {
		return 0, fmt.Errorf("snr dwell time %g, window %g Hz: %w", dwellTime, windowWidth, ErrInvalidParameter)
	}
	binWidth := 1 / (float64(len(spectrum)) * dwellTime)
	return SignalToNoiseRatio(spectrum, SNROptions{
		DeadZone: int(math.Round(windowWidth / 2 / binWidth)),
	})
}
