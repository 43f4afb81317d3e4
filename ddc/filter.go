package ddc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// designOversampling is the ratio of design grid points to filter taps.
const designOversampling = 32

// mix shifts x down by the normalized frequency f and doubles it, so a real
// cosine of amplitude A at f becomes A at DC.
func mix(x []float64, f float64) []complex128 {
	out := make([]complex128, len(x))
	for n, v := range x {
		_, frac := math.Modf(f * float64(n))
		sin, cos := math.Sincos(-2 * math.Pi * frac)
		out[n] = complex(2*v*cos, 2*v*sin)
	}
	return out
}

// movingAverage is one comb stage: the mean over k samples, keeping only
// positions with a full window.
func movingAverage(x []complex128, k int) []complex128 {
	if len(x) < k {
		return nil
	}
	out := make([]complex128, len(x)-k+1)
	scale := complex(1/float64(k), 0)
	for j := range out {
		var sum complex128
		for _, v := range x[j : j+k] {
			sum += v
		}
		out[j] = sum * scale
	}
	return out
}

func decimate(x []complex128, r int) []complex128 {
	out := make([]complex128, 0, ceilDiv(len(x), r))
	for j := 0; j < len(x); j += r {
		out = append(out, x[j])
	}
	return out
}

// fir applies symmetric taps to every full window of x.
func fir(x []complex128, taps []float64) []complex128 {
	if len(x) < len(taps) {
		return nil
	}
	out := make([]complex128, len(x)-len(taps)+1)
	for j := range out {
		var re, im float64
		for t, h := range taps {
			re += h * real(x[j+t])
			im += h * imag(x[j+t])
		}
		out[j] = complex(re, im)
	}
	return out
}

// cicResponse is the magnitude response of stages moving averages of
// length k at frequency f.
func cicResponse(f, sampleRate float64, k, stages int) float64 {
	x := math.Pi * f / sampleRate
	s := math.Sin(x)
	if math.Abs(s) < 1e-15 {
		return 1
	}
	return math.Abs(math.Pow(math.Sin(x*float64(k))/(float64(k)*s), float64(stages)))
}

// compensationFilter designs the FIR running after the moving averages at
// sampleRate/(decimation/2). Its target response is the inverse CIC droop
// up to the passband edge and zero above. The edge is the output Nyquist
// frequency or half the first CIC null, whichever is lower, so the inverse
// stays bounded. The ideal response is sampled on a dense grid, transformed
// back, truncated to taps and Hamming windowed. Taps sum to one.
func compensationFilter(sampleRate float64, decimation, k, stages, taps int) ([]float64, error) {
	rate := sampleRate / float64(decimation/2)
	edge := min(sampleRate/float64(2*decimation), sampleRate/float64(2*k))

	grid := designOversampling * taps
	coeff := make([]complex128, grid/2+1)
	for i := range coeff {
		f := float64(i) * rate / float64(grid)
		if f > edge {
			break
		}
		coeff[i] = complex(1/cicResponse(f, sampleRate, k, stages), 0)
	}
	impulse := fourier.NewFFT(grid).Sequence(nil, coeff)

	half := (taps - 1) / 2
	h := make([]float64, taps)
	for j := range h {
		h[j] = impulse[(j-half+grid)%grid]
	}
	if taps > 1 {
		window.Hamming(h)
	}

	sum := floats.Sum(h)
	if !(sum > 0) {
		return nil, fmt.Errorf("compensation filter has no DC gain: %w", ErrInvalidParameter)
	}
	floats.Scale(1/sum, h)
	return h, nil
}
