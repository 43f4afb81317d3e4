package unroll

import (
	"math"

	"github.com/jrwynneiii/mrconsole/sequence"
	"gonum.org/v1/gonum/interp"
)

// shapePoints places n shape values at the centres of n equal intervals spanning duration.
func shapePoints(n int, duration float64) []float64 {
	xs := make([]float64, n)
	step := duration / float64(n)
	for j := range xs {
		xs[j] = (float64(j) + 0.5) * step
	}
	return xs
}

// resampler returns a piecewise-linear interpolation of ys placed at the
// interval centres of duration. Outside the first and last centre the end
// values are held.
func resampler(ys []float64, duration float64) (func(float64) float64, error) {
	if len(ys) == 1 {
		v := ys[0]
		return func(float64) float64 { return v }, nil
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(shapePoints(len(ys), duration), ys); err != nil {
		return nil, err
	}
	return pl.Predict, nil
}

// arbitraryShape returns the gradient amplitude in mT/m at a time after the event delay.
func arbitraryShape(e sequence.ArbitraryGradient) (func(float64) float64, error) {
	return resampler(e.Waveform, e.ShapeDuration())
}

// envelopeShape returns the complex B1 envelope in mT at a time after the
// pulse start. Real and imaginary parts are interpolated separately so
// phase wraps in the shape do not produce spurious amplitude dips.
func envelopeShape(e sequence.RFEvent) (func(float64) complex128, error) {
	if len(e.Phase) == 0 {
		re, err := resampler(e.Envelope, e.Duration)
		if err != nil {
			return nil, err
		}
		return func(t float64) complex128 { return complex(re(t), 0) }, nil
	}

	reals := make([]float64, len(e.Envelope))
	imags := make([]float64, len(e.Envelope))
	for j, a := range e.Envelope {
		sin, cos := math.Sincos(e.Phase[j])
		reals[j] = a * cos
		imags[j] = a * sin
	}
	re, err := resampler(reals, e.Duration)
	if err != nil {
		return nil, err
	}
	im, err := resampler(imags, e.Duration)
	if err != nil {
		return nil, err
	}
	return func(t float64) complex128 { return complex(re(t), im(t)) }, nil
}
