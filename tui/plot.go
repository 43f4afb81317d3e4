package tui

import (
	"math"

	"github.com/jrwynneiii/mrconsole/unroll"
	"github.com/racerxdl/segdsp/dsp"
	"github.com/racerxdl/segdsp/tools"
)

// downsample keeps every n-th value so that at most points values remain.
func downsample(v []float64, points int) []float64 {
	if points <= 0 || len(v) <= points {
		return v
	}
	step := (len(v) + points - 1) / points
	out := make([]float64, 0, points)
	for i := 0; i < len(v); i += step {
		out = append(out, v[i])
	}
	return out
}

// channelTraces returns the analog sources of samples [from, to) scaled to
// their output limits, one trace per source.
func channelTraces(u *unroll.UnrolledSequence, from, to, points int) [][]float64 {
	traces := make([][]float64, 0, unroll.NumSources)
	for s := range unroll.NumSources {
		src := unroll.Source(s)
		samples := u.Analog(src)
		limit := float64(u.Wiring.Limit(src))
		trace := make([]float64, to-from)
		if samples != nil && limit > 0 {
			for i := range trace {
				trace[i] = float64(samples[from+i]) / limit
			}
		}
		traces = append(traces, downsample(trace, points))
	}
	return traces
}

// rfEnvelope mixes the modulated RF of samples [from, to) back to baseband
// and low-pass filters it with a cut off at bandwidth Hz, returning the
// envelope magnitude in raw units.
func rfEnvelope(u *unroll.UnrolledSequence, from, to int, bandwidth float64) []float64 {
	rate := 1 / u.DwellTime
	samples := make([]complex64, to-from)
	for i := range samples {
		g := from + i
		_, frac := math.Modf(u.LarmorFrequency * u.DwellTime * float64(g))
		sin, cos := math.Sincos(-2 * math.Pi * frac)
		rf := complex(float64(u.RF[g]), float64(u.RFQuadrature[g]))
		samples[i] = complex64(rf * complex(cos, sin))
	}

	filter := dsp.MakeFirFilter(dsp.MakeLowPass(1, rate, bandwidth, bandwidth/2))
	filtered := filter.Work(samples)

	out := make([]float64, len(filtered))
	for i, v := range filtered {
		out[i] = math.Sqrt(float64(tools.ComplexAbsSquared(v)))
	}
	return out
}
