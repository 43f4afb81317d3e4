package unroll

import "math"

// gridSnap is the distance in samples below which a time is considered to
// lie exactly on a grid point or exactly halfway between two.
const gridSnap = 1e-6

// toSamples maps a time in seconds to the nearest sample index. Exact ties
// round toward zero, so an event boundary halfway between two samples
// belongs to the earlier one.
func toSamples(t, dwell float64) int {
	x := t / dwell
	r := math.Round(x)
	if math.Abs(x-r) < gridSnap {
		return int(r)
	}
	trunc := math.Trunc(x)
	if math.Abs(math.Abs(x-trunc)-0.5) < gridSnap {
		return int(trunc)
	}
	return int(r)
}

// clock accumulates block durations with Neumaier compensation so that block
// boundaries of long sequences do not drift on the sample grid.
type clock struct {
	sum, comp float64
}

func (c *clock) add(d float64) {
	t := c.sum + d
	if math.Abs(c.sum) >= math.Abs(d) {
		c.comp += (c.sum - t) + d
	} else {
		c.comp += (d - t) + c.sum
	}
	c.sum = t
}

func (c *clock) now() float64 { return c.sum + c.comp }

// cycles returns the fractional number of carrier cycles at sample n. The
// product is reduced before the multiply by 2π to keep the phase exact for
// long sequences.
func cycles(freq, dwell float64, n int) float64 {
	_, frac := math.Modf(freq * dwell * float64(n))
	return frac
}
