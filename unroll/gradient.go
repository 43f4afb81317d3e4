package unroll

import (
	"math"

	"github.com/jrwynneiii/mrconsole/sequence"
)

func gradientSource(axis sequence.Axis) Source {
	return SourceGx + Source(axis)
}

// gradientRaw applies FOV scaling and the axis offset to a physical
// amplitude and converts it to raw units. Values beyond the output limit are
// rejected, never clipped.
func (p *provider) gradientRaw(blk *block, kind sequence.EventKind, axis sequence.Axis, physical float64) (int16, error) {
	g := physical*p.cal.FOVScaling[axis] + p.cal.GradientOffset[axis]
	raw := p.cal.GradientRaw(axis, g)
	if math.Abs(raw) > float64(p.cal.Wiring.Limit(gradientSource(axis))) {
		return 0, eventError(blk.index, kind, "amplitude", raw, ErrAmplitude)
	}
	return int16(raw), nil
}

// idle fills an axis without a gradient event with its offset level.
func (p *provider) idle(blk *block, axis sequence.Axis) error {
	raw, err := p.gradientRaw(blk, sequence.KindBlock, axis, 0)
	if err != nil {
		return err
	}
	dst := blk.grads[axis]
	for k := range dst {
		dst[k] = raw
	}
	return nil
}

// gradient samples shape on the block grid. Samples before the event hold
// the offset level; samples after it hold whatever shape returns past its
// end, zero for trapezoids and the last value for arbitrary shapes.
func (p *provider) gradient(blk *block, kind sequence.EventKind, axis sequence.Axis, delay, duration float64, shape func(float64) float64) error {
	from, _, err := p.eventSpan(blk, kind, delay, duration)
	if err != nil {
		return err
	}
	idle, err := p.gradientRaw(blk, kind, axis, 0)
	if err != nil {
		return err
	}

	dt := p.cal.DwellTime
	dst := blk.grads[axis]
	for k := range dst {
		g := blk.start + k
		if g < from {
			dst[k] = idle
			continue
		}
		raw, err := p.gradientRaw(blk, kind, axis, shape(float64(g-from)*dt))
		if err != nil {
			return err
		}
		dst[k] = raw
	}
	return nil
}
