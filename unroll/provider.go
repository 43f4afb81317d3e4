package unroll

import (
	"fmt"
	"math"
	"math/cmplx"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/mrconsole/sequence"
)

// block holds the samples of one block before they are appended to the output.
type block struct {
	index      int
	start, end int
	t0         float64

	grads   [sequence.NumAxes][]int16
	rfI     []int16
	rfQ     []int16
	unblank []bool
	adc     []bool
	ref     []bool
}

func newBlock(index, start, end int, t0 float64) *block {
	n := end - start
	b := &block{
		index:   index,
		start:   start,
		end:     end,
		t0:      t0,
		rfI:     make([]int16, n),
		rfQ:     make([]int16, n),
		unblank: make([]bool, n),
		adc:     make([]bool, n),
		ref:     make([]bool, n),
	}
	for axis := range b.grads {
		b.grads[axis] = make([]int16, n)
	}
	return b
}

// provider is the state of a single Unroll call.
type provider struct {
	cal Calibration
	out *UnrolledSequence

	// unblankUntil is the absolute sample up to which RF unblanking is still owed.
	unblankUntil int
}

// Unroll converts seq into per-channel sample arrays for the card described
// by cal. Blocks are processed in order and each block's samples directly
// follow the previous block's. Either the whole sequence unrolls or an
// error is returned; nothing partial is produced. Identical inputs always
// produce bit-identical output.
func Unroll(seq *sequence.Sequence, cal Calibration) (*UnrolledSequence, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	cal.Wiring.OutputLimits = append([]int(nil), cal.Wiring.OutputLimits...)

	dt := cal.DwellTime
	starts := make([]int, len(seq.Blocks)+1)
	times := make([]float64, len(seq.Blocks))
	var clk clock
	for idx, b := range seq.Blocks {
		times[idx] = clk.now()
		starts[idx] = toSamples(times[idx], dt)
		clk.add(b.Duration)
	}
	total := toSamples(clk.now(), dt)
	starts[len(seq.Blocks)] = total

	for idx, b := range seq.Blocks {
		if starts[idx+1] == starts[idx] {
			return nil, eventError(idx, sequence.KindBlock, "duration", b.Duration, ErrTiming)
		}
	}

	p := &provider{
		cal: cal,
		out: &UnrolledSequence{
			DwellTime:          dt,
			Duration:           clk.now(),
			RF:                 make([]int16, 0, total),
			RFQuadrature:       make([]int16, 0, total),
			RFUnblanking:       make([]bool, 0, total),
			ADCGate:            make([]bool, 0, total),
			Reference:          make([]bool, 0, total),
			BlockStarts:        starts[:len(seq.Blocks)],
			LarmorFrequency:    cal.LarmorFrequency,
			GradientEfficiency: cal.GradientEfficiency,
			GPAGain:            cal.GPAGain,
			RFToMVolt:          cal.RFToMVolt,
			Wiring:             cal.Wiring,
			Meta:               make(map[string]string, len(seq.Definitions)+2),
		},
	}
	for axis := range p.out.Gradients {
		p.out.Gradients[axis] = make([]int16, 0, total)
	}

	for idx, b := range seq.Blocks {
		blk := newBlock(idx, starts[idx], starts[idx+1], times[idx])
		if err := p.fillBlock(blk, b); err != nil {
			return nil, err
		}
		if err := p.appendBlock(blk); err != nil {
			return nil, err
		}
	}

	p.out.SampleCount = total
	p.countADC()
	if err := p.pack(); err != nil {
		return nil, err
	}
	if err := p.out.checkLengths(); err != nil {
		return nil, err
	}

	for k, v := range seq.Definitions {
		p.out.Meta[k] = v
	}
	p.out.Meta["name"] = seq.Name
	p.out.Meta["blocks"] = strconv.Itoa(len(seq.Blocks))

	log.Debugf("[unroll] Unrolled %q: %d blocks, %d samples, %d adc samples in %d windows",
		seq.Name, len(seq.Blocks), total, p.out.ADCCount, len(p.out.ADCWindows))
	return p.out, nil
}

func (p *provider) fillBlock(blk *block, b sequence.Block) error {
	var hasGrad [sequence.NumAxes]bool

	// Unblanking owed by pulses of earlier blocks.
	for g := blk.start; g < min(p.unblankUntil, blk.end); g++ {
		blk.unblank[g-blk.start] = true
	}

	for _, ev := range b.Events {
		var err error
		switch e := ev.(type) {
		case sequence.RFEvent:
			err = p.rf(blk, e)
		case sequence.TrapezoidGradient:
			hasGrad[e.Axis] = true
			err = p.gradient(blk, e.Kind(), e.Axis, e.Delay, e.Duration(), e.At)
		case sequence.ArbitraryGradient:
			hasGrad[e.Axis] = true
			var shape func(float64) float64
			if shape, err = arbitraryShape(e); err != nil {
				return eventError(blk.index, e.Kind(), "waveform", float64(len(e.Waveform)), fmt.Errorf("%w: %v", ErrValidation, err))
			}
			err = p.gradient(blk, e.Kind(), e.Axis, e.Delay, e.ShapeDuration(), shape)
		case sequence.ADCEvent:
			err = p.adc(blk, e)
		case sequence.DelayEvent:
			_, _, err = p.eventSpan(blk, e.Kind(), 0, e.Duration)
		default:
			err = eventError(blk.index, ev.Kind(), "", 0, ErrValidation)
		}
		if err != nil {
			return err
		}
	}

	for axis, ok := range hasGrad {
		if !ok {
			if err := p.idle(blk, sequence.Axis(axis)); err != nil {
				return err
			}
		}
	}

	for k, open := range blk.adc {
		if open {
			blk.ref[k] = math.Cos(2*math.Pi*cycles(p.cal.LarmorFrequency, p.cal.DwellTime, blk.start+k)) > 0
		}
	}
	return nil
}

// eventSpan rounds an event's boundaries onto the sample grid.
func (p *provider) eventSpan(blk *block, kind sequence.EventKind, offset, duration float64) (int, int, error) {
	from := toSamples(blk.t0+offset, p.cal.DwellTime)
	to := toSamples(blk.t0+offset+duration, p.cal.DwellTime)
	switch {
	case to == from && duration > 0:
		return 0, 0, eventError(blk.index, kind, "duration", duration, ErrTiming)
	case from < blk.start || to > blk.end:
		return 0, 0, eventError(blk.index, kind, "end", float64(to), fmt.Errorf("%w: samples [%d, %d) outside block [%d, %d)",
			ErrShapeMismatch, from, to, blk.start, blk.end))
	}
	return from, to, nil
}

func (p *provider) appendBlock(blk *block) error {
	out := p.out
	for axis := range out.Gradients {
		out.Gradients[axis] = append(out.Gradients[axis], blk.grads[axis]...)
	}
	out.RF = append(out.RF, blk.rfI...)
	out.RFQuadrature = append(out.RFQuadrature, blk.rfQ...)
	out.RFUnblanking = append(out.RFUnblanking, blk.unblank...)
	out.ADCGate = append(out.ADCGate, blk.adc...)
	out.Reference = append(out.Reference, blk.ref...)

	if len(out.RF) != blk.end {
		return eventError(blk.index, sequence.KindBlock, "samples", float64(len(out.RF)), ErrShapeMismatch)
	}
	return nil
}

func (p *provider) countADC() {
	var windows []ADCWindow
	count := 0
	for i, open := range p.out.ADCGate {
		if !open {
			continue
		}
		count++
		if i > 0 && p.out.ADCGate[i-1] {
			windows[len(windows)-1].Length++
		} else {
			windows = append(windows, ADCWindow{Start: i, Length: 1})
		}
	}
	p.out.ADCCount = count
	p.out.ADCWindows = windows
}

// pack writes the channel words. It runs after every analog sample has been
// checked against its limit, so marker bits never overlap analog values.
func (p *provider) pack() error {
	w := p.cal.Wiring
	n := p.out.SampleCount
	p.out.Channels = make([][]uint16, w.NumChannels())

	for ch := range p.out.Channels {
		var analog []int16
		for s, c := range w.Analog {
			if c == ch {
				analog = p.out.Analog(Source(s))
			}
		}
		field := w.AnalogBits(ch)
		limit := w.OutputLimits[ch]

		words := make([]uint16, n)
		for i := range words {
			var a int16
			if analog != nil {
				a = analog[i]
			}
			if int(a) > limit || int(a) < -limit {
				return fmt.Errorf("channel %d sample %d: analog value %d outside limit %d: %w", ch, i, a, limit, ErrAmplitude)
			}
			var markers uint16
			for l, m := range w.Markers {
				if m.Channel == ch {
					markers |= MarkerBits(m, p.out.Gate(Line(l))[i])
				}
			}
			words[i] = PackWord(a, field, markers)
		}
		p.out.Channels[ch] = words
	}
	return nil
}

func (u *UnrolledSequence) checkLengths() error {
	type column struct {
		name string
		n    int
	}
	columns := []column{
		{"rf", len(u.RF)},
		{"rf_quadrature", len(u.RFQuadrature)},
		{"rf_unblanking", len(u.RFUnblanking)},
		{"adc_gate", len(u.ADCGate)},
		{"reference", len(u.Reference)},
	}
	for axis, g := range u.Gradients {
		columns = append(columns, column{"g" + sequence.Axis(axis).String(), len(g)})
	}
	for ch, words := range u.Channels {
		columns = append(columns, column{"channel " + strconv.Itoa(ch), len(words)})
	}
	for _, c := range columns {
		if c.n != u.SampleCount {
			return fmt.Errorf("%s has %d samples, want %d: %w", c.name, c.n, u.SampleCount, ErrShapeMismatch)
		}
	}
	return nil
}

func (p *provider) rf(blk *block, e sequence.RFEvent) error {
	from, to, err := p.eventSpan(blk, e.Kind(), e.Delay, e.Duration)
	if err != nil {
		return err
	}
	envelope, err := envelopeShape(e)
	if err != nil {
		return eventError(blk.index, e.Kind(), "envelope", float64(len(e.Envelope)), fmt.Errorf("%w: %v", ErrValidation, err))
	}

	dt := p.cal.DwellTime
	scale := complex(p.cal.RFRawScale(), 0)
	limit := float64(p.cal.Wiring.Limit(SourceRF))
	freq := p.cal.LarmorFrequency + e.FrequencyOffset

	first, last := -1, -1
	for g := from; g < to; g++ {
		a := envelope(float64(g-from)*dt) * scale
		if mag := math.Round(cmplx.Abs(a)); mag > limit {
			return eventError(blk.index, e.Kind(), "amplitude", mag, ErrAmplitude)
		}
		sin, cos := math.Sincos(2*math.Pi*cycles(freq, dt, g) + e.PhaseOffset)
		s := a * complex(cos, sin)
		i, q := int16(math.Round(real(s))), int16(math.Round(imag(s)))

		k := g - blk.start
		blk.rfI[k], blk.rfQ[k] = i, q
		if i != 0 || q != 0 {
			if first < 0 {
				first = g
			}
			last = g
		}
	}

	if first >= 0 {
		lead := toSamples(max(p.cal.RFDeadTime, e.DeadTime), dt)
		trail := toSamples(max(p.cal.RFRingdownTime, e.RingdownTime), dt)
		p.unblank(blk, first-lead, last+1+trail)
	}
	return nil
}

// unblank asserts RF unblanking on [from, to). Samples before the block are
// written to the already appended output, samples after it are owed to the
// following blocks.
func (p *provider) unblank(blk *block, from, to int) {
	from = max(from, 0)
	for g := from; g < min(to, blk.end); g++ {
		if g < blk.start {
			p.out.RFUnblanking[g] = true
		} else {
			blk.unblank[g-blk.start] = true
		}
	}
	p.unblankUntil = max(p.unblankUntil, to)
}

func (p *provider) adc(blk *block, e sequence.ADCEvent) error {
	from, to, err := p.eventSpan(blk, e.Kind(), e.Start(), e.Duration())
	if err != nil {
		return err
	}
	for g := from; g < to; g++ {
		blk.adc[g-blk.start] = true
	}
	return nil
}
