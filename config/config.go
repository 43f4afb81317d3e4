package config

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/mrconsole/ddc"
	"github.com/jrwynneiii/mrconsole/sequence"
	"github.com/jrwynneiii/mrconsole/unroll"
	"github.com/knadh/koanf/v2"
)

type CalibrationConf struct {
	LarmorFrequency    float64   `koanf:"larmor_frequency"`
	GyromagneticRatio  float64   `koanf:"gyromagnetic_ratio"`
	DwellTime          float64   `koanf:"spcm_dwell_time"`
	RFToMVolt          float64   `koanf:"rf_to_mvolt"`
	RFChainGain        float64   `koanf:"rf_chain_gain"`
	B1Scaling          float64   `koanf:"b1_scaling"`
	GradientEfficiency []float64 `koanf:"gradient_efficiency"`
	GPAGain            []float64 `koanf:"gpa_gain"`
	GradientOffset     []float64 `koanf:"gradient_offset"`
	FOVScaling         []float64 `koanf:"fov_scaling"`
	RFDeadTime         float64   `koanf:"rf_dead_time"`
	RFRingdownTime     float64   `koanf:"rf_ringdown_time"`
}

type MarkerConf struct {
	Channel   int  `koanf:"channel"`
	Bit       int  `koanf:"bit"`
	ActiveLow bool `koanf:"active_low"`
}

type WiringConf struct {
	RF           int        `koanf:"rf"`
	Gx           int        `koanf:"gx"`
	Gy           int        `koanf:"gy"`
	Gz           int        `koanf:"gz"`
	OutputLimits []int      `koanf:"output_limits"`
	RFUnblanking MarkerConf `koanf:"rf_unblanking"`
	ADCGate      MarkerConf `koanf:"adc_gate"`
	Reference    MarkerConf `koanf:"reference"`
}

type DDCConf struct {
	SampleRate       float64 `koanf:"sample_rate"`
	Decimation       int     `koanf:"decimation"`
	KernelSize       int     `koanf:"kernel_size"`
	Stages           int     `koanf:"stages"`
	CompensationTaps int     `koanf:"compensation_taps"`
	DigitalBits      int     `koanf:"digital_bits"`
	Scale            float64 `koanf:"scale"`
	Workers          int     `koanf:"workers"`
}

type TuiConf struct {
	RefreshMs  int `koanf:"refresh_ms"`
	PlotPoints int `koanf:"plot_points"`
}

func float64Or(k *koanf.Koanf, key string, def float64) float64 {
	if !k.Exists(key) {
		return def
	}
	return k.Float64(key)
}

func intOr(k *koanf.Koanf, key string, def int) int {
	if !k.Exists(key) {
		return def
	}
	return k.Int(key)
}

func float64sOr(k *koanf.Koanf, key string, def []float64) []float64 {
	if !k.Exists(key) {
		return def
	}
	return k.Float64s(key)
}

func LoadCalibration(k *koanf.Koanf) CalibrationConf {
	c := CalibrationConf{
		LarmorFrequency:    k.Float64("calibration.larmor_frequency"),
		GyromagneticRatio:  float64Or(k, "calibration.gyromagnetic_ratio", unroll.DefaultGyromagneticRatio),
		DwellTime:          k.Float64("calibration.spcm_dwell_time"),
		RFToMVolt:          k.Float64("calibration.rf_to_mvolt"),
		RFChainGain:        k.Float64("calibration.rf_chain_gain"),
		B1Scaling:          float64Or(k, "calibration.b1_scaling", 1),
		GradientEfficiency: k.Float64s("calibration.gradient_efficiency"),
		GPAGain:            k.Float64s("calibration.gpa_gain"),
		GradientOffset:     float64sOr(k, "calibration.gradient_offset", []float64{0, 0, 0}),
		FOVScaling:         float64sOr(k, "calibration.fov_scaling", []float64{1, 1, 1}),
		RFDeadTime:         k.Float64("calibration.rf_dead_time"),
		RFRingdownTime:     k.Float64("calibration.rf_ringdown_time"),
	}
	log.Debugf("Found calibration definition: %##v", c)
	return c
}

func loadMarker(k *koanf.Koanf, key string, def unroll.Marker) MarkerConf {
	return MarkerConf{
		Channel:   intOr(k, key+".channel", def.Channel),
		Bit:       intOr(k, key+".bit", int(def.Bit)),
		ActiveLow: k.Bool(key + ".active_low"),
	}
}

// LoadWiring reads the wiring section. Keys that are not set keep the
// default four channel layout.
func LoadWiring(k *koanf.Koanf) WiringConf {
	def := unroll.DefaultWiring()
	w := WiringConf{
		RF:           intOr(k, "wiring.rf", def.Analog[unroll.SourceRF]),
		Gx:           intOr(k, "wiring.gx", def.Analog[unroll.SourceGx]),
		Gy:           intOr(k, "wiring.gy", def.Analog[unroll.SourceGy]),
		Gz:           intOr(k, "wiring.gz", def.Analog[unroll.SourceGz]),
		OutputLimits: def.OutputLimits,
		RFUnblanking: loadMarker(k, "wiring.rf_unblanking", def.Markers[unroll.LineRFUnblanking]),
		ADCGate:      loadMarker(k, "wiring.adc_gate", def.Markers[unroll.LineADCGate]),
		Reference:    loadMarker(k, "wiring.reference", def.Markers[unroll.LineReference]),
	}
	if k.Exists("wiring.output_limits") {
		w.OutputLimits = k.Ints("wiring.output_limits")
	}
	log.Debugf("Found wiring definition: %##v", w)
	return w
}

func LoadDDC(k *koanf.Koanf) DDCConf {
	d := DDCConf{
		SampleRate:       k.Float64("ddc.sample_rate"),
		Decimation:       intOr(k, "ddc.decimation", 4),
		KernelSize:       intOr(k, "ddc.kernel_size", 2),
		Stages:           intOr(k, "ddc.stages", 3),
		CompensationTaps: intOr(k, "ddc.compensation_taps", 21),
		DigitalBits:      k.Int("ddc.digital_bits"),
		Scale:            float64Or(k, "ddc.scale", 1),
		Workers:          k.Int("ddc.workers"),
	}
	log.Debugf("Found ddc definition: %##v", d)
	return d
}

func LoadTui(k *koanf.Koanf) TuiConf {
	return TuiConf{
		RefreshMs:  intOr(k, "tui.refresh_ms", 500),
		PlotPoints: intOr(k, "tui.plot_points", 2000),
	}
}

func markerFrom(m MarkerConf) (unroll.Marker, error) {
	if m.Bit < 0 {
		return unroll.Marker{}, fmt.Errorf("marker bit %d: %w", m.Bit, unroll.ErrValidation)
	}
	return unroll.Marker{Channel: m.Channel, Bit: uint(m.Bit), ActiveLow: m.ActiveLow}, nil
}

// Wiring converts the record into the engine's wiring and validates it.
func (w WiringConf) Wiring() (unroll.Wiring, error) {
	out := unroll.Wiring{
		Analog:       [unroll.NumSources]int{w.RF, w.Gx, w.Gy, w.Gz},
		OutputLimits: append([]int(nil), w.OutputLimits...),
	}
	for l, m := range [unroll.NumLines]MarkerConf{w.RFUnblanking, w.ADCGate, w.Reference} {
		marker, err := markerFrom(m)
		if err != nil {
			return unroll.Wiring{}, fmt.Errorf("wiring %s: %w", unroll.Line(l), err)
		}
		out.Markers[l] = marker
	}
	if err := out.Validate(); err != nil {
		return unroll.Wiring{}, err
	}
	return out, nil
}

func axes(name string, v []float64) (unroll.Axes, error) {
	var a unroll.Axes
	if len(v) != sequence.NumAxes {
		return a, fmt.Errorf("calibration %s needs %d values, got %d: %w", name, sequence.NumAxes, len(v), unroll.ErrValidation)
	}
	copy(a[:], v)
	return a, nil
}

// Calibration snapshots the record and wiring into an engine calibration.
func (c CalibrationConf) Calibration(w WiringConf) (unroll.Calibration, error) {
	wiring, err := w.Wiring()
	if err != nil {
		return unroll.Calibration{}, err
	}
	cal := unroll.Calibration{
		LarmorFrequency:   c.LarmorFrequency,
		GyromagneticRatio: c.GyromagneticRatio,
		DwellTime:         c.DwellTime,
		RFToMVolt:         c.RFToMVolt,
		RFChainGain:       c.RFChainGain,
		B1Scaling:         c.B1Scaling,
		RFDeadTime:        c.RFDeadTime,
		RFRingdownTime:    c.RFRingdownTime,
		Wiring:            wiring,
	}
	for _, f := range []struct {
		name string
		src  []float64
		dst  *unroll.Axes
	}{
		{"gradient_efficiency", c.GradientEfficiency, &cal.GradientEfficiency},
		{"gpa_gain", c.GPAGain, &cal.GPAGain},
		{"gradient_offset", c.GradientOffset, &cal.GradientOffset},
		{"fov_scaling", c.FOVScaling, &cal.FOVScaling},
	} {
		if *f.dst, err = axes(f.name, f.src); err != nil {
			return unroll.Calibration{}, err
		}
	}
	if err := cal.Validate(); err != nil {
		return unroll.Calibration{}, err
	}
	return cal, nil
}

// Pipeline builds the receive pipeline for a carrier at larmor Hz. A zero
// sample rate falls back to the transmit card rate 1/dwellTime.
func (d DDCConf) Pipeline(larmor, dwellTime float64) (*ddc.Pipeline, error) {
	rate := d.SampleRate
	if rate == 0 && dwellTime > 0 {
		rate = 1 / dwellTime
	}
	if d.DigitalBits < 0 {
		return nil, fmt.Errorf("ddc digital_bits = %d: %w", d.DigitalBits, ddc.ErrInvalidParameter)
	}
	return ddc.New(ddc.Pipeline{
		LarmorFrequency:  larmor,
		SampleRate:       rate,
		Decimation:       d.Decimation,
		KernelSize:       d.KernelSize,
		Stages:           d.Stages,
		CompensationTaps: d.CompensationTaps,
		DigitalBits:      uint(d.DigitalBits),
		Scale:            d.Scale,
		Workers:          d.Workers,
	})
}
