package unroll

import (
	"fmt"
	"math"

	"github.com/jrwynneiii/mrconsole/sequence"
)

// DefaultGyromagneticRatio is the proton gyromagnetic ratio in Hz/T.
const DefaultGyromagneticRatio = 42.577478518e6

// Axes holds one value per gradient axis, indexed by sequence.Axis.
type Axes [sequence.NumAxes]float64

// Calibration is the snapshot of physical-to-raw conversion constants used
// for one unrolling. It is passed by value and never modified.
type Calibration struct {
	// LarmorFrequency is the RF carrier and receiver reference in Hz.
	LarmorFrequency float64
	// GyromagneticRatio converts B1 in T to Hz.
	GyromagneticRatio float64
	// DwellTime is the transmit card sample period in seconds.
	DwellTime float64
	// RFToMVolt is the output voltage in mV of one raw RF DAC unit.
	RFToMVolt float64
	// RFChainGain is the output voltage in mV needed per Hz of B1.
	RFChainGain float64
	// B1Scaling scales every RF envelope, calibrated per coil and load.
	B1Scaling float64
	// GradientEfficiency is the coil efficiency in mT/m per A.
	GradientEfficiency Axes
	// GPAGain is the amplifier output current in A per raw DAC unit.
	GPAGain Axes
	// GradientOffset is the steady-state shim offset in mT/m added to every gradient sample.
	GradientOffset Axes
	// FOVScaling scales gradient shapes before the offset is added.
	FOVScaling Axes
	// RFDeadTime and RFRingdownTime are the system minimum unblanking lead and trailing margin.
	RFDeadTime     float64
	RFRingdownTime float64

	Wiring Wiring
}

func calibrationError(field string, value float64) error {
	return fmt.Errorf("calibration %s = %g: %w", field, value, ErrValidation)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks that every constant is usable and that the carrier can be represented on the sample grid.
func (c Calibration) Validate() error {
	switch {
	case !positive(c.DwellTime):
		return calibrationError("spcm_dwell_time", c.DwellTime)
	case !positive(c.LarmorFrequency):
		return calibrationError("larmor_frequency", c.LarmorFrequency)
	case c.LarmorFrequency >= 0.5/c.DwellTime:
		return calibrationError("larmor_frequency", c.LarmorFrequency)
	case !positive(c.GyromagneticRatio):
		return calibrationError("gyromagnetic_ratio", c.GyromagneticRatio)
	case !positive(c.RFToMVolt):
		return calibrationError("rf_to_mvolt", c.RFToMVolt)
	case !positive(c.RFChainGain):
		return calibrationError("rf_chain_gain", c.RFChainGain)
	case c.B1Scaling < 0 || !finite(c.B1Scaling):
		return calibrationError("b1_scaling", c.B1Scaling)
	case c.RFDeadTime < 0 || !finite(c.RFDeadTime):
		return calibrationError("rf_dead_time", c.RFDeadTime)
	case c.RFRingdownTime < 0 || !finite(c.RFRingdownTime):
		return calibrationError("rf_ringdown_time", c.RFRingdownTime)
	}
	for axis := range sequence.NumAxes {
		name := sequence.Axis(axis).String()
		if !positive(c.GradientEfficiency[axis]) {
			return calibrationError("gradient_efficiency."+name, c.GradientEfficiency[axis])
		}
		if !positive(c.GPAGain[axis]) {
			return calibrationError("gpa_gain."+name, c.GPAGain[axis])
		}
		if !finite(c.GradientOffset[axis]) {
			return calibrationError("gradient_offset."+name, c.GradientOffset[axis])
		}
		if !finite(c.FOVScaling[axis]) {
			return calibrationError("fov_scaling."+name, c.FOVScaling[axis])
		}
	}
	return c.Wiring.Validate()
}

// GradientRaw converts a physical gradient amplitude in mT/m, offset already applied, to raw DAC units.
func (c Calibration) GradientRaw(axis sequence.Axis, physical float64) float64 {
	return math.Round(physical / c.GradientEfficiency[axis] / c.GPAGain[axis])
}

// RFRawScale is the number of raw DAC units per mT of B1 before rounding.
func (c Calibration) RFRawScale() float64 {
	// mT -> T -> Hz -> mV -> raw
	return c.B1Scaling * 1e-3 * c.GyromagneticRatio * c.RFChainGain / c.RFToMVolt
}
