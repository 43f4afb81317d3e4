package unroll

import (
	"errors"

	"github.com/jrwynneiii/mrconsole/sequence"
)

var (
	// ErrValidation marks malformed sequence events and calibration values.
	ErrValidation = sequence.ErrValidation
	// ErrShapeMismatch marks a declared length that disagrees with the sample grid.
	ErrShapeMismatch = sequence.ErrShapeMismatch
	// ErrTiming marks an event whose duration rounds to zero samples.
	ErrTiming = errors.New("event too short for dwell time")
	// ErrAmplitude marks a raw sample outside the channel output limit.
	ErrAmplitude = errors.New("raw amplitude exceeds output limit")
)

// EventError carries block index, event kind and offending value.
type EventError = sequence.EventError

func eventError(block int, kind sequence.EventKind, field string, value float64, err error) error {
	return &EventError{Block: block, Kind: kind, Field: field, Value: value, Err: err}
}
