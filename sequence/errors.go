package sequence

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a malformed sequence: bad shape, missing field, negative duration.
	ErrValidation = errors.New("invalid sequence event")
	// ErrShapeMismatch marks a shape whose length disagrees with its declared duration.
	ErrShapeMismatch = errors.New("shape length does not match duration")
)

// EventError locates a failure inside a sequence so an operator can fix the
// sequence or calibration file. Block is -1 when the failure is not tied to a block.
type EventError struct {
	Block int
	Kind  EventKind
	Field string
	Value float64
	Err   error
}

func (e *EventError) Error() string {
	loc := "sequence"
	if e.Block >= 0 {
		loc = fmt.Sprintf("block %d", e.Block)
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s: %v", loc, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s = %g: %v", loc, e.Kind, e.Field, e.Value, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

func invalid(kind EventKind, field string, value float64) error {
	return &EventError{Block: -1, Kind: kind, Field: field, Value: value, Err: ErrValidation}
}
