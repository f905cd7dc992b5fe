package storage

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange       = errors.New("index out of range")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrConfiguration    = errors.New("configuration error")
	ErrIO               = errors.New("storage io failure")
	ErrStaleHandle      = errors.New("object belongs to an earlier event")
	ErrWrongMode        = errors.New("operation not allowed in this file mode")
	ErrClosed           = errors.New("storage closed")
	ErrNoWaveform       = errors.New("waveform not available")
	ErrForeignEvent     = errors.New("event does not belong to this storage")
	ErrInvalidReference = errors.New("invalid back-reference")
)

// RangeError represents a request for an element past the populated count.
type RangeError struct {
	What  string
	Index int
	Len   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %d requested, %d available", e.What, e.Index, e.Len)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

// CapacityError represents an event that does not fit the fixed buffers.
// Plane is -1 for event wide objects.
type CapacityError struct {
	Kind     string
	Plane    int
	Count    int
	Capacity int
}

func (e *CapacityError) Error() string {
	if e.Plane < 0 {
		return fmt.Sprintf("%d %s exceed capacity %d", e.Count, e.Kind, e.Capacity)
	}
	return fmt.Sprintf("plane %d: %d %s exceed capacity %d", e.Plane, e.Count, e.Kind, e.Capacity)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// FieldError represents an invalid branch selection.
type FieldError struct {
	Section Section
	Name    string
	Reason  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q in %v: %s", e.Name, e.Section, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrConfiguration
}

// IOError represents a failure of the underlying column store.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}
