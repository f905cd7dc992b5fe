package columns

import (
	"errors"
	"fmt"
)

var (
	ErrNotExist      = errors.New("file does not exist")
	ErrUnknownDriver = errors.New("unknown column store driver")
	ErrNoTree        = errors.New("no such tree")
	ErrNoColumn      = errors.New("no such column")
	ErrKind          = errors.New("unsupported column binding")
	ErrCapacity      = errors.New("column capacity exceeded")
	ErrMode          = errors.New("operation not allowed in this mode")
	ErrStarted       = errors.New("tree already accessed")
	ErrRowRange      = errors.New("row out of range")
	ErrClosed        = errors.New("store closed")
)

// CapacityError reports a value count that does not fit a column buffer.
type CapacityError struct {
	Column   string
	Count    int
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("column %q: %d values exceed capacity %d", e.Column, e.Count, e.Capacity)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacity
}
