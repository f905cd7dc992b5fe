package columns

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

type Kind int

const (
	Int32 Kind = iota
	Uint64
	Float64
	Bool
)

var kindStrings = []string{
	"int32",
	"uint64",
	"float64",
	"bool",
}

func (k Kind) String() string {
	if k < Int32 || k > Bool {
		return "UNKNOWN"
	}
	return kindStrings[k]
}

type scalar interface {
	constraints.Integer | constraints.Float | ~bool
}

// Column binds a named column to a buffer owned by the caller.
//
// Data is either a fixed capacity slice ([]int32, []uint64, []float64 or
// []bool) whose live length is held in *Count, or a pointer to a single
// value (*int32, *uint64, *float64 or *bool) with Count left nil.
type Column struct {
	Name  string
	Data  any
	Count *int32
}

func (c Column) Kind() (Kind, error) {
	switch c.Data.(type) {
	case []int32, *int32:
		return Int32, nil
	case []uint64, *uint64:
		return Uint64, nil
	case []float64, *float64:
		return Float64, nil
	case []bool, *bool:
		return Bool, nil
	}
	return 0, fmt.Errorf("%w: column %q bound to %T", ErrKind, c.Name, c.Data)
}

func (c Column) IsArray() bool {
	switch c.Data.(type) {
	case []int32, []uint64, []float64, []bool:
		return true
	}
	return false
}

// Capacity is the number of values the bound buffer can hold.
func (c Column) Capacity() int {
	switch d := c.Data.(type) {
	case []int32:
		return len(d)
	case []uint64:
		return len(d)
	case []float64:
		return len(d)
	case []bool:
		return len(d)
	}
	return 1
}

// Len is the number of live values: *Count for arrays, one for scalars.
func (c Column) Len() int {
	if !c.IsArray() {
		return 1
	}
	if c.Count == nil {
		return 0
	}
	return int(*c.Count)
}

func (c Column) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: empty column name", ErrKind)
	}
	if _, err := c.Kind(); err != nil {
		return err
	}
	if c.IsArray() && c.Count == nil {
		return fmt.Errorf("%w: array column %q has no count", ErrKind, c.Name)
	}
	if !c.IsArray() && c.Count != nil {
		return fmt.Errorf("%w: scalar column %q has a count", ErrKind, c.Name)
	}
	return nil
}

// Values copies the live values out of the buffer. Scalars come back as a
// one element slice.
func (c Column) Values() (any, error) {
	n := c.Len()
	if n < 0 || n > c.Capacity() {
		return nil, &CapacityError{Column: c.Name, Count: n, Capacity: c.Capacity()}
	}
	switch d := c.Data.(type) {
	case []int32:
		return snapshot(d, n), nil
	case []uint64:
		return snapshot(d, n), nil
	case []float64:
		return snapshot(d, n), nil
	case []bool:
		return snapshot(d, n), nil
	case *int32:
		return []int32{*d}, nil
	case *uint64:
		return []uint64{*d}, nil
	case *float64:
		return []float64{*d}, nil
	case *bool:
		return []bool{*d}, nil
	}
	return nil, fmt.Errorf("%w: column %q bound to %T", ErrKind, c.Name, c.Data)
}

// SetValues copies v, a slice of the column's kind, into the buffer.
func (c Column) SetValues(v any) error {
	switch d := c.Data.(type) {
	case []int32:
		return setArray(d, v, c.Name)
	case []uint64:
		return setArray(d, v, c.Name)
	case []float64:
		return setArray(d, v, c.Name)
	case []bool:
		return setArray(d, v, c.Name)
	case *int32:
		return setScalar(d, v, c.Name)
	case *uint64:
		return setScalar(d, v, c.Name)
	case *float64:
		return setScalar(d, v, c.Name)
	case *bool:
		return setScalar(d, v, c.Name)
	}
	return fmt.Errorf("%w: column %q bound to %T", ErrKind, c.Name, c.Data)
}

// Zero clears a scalar, or the live part of an array. Count columns must
// be loaded before the arrays that depend on them.
func (c Column) Zero() {
	n := max(0, min(c.Len(), c.Capacity()))
	switch d := c.Data.(type) {
	case []int32:
		clear(d[:n])
	case []uint64:
		clear(d[:n])
	case []float64:
		clear(d[:n])
	case []bool:
		clear(d[:n])
	case *int32:
		*d = 0
	case *uint64:
		*d = 0
	case *float64:
		*d = 0
	case *bool:
		*d = false
	}
}

// MakeSlice returns an empty slice of length n for the kind.
func MakeSlice(k Kind, n int) any {
	switch k {
	case Int32:
		return make([]int32, n)
	case Uint64:
		return make([]uint64, n)
	case Float64:
		return make([]float64, n)
	case Bool:
		return make([]bool, n)
	}
	return nil
}

// SliceLen reports the length of a slice made by MakeSlice or Values.
func SliceLen(v any) int {
	switch s := v.(type) {
	case []int32:
		return len(s)
	case []uint64:
		return len(s)
	case []float64:
		return len(s)
	case []bool:
		return len(s)
	}
	return 0
}

func snapshot[T scalar](buf []T, n int) []T {
	out := make([]T, n)
	copy(out, buf[:n])
	return out
}

func setArray[T scalar](dst []T, v any, name string) error {
	src, ok := v.([]T)
	if !ok {
		return fmt.Errorf("%w: column %q cannot take %T", ErrKind, name, v)
	}
	if len(src) > len(dst) {
		return &CapacityError{Column: name, Count: len(src), Capacity: len(dst)}
	}
	copy(dst, src)
	return nil
}

func setScalar[T scalar](dst *T, v any, name string) error {
	src, ok := v.([]T)
	if !ok {
		return fmt.Errorf("%w: column %q cannot take %T", ErrKind, name, v)
	}
	if len(src) > 1 {
		return &CapacityError{Column: name, Count: len(src), Capacity: 1}
	}
	var zero T
	*dst = zero
	if len(src) == 1 {
		*dst = src[0]
	}
	return nil
}
