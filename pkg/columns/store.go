// Package columns defines the column store contract used by the event
// storage: trees of named array columns bound to caller owned buffers,
// written or read one row per event.
package columns

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

type Mode int

const (
	Read Mode = iota
	Write
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

// Tree is one independent group of columns sharing a row index.
//
// Columns are bound once, then individual columns may be disabled. The
// first Fill or Read freezes the binding.
type Tree interface {
	Name() string
	Bind(col Column) error
	SetEnabled(name string, enabled bool) error
	// Fill appends one row from the bound buffers.
	Fill() error
	// Read loads row n into the bound buffers. Columns missing from the
	// file leave scalars zeroed.
	Read(n int) error
	NumRows() int
	Close() error
}

type Store interface {
	// CreateTree declares a new empty tree. Write mode only.
	CreateTree(name string) (Tree, error)
	// OpenTree opens an existing tree. Read mode only.
	OpenTree(name string) (Tree, error)
	HasTree(name string) bool
	Close() error
}

type Driver interface {
	Open(path string, mode Mode) (Store, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available by name. Registering the same name
// twice panics, as database/sql does.
func Register(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if driver == nil {
		panic("columns: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("columns: Register called twice for driver " + name)
	}
	drivers[name] = driver
}

func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens path with the named driver. An empty driver name is resolved
// from the path with DriverForPath.
func Open(driver string, path string, mode Mode) (Store, error) {
	if driver == "" {
		driver = DriverForPath(path)
	}
	driversMu.RLock()
	d, ok := drivers[driver]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (path %q)", ErrUnknownDriver, driver, path)
	}
	return d.Open(path, mode)
}

const MemoryPrefix = "mem://"

func DriverForPath(path string) string {
	if strings.HasPrefix(path, MemoryPrefix) {
		return "memory"
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".h5", ".hdf5":
		return "hdf5"
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite"
	}
	return ""
}

// Binding keeps the bound columns of a tree and which of them are
// enabled. Drivers embed it.
type Binding struct {
	cols     []Column
	index    map[string]int
	disabled map[string]bool
	started  bool
}

func (b *Binding) Bind(col Column) error {
	if b.started {
		return fmt.Errorf("%w: cannot bind %q", ErrStarted, col.Name)
	}
	if err := col.Validate(); err != nil {
		return err
	}
	if b.index == nil {
		b.index = make(map[string]int)
		b.disabled = make(map[string]bool)
	}
	if _, dup := b.index[col.Name]; dup {
		return fmt.Errorf("%w: column %q bound twice", ErrKind, col.Name)
	}
	b.index[col.Name] = len(b.cols)
	b.cols = append(b.cols, col)
	return nil
}

func (b *Binding) SetEnabled(name string, enabled bool) error {
	if _, ok := b.index[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	if b.started {
		return fmt.Errorf("%w: cannot toggle %q", ErrStarted, name)
	}
	b.disabled[name] = !enabled
	return nil
}

func (b *Binding) IsEnabled(name string) bool {
	_, ok := b.index[name]
	return ok && !b.disabled[name]
}

// Start freezes the binding.
func (b *Binding) Start() {
	b.started = true
}

func (b *Binding) Started() bool {
	return b.started
}

// Enabled lists the enabled columns with scalars first so count columns
// are loaded before the arrays that depend on them.
func (b *Binding) Enabled() []Column {
	out := make([]Column, 0, len(b.cols))
	for _, c := range b.cols {
		if !b.disabled[c.Name] && !c.IsArray() {
			out = append(out, c)
		}
	}
	for _, c := range b.cols {
		if !b.disabled[c.Name] && c.IsArray() {
			out = append(out, c)
		}
	}
	return out
}

// CountColumn finds the scalar column holding the length of an array.
func (b *Binding) CountColumn(array Column) (Column, bool) {
	for _, c := range b.cols {
		if p, ok := c.Data.(*int32); ok && p == array.Count {
			return c, true
		}
	}
	return Column{}, false
}
