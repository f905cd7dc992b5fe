package hdf5store

import (
	"errors"
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
	"github.com/next-exp/storage_go/pkg/columns"
)

type Tree struct {
	columns.Binding
	store *Store
	name  string
	group *hdf5.Group
	entry *hdf5.Dataset
	rows  int

	// datasets of the enabled columns, nil when missing from the file
	datasets map[string]*hdf5.Dataset
	// write: current length of every dataset
	sizes map[string]uint
	// read: row boundaries of the array columns, by count column
	offsets map[string][]uint

	closed bool
}

func newTree(s *Store, name string, g *hdf5.Group, entry *hdf5.Dataset) *Tree {
	return &Tree{
		store:    s,
		name:     name,
		group:    g,
		entry:    entry,
		datasets: make(map[string]*hdf5.Dataset),
		sizes:    make(map[string]uint),
		offsets:  make(map[string][]uint),
	}
}

func (t *Tree) Name() string {
	return t.name
}

func (t *Tree) NumRows() int {
	return t.rows
}

// startWrite creates the datasets of the enabled columns.
func (t *Tree) startWrite() error {
	t.Start()
	for _, c := range t.Enabled() {
		k, err := c.Kind()
		if err != nil {
			return err
		}
		dtype, err := datatypeFor(k)
		if err != nil {
			return err
		}
		dset, err := createColumn(t.group, c.Name, dtype)
		if err != nil {
			return err
		}
		t.datasets[c.Name] = dset
	}
	return nil
}

func (t *Tree) Fill() error {
	if t.closed {
		return columns.ErrClosed
	}
	if t.store.mode != columns.Write {
		return fmt.Errorf("%w: fill %q", columns.ErrMode, t.name)
	}
	if !t.Started() {
		if err := t.startWrite(); err != nil {
			return err
		}
	}

	for _, c := range t.Enabled() {
		values, err := c.Values()
		if err != nil {
			return err
		}
		size := t.sizes[c.Name]
		if err := writeValues(t.datasets[c.Name], values, size); err != nil {
			return fmt.Errorf("error writing %s/%s: %w", t.name, c.Name, err)
		}
		t.sizes[c.Name] = size + uint(columns.SliceLen(values))
	}
	if err := appendColumn(t.entry, []uint64{uint64(t.rows)}, uint(t.rows)); err != nil {
		return fmt.Errorf("error writing %s/%s: %w", t.name, entryDataset, err)
	}
	t.rows++
	return nil
}

// startRead opens the datasets of the enabled columns and loads the row
// boundaries of the arrays.
func (t *Tree) startRead() error {
	t.Start()
	for _, c := range t.Enabled() {
		if !t.group.LinkExists(c.Name) {
			t.datasets[c.Name] = nil
			continue
		}
		dset, err := t.group.OpenDataset(c.Name)
		if err != nil {
			return fmt.Errorf("error opening %s/%s: %w", t.name, c.Name, err)
		}
		t.datasets[c.Name] = dset
	}

	for _, c := range t.Enabled() {
		if !c.IsArray() {
			continue
		}
		count, ok := t.CountColumn(c)
		if !ok {
			return fmt.Errorf("%w: no count column for %q", columns.ErrNoColumn, c.Name)
		}
		if _, done := t.offsets[count.Name]; done {
			continue
		}
		dset := t.datasets[count.Name]
		if dset == nil {
			continue
		}
		counts, err := readColumn[int32](dset, 0, uint(t.rows))
		if err != nil {
			return fmt.Errorf("error reading %s/%s: %w", t.name, count.Name, err)
		}
		offsets := make([]uint, len(counts)+1)
		for i, n := range counts {
			if n < 0 {
				return fmt.Errorf("%w: %s/%s row %d holds %d", columns.ErrKind, t.name, count.Name, i, n)
			}
			offsets[i+1] = offsets[i] + uint(n)
		}
		t.offsets[count.Name] = offsets
	}
	return nil
}

func (t *Tree) Read(n int) error {
	if t.closed {
		return columns.ErrClosed
	}
	if t.store.mode != columns.Read {
		return fmt.Errorf("%w: read %q", columns.ErrMode, t.name)
	}
	if n < 0 || n >= t.rows {
		return fmt.Errorf("%w: %q row %d of %d", columns.ErrRowRange, t.name, n, t.rows)
	}
	if !t.Started() {
		if err := t.startRead(); err != nil {
			return err
		}
	}

	for _, c := range t.Enabled() {
		dset := t.datasets[c.Name]
		if dset == nil {
			c.Zero()
			continue
		}
		k, err := c.Kind()
		if err != nil {
			return err
		}

		start, count := uint(n), uint(1)
		if c.IsArray() {
			countCol, _ := t.CountColumn(c)
			offsets, ok := t.offsets[countCol.Name]
			if !ok {
				c.Zero()
				continue
			}
			start, count = offsets[n], offsets[n+1]-offsets[n]
		}

		values, err := readValues(dset, k, start, count)
		if err != nil {
			return fmt.Errorf("error reading %s/%s row %d: %w", t.name, c.Name, n, err)
		}
		if err := c.SetValues(values); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true

	var errs []error
	for name, dset := range t.datasets {
		if dset == nil {
			continue
		}
		if err := dset.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing dataset %s: %w", name, err))
		}
	}
	if err := t.entry.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing dataset %s: %w", entryDataset, err))
	}
	return errors.Join(errs...)
}
