// Package hdf5store stores column trees in HDF5 files. Every tree is a
// group, and every column an extensible one dimensional dataset. Array
// columns are flattened; their row boundaries come from the count column.
package hdf5store

import (
	"errors"
	"fmt"
	"os"
	"strings"

	hdf5 "github.com/jmbenlloch/go-hdf5"
	"github.com/next-exp/storage_go/pkg/columns"
)

func init() {
	columns.Register("hdf5", Driver{})
}

type Driver struct{}

// ErrOpenFile represents a file that HDF5 could not create or open.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening HDF5 file %s: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

func (Driver) Open(path string, mode columns.Mode) (columns.Store, error) {
	var (
		file *hdf5.File
		err  error
	)
	switch mode {
	case columns.Write:
		file, err = hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	case columns.Read:
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, &ErrOpenFile{Filename: path, Err: fmt.Errorf("%w: %w", columns.ErrNotExist, statErr)}
		}
		file, err = hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	default:
		return nil, fmt.Errorf("%w: %v", columns.ErrMode, mode)
	}
	if err != nil {
		return nil, &ErrOpenFile{Filename: path, Err: err}
	}
	return &Store{file: file, path: path, mode: mode, groups: make(map[string]*hdf5.Group)}, nil
}

type Store struct {
	file   *hdf5.File
	path   string
	mode   columns.Mode
	groups map[string]*hdf5.Group
	order  []string
	trees  []*Tree
	closed bool
}

// group walks the components of a tree name, creating missing groups when
// create is set.
func (s *Store) group(name string, create bool) (*hdf5.Group, error) {
	var (
		parent location = s.file
		g      *hdf5.Group
		path   string
	)
	for _, part := range strings.Split(name, "/") {
		if part == "" {
			return nil, fmt.Errorf("%w: invalid tree name %q", columns.ErrNoTree, name)
		}
		if path == "" {
			path = part
		} else {
			path += "/" + part
		}
		if opened, ok := s.groups[path]; ok {
			g, parent = opened, opened
			continue
		}

		var err error
		switch {
		case parent.LinkExists(part):
			g, err = parent.OpenGroup(part)
		case create:
			g, err = parent.CreateGroup(part)
		default:
			return nil, fmt.Errorf("%w: %q", columns.ErrNoTree, name)
		}
		if err != nil {
			return nil, fmt.Errorf("error opening group %s: %w", path, err)
		}
		s.groups[path] = g
		s.order = append(s.order, path)
		parent = g
	}
	return g, nil
}

func (s *Store) CreateTree(name string) (columns.Tree, error) {
	if s.closed {
		return nil, columns.ErrClosed
	}
	if s.mode != columns.Write {
		return nil, fmt.Errorf("%w: create tree %q", columns.ErrMode, name)
	}
	if s.HasTree(name) {
		return nil, fmt.Errorf("%w: tree %q exists", columns.ErrKind, name)
	}
	g, err := s.group(name, true)
	if err != nil {
		return nil, err
	}
	entry, err := createColumn(g, entryDataset, hdf5.T_NATIVE_UINT64)
	if err != nil {
		return nil, err
	}
	t := newTree(s, name, g, entry)
	s.trees = append(s.trees, t)
	return t, nil
}

func (s *Store) OpenTree(name string) (columns.Tree, error) {
	if s.closed {
		return nil, columns.ErrClosed
	}
	if s.mode != columns.Read {
		return nil, fmt.Errorf("%w: open tree %q", columns.ErrMode, name)
	}
	if !s.HasTree(name) {
		return nil, fmt.Errorf("%w: %q", columns.ErrNoTree, name)
	}
	g, err := s.group(name, false)
	if err != nil {
		return nil, err
	}
	entry, err := g.OpenDataset(entryDataset)
	if err != nil {
		return nil, fmt.Errorf("error opening %s/%s: %w", name, entryDataset, err)
	}
	rows, err := columnLength(entry)
	if err != nil {
		entry.Close()
		return nil, fmt.Errorf("error sizing tree %s: %w", name, err)
	}
	t := newTree(s, name, g, entry)
	t.rows = int(rows)
	s.trees = append(s.trees, t)
	return t, nil
}

// HasTree reports whether the file holds a tree of that name. It does not
// create anything.
func (s *Store) HasTree(name string) bool {
	if s.closed {
		return false
	}
	var parent location = s.file
	parts := strings.Split(name, "/")
	for i, part := range parts {
		if part == "" || !parent.LinkExists(part) {
			return false
		}
		path := strings.Join(parts[:i+1], "/")
		g, ok := s.groups[path]
		if !ok {
			var err error
			g, err = parent.OpenGroup(part)
			if err != nil {
				return false
			}
			s.groups[path] = g
			s.order = append(s.order, path)
		}
		parent = g
	}
	return parent.LinkExists(entryDataset)
}

func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, t := range s.trees {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing tree %s: %w", t.name, err))
		}
	}
	for i := len(s.order) - 1; i >= 0; i-- {
		if err := s.groups[s.order[i]].Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing group %s: %w", s.order[i], err))
		}
	}
	if err := s.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file %s: %w", s.path, err))
	}
	return errors.Join(errs...)
}
