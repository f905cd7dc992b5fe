package columns

import (
	"fmt"
	"strings"
	"sync"
)

// The memory driver keeps files in a process wide registry keyed by path,
// so a file written by one store can be read back by another.

type memoryDriver struct{}

type memFile struct {
	mu    sync.Mutex
	trees map[string]*memTable
}

type memTable struct {
	rows []map[string]any
}

var memFiles = struct {
	sync.Mutex
	files map[string]*memFile
}{files: make(map[string]*memFile)}

func init() {
	Register("memory", memoryDriver{})
}

func (memoryDriver) Open(path string, mode Mode) (Store, error) {
	key := strings.TrimPrefix(path, MemoryPrefix)
	memFiles.Lock()
	defer memFiles.Unlock()
	switch mode {
	case Write:
		f := &memFile{trees: make(map[string]*memTable)}
		memFiles.files[key] = f
		return &memStore{file: f, mode: mode}, nil
	case Read:
		f, ok := memFiles.files[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return &memStore{file: f, mode: mode}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrMode, mode)
}

// RemoveMemoryFile drops a file from the memory registry.
func RemoveMemoryFile(path string) {
	memFiles.Lock()
	defer memFiles.Unlock()
	delete(memFiles.files, strings.TrimPrefix(path, MemoryPrefix))
}

type memStore struct {
	file   *memFile
	mode   Mode
	closed bool
}

func (s *memStore) CreateTree(name string) (Tree, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.mode != Write {
		return nil, fmt.Errorf("%w: create tree %q in %v mode", ErrMode, name, s.mode)
	}
	s.file.mu.Lock()
	defer s.file.mu.Unlock()
	table := &memTable{}
	s.file.trees[name] = table
	return &memTree{name: name, file: s.file, table: table, mode: s.mode}, nil
}

func (s *memStore) OpenTree(name string) (Tree, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.mode != Read {
		return nil, fmt.Errorf("%w: open tree %q in %v mode", ErrMode, name, s.mode)
	}
	s.file.mu.Lock()
	defer s.file.mu.Unlock()
	table, ok := s.file.trees[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoTree, name)
	}
	return &memTree{name: name, file: s.file, table: table, mode: s.mode}, nil
}

func (s *memStore) HasTree(name string) bool {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()
	_, ok := s.file.trees[name]
	return ok
}

func (s *memStore) Close() error {
	s.closed = true
	return nil
}

type memTree struct {
	Binding
	name   string
	file   *memFile
	table  *memTable
	mode   Mode
	closed bool
}

func (t *memTree) Name() string {
	return t.name
}

func (t *memTree) Fill() error {
	if t.closed {
		return ErrClosed
	}
	if t.mode != Write {
		return fmt.Errorf("%w: fill %q", ErrMode, t.name)
	}
	t.Start()
	row := make(map[string]any)
	for _, c := range t.Enabled() {
		values, err := c.Values()
		if err != nil {
			return err
		}
		row[c.Name] = values
	}
	t.file.mu.Lock()
	t.table.rows = append(t.table.rows, row)
	t.file.mu.Unlock()
	return nil
}

func (t *memTree) Read(n int) error {
	if t.closed {
		return ErrClosed
	}
	if t.mode != Read {
		return fmt.Errorf("%w: read %q", ErrMode, t.name)
	}
	t.Start()
	t.file.mu.Lock()
	defer t.file.mu.Unlock()
	if n < 0 || n >= len(t.table.rows) {
		return fmt.Errorf("%w: %q row %d of %d", ErrRowRange, t.name, n, len(t.table.rows))
	}
	row := t.table.rows[n]
	for _, c := range t.Enabled() {
		values, ok := row[c.Name]
		if !ok {
			c.Zero()
			continue
		}
		if err := c.SetValues(values); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTree) NumRows() int {
	t.file.mu.Lock()
	defer t.file.mu.Unlock()
	return len(t.table.rows)
}

func (t *memTree) Close() error {
	t.closed = true
	return nil
}
