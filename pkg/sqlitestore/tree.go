package sqlitestore

import (
	"fmt"
	"strings"

	"github.com/next-exp/storage_go/pkg/columns"
)

type Tree struct {
	columns.Binding
	store *Store
	name  string
	table string
	rows  int

	insert string
	// read: enabled columns present in the table, in select order
	present []columns.Column
	selectQ string

	closed bool
}

func (t *Tree) Name() string {
	return t.name
}

func (t *Tree) NumRows() int {
	return t.rows
}

// startWrite adds the enabled columns to the table and prepares the
// insert statement.
func (t *Tree) startWrite() error {
	t.Start()
	names := []string{"entry"}
	for _, c := range t.Enabled() {
		typ, err := sqlType(c)
		if err != nil {
			return err
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quote(t.table), quote(c.Name), typ)
		if _, err := t.store.q.Exec(stmt); err != nil {
			return fmt.Errorf("error adding column %s to %s: %w", c.Name, t.table, err)
		}
		names = append(names, quote(c.Name))
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	t.insert = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(t.table), strings.Join(names, ", "), marks)
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

	args := []any{t.rows}
	for _, c := range t.Enabled() {
		values, err := c.Values()
		if err != nil {
			return err
		}
		v, err := encode(c, values)
		if err != nil {
			return err
		}
		args = append(args, v)
	}
	if _, err := t.store.q.Exec(t.insert, args...); err != nil {
		return fmt.Errorf("error inserting row %d into %s: %w", t.rows, t.table, err)
	}
	t.rows++
	return nil
}

// startRead finds which enabled columns the table holds.
func (t *Tree) startRead() error {
	t.Start()
	existing, err := t.store.tableColumns(t.table)
	if err != nil {
		return fmt.Errorf("error listing columns of %s: %w", t.table, err)
	}
	names := []string{}
	for _, c := range t.Enabled() {
		if existing[c.Name] {
			t.present = append(t.present, c)
			names = append(names, quote(c.Name))
		}
	}
	if len(names) > 0 {
		t.selectQ = fmt.Sprintf("SELECT %s FROM %s WHERE entry = ?", strings.Join(names, ", "), quote(t.table))
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

	var row []any
	if t.selectQ != "" {
		var err error
		row, err = t.store.q.QueryRowx(t.selectQ, n).SliceScan()
		if err != nil {
			return fmt.Errorf("error reading row %d of %s: %w", n, t.table, err)
		}
	}
	values := make(map[string]any, len(row))
	for i, c := range t.present {
		values[c.Name] = row[i]
	}

	// Enabled lists scalars first, so counts are set before their arrays.
	for _, c := range t.Enabled() {
		raw, ok := values[c.Name]
		if !ok {
			c.Zero()
			continue
		}
		v, err := decode(c, raw)
		if err != nil {
			return err
		}
		if err := c.SetValues(v); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) Close() error {
	t.closed = true
	return nil
}
