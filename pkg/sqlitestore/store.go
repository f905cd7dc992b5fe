// Package sqlitestore stores column trees in a SQLite database, one table
// per tree and one row per event. Array columns are little endian blobs.
package sqlitestore

import (
	"errors"
	"fmt"
	"os"
	"strings"

	sqlx "github.com/jmoiron/sqlx"
	"github.com/next-exp/storage_go/pkg/columns"
	_ "modernc.org/sqlite"
)

func init() {
	columns.Register("sqlite", Driver{})
}

type Driver struct{}

const schema = `CREATE TABLE IF NOT EXISTS trees (
	name TEXT PRIMARY KEY,
	tbl  TEXT NOT NULL UNIQUE
)`

func (Driver) Open(path string, mode columns.Mode) (columns.Store, error) {
	switch mode {
	case columns.Write:
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error truncating %s: %w", path, err)
		}
	case columns.Read:
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %w", columns.ErrNotExist, err)
		}
	default:
		return nil, fmt.Errorf("%w: %v", columns.ErrMode, mode)
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	s := &Store{db: db, path: path, mode: mode, q: db}
	if mode == columns.Read {
		return s, nil
	}

	// Everything written goes into a single transaction committed on Close.
	tx, err := db.Beginx()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error starting transaction on %s: %w", path, err)
	}
	if _, err := tx.Exec(schema); err != nil {
		tx.Rollback()
		db.Close()
		return nil, fmt.Errorf("error creating schema in %s: %w", path, err)
	}
	s.tx, s.q = tx, tx
	return s, nil
}

type Store struct {
	db     *sqlx.DB
	tx     *sqlx.Tx
	q      sqlx.Ext
	path   string
	mode   columns.Mode
	trees  []*Tree
	closed bool
}

// tableName maps a tree name to a table name: "Plane0/Hits" is
// "Plane0_Hits".
func tableName(tree string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, tree)
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *Store) CreateTree(name string) (columns.Tree, error) {
	if s.closed {
		return nil, columns.ErrClosed
	}
	if s.mode != columns.Write {
		return nil, fmt.Errorf("%w: create tree %q", columns.ErrMode, name)
	}
	table := tableName(name)
	if _, err := s.q.Exec("INSERT INTO trees (name, tbl) VALUES (?, ?)", name, table); err != nil {
		return nil, fmt.Errorf("error registering tree %s: %w", name, err)
	}
	if _, err := s.q.Exec(fmt.Sprintf("CREATE TABLE %s (entry INTEGER PRIMARY KEY)", quote(table))); err != nil {
		return nil, fmt.Errorf("error creating table for tree %s: %w", name, err)
	}
	t := &Tree{store: s, name: name, table: table}
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
	var table string
	if err := sqlx.Get(s.q, &table, "SELECT tbl FROM trees WHERE name = ?", name); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", columns.ErrNoTree, name, err)
	}
	var rows int
	if err := sqlx.Get(s.q, &rows, fmt.Sprintf("SELECT COUNT(*) FROM %s", quote(table))); err != nil {
		return nil, fmt.Errorf("error counting rows of tree %s: %w", name, err)
	}
	t := &Tree{store: s, name: name, table: table, rows: rows}
	s.trees = append(s.trees, t)
	return t, nil
}

func (s *Store) HasTree(name string) bool {
	if s.closed {
		return false
	}
	var n int
	if err := sqlx.Get(s.q, &n, "SELECT COUNT(*) FROM trees WHERE name = ?", name); err != nil {
		return false
	}
	return n > 0
}

// tableColumns lists the columns of a table.
func (s *Store) tableColumns(table string) (map[string]bool, error) {
	var info []struct {
		CID     int     `db:"cid"`
		Name    string  `db:"name"`
		Type    string  `db:"type"`
		NotNull bool    `db:"notnull"`
		Default *string `db:"dflt_value"`
		PK      int     `db:"pk"`
	}
	if err := sqlx.Select(s.q, &info, fmt.Sprintf("PRAGMA table_info(%s)", quote(table))); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(info))
	for _, c := range info {
		out[c.Name] = true
	}
	return out, nil
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
	if s.tx != nil {
		if err := s.tx.Commit(); err != nil {
			errs = append(errs, fmt.Errorf("error committing %s: %w", s.path, err))
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing %s: %w", s.path, err))
	}
	return errors.Join(errs...)
}
