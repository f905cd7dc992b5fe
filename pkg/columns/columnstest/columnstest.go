// Package columnstest checks that a column store driver honours the
// columns contract.
package columnstest

import (
	"testing"

	"github.com/next-exp/storage_go/pkg/columns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type buffers struct {
	N      int32
	X      [8]int32
	Y      [8]float64
	Flags  [8]bool
	Stamp  uint64
	Weight float64
}

func (b *buffers) columns() []columns.Column {
	return []columns.Column{
		{Name: "n", Data: &b.N},
		{Name: "x", Data: b.X[:], Count: &b.N},
		{Name: "y", Data: b.Y[:], Count: &b.N},
		{Name: "flags", Data: b.Flags[:], Count: &b.N},
		{Name: "stamp", Data: &b.Stamp},
		{Name: "weight", Data: &b.Weight},
	}
}

func bind(t *testing.T, tree columns.Tree, b *buffers) {
	t.Helper()
	for _, c := range b.columns() {
		require.NoError(t, tree.Bind(c))
	}
}

var rows = []buffers{
	{N: 2, X: [8]int32{1, -2}, Y: [8]float64{0.5, 1.5}, Flags: [8]bool{true, false}, Stamp: 1 << 40, Weight: 3.25},
	{N: 0, Stamp: 7},
	{N: 3, X: [8]int32{7, 8, 9}, Y: [8]float64{-1, -2, -3}, Flags: [8]bool{false, true, true}, Stamp: 9, Weight: -1},
}

// Run writes a file with two trees through the named driver and reads it
// back. newPath returns a fresh path for every call.
func Run(t *testing.T, driver string, newPath func() string) {
	t.Run("RoundTrip", func(t *testing.T) {
		path := newPath()
		write(t, driver, path, nil)

		store, err := columns.Open(driver, path, columns.Read)
		require.NoError(t, err)
		defer store.Close()

		require.True(t, store.HasTree("Plane0/Data"))
		require.True(t, store.HasTree("Empty"))
		require.False(t, store.HasTree("Plane1/Data"))
		require.False(t, store.HasTree("Plane0"))

		tree, err := store.OpenTree("Plane0/Data")
		require.NoError(t, err)
		assert.Equal(t, len(rows), tree.NumRows())

		var b buffers
		bind(t, tree, &b)
		// read out of order and twice
		for _, i := range []int{2, 0, 1, 2} {
			b = buffers{N: 99}
			require.NoError(t, tree.Read(i))
			want := rows[i]
			assert.Equal(t, want.N, b.N, "row %d", i)
			assert.Equal(t, want.X[:want.N], b.X[:b.N], "row %d", i)
			assert.Equal(t, want.Y[:want.N], b.Y[:b.N], "row %d", i)
			assert.Equal(t, want.Flags[:want.N], b.Flags[:b.N], "row %d", i)
			assert.Equal(t, want.Stamp, b.Stamp, "row %d", i)
			assert.Equal(t, want.Weight, b.Weight, "row %d", i)
		}
		assert.ErrorIs(t, tree.Read(len(rows)), columns.ErrRowRange)

		empty, err := store.OpenTree("Empty")
		require.NoError(t, err)
		assert.Equal(t, 0, empty.NumRows())
	})

	t.Run("DisabledColumnsReadAsZero", func(t *testing.T) {
		path := newPath()
		write(t, driver, path, []string{"y", "weight"})

		store, err := columns.Open(driver, path, columns.Read)
		require.NoError(t, err)
		defer store.Close()
		tree, err := store.OpenTree("Plane0/Data")
		require.NoError(t, err)

		var b buffers
		bind(t, tree, &b)
		b.Y = [8]float64{42, 42, 42}
		b.Weight = 42
		require.NoError(t, tree.Read(0))
		assert.Equal(t, int32(2), b.N)
		assert.Equal(t, []int32{1, -2}, b.X[:b.N])
		assert.Equal(t, []float64{0, 0}, b.Y[:b.N])
		assert.Zero(t, b.Weight)
	})

	t.Run("DisabledOnRead", func(t *testing.T) {
		path := newPath()
		write(t, driver, path, nil)

		store, err := columns.Open(driver, path, columns.Read)
		require.NoError(t, err)
		defer store.Close()
		tree, err := store.OpenTree("Plane0/Data")
		require.NoError(t, err)

		var b buffers
		bind(t, tree, &b)
		require.NoError(t, tree.SetEnabled("x", false))
		b.X[0] = 42
		require.NoError(t, tree.Read(0))
		assert.Equal(t, int32(42), b.X[0])
		assert.Equal(t, 0.5, b.Y[0])

		assert.ErrorIs(t, tree.SetEnabled("y", false), columns.ErrStarted)
	})

	t.Run("Modes", func(t *testing.T) {
		path := newPath()
		write(t, driver, path, nil)

		store, err := columns.Open(driver, path, columns.Read)
		require.NoError(t, err)
		defer store.Close()
		_, err = store.CreateTree("Other")
		assert.ErrorIs(t, err, columns.ErrMode)
		_, err = store.OpenTree("Missing")
		assert.ErrorIs(t, err, columns.ErrNoTree)

		tree, err := store.OpenTree("Empty")
		require.NoError(t, err)
		assert.ErrorIs(t, tree.Fill(), columns.ErrMode)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := columns.Open(driver, newPath(), columns.Read)
		assert.ErrorIs(t, err, columns.ErrNotExist)
	})
}

func write(t *testing.T, driver string, path string, disabled []string) {
	t.Helper()
	store, err := columns.Open(driver, path, columns.Write)
	require.NoError(t, err)

	tree, err := store.CreateTree("Plane0/Data")
	require.NoError(t, err)
	_, err = store.CreateTree("Empty")
	require.NoError(t, err)
	_, err = store.OpenTree("Plane0/Data")
	assert.ErrorIs(t, err, columns.ErrMode)

	var b buffers
	bind(t, tree, &b)
	for _, name := range disabled {
		require.NoError(t, tree.SetEnabled(name, false))
	}
	assert.ErrorIs(t, tree.SetEnabled("nope", false), columns.ErrNoColumn)
	assert.ErrorIs(t, tree.Read(0), columns.ErrMode)

	for _, row := range rows {
		b = row
		require.NoError(t, tree.Fill())
	}
	assert.Equal(t, len(rows), tree.NumRows())
	require.NoError(t, store.Close())
}
