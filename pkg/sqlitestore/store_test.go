package sqlitestore

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/next-exp/storage_go/pkg/columns"
	"github.com/next-exp/storage_go/pkg/columns/columnstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriver(t *testing.T) {
	dir := t.TempDir()
	n := 0
	columnstest.Run(t, "sqlite", func() string {
		n++
		return filepath.Join(dir, fmt.Sprintf("run%d.db", n))
	})
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "Plane0_Hits", tableName("Plane0/Hits"))
	assert.Equal(t, "Event", tableName("Event"))
	assert.Equal(t, `"a""b"`, quote(`a"b`))
}

func TestWriteTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")
	for i := 0; i < 2; i++ {
		store, err := Driver{}.Open(path, columns.Write)
		require.NoError(t, err)
		tree, err := store.CreateTree("Event")
		require.NoError(t, err)
		var v int32
		require.NoError(t, tree.Bind(columns.Column{Name: "v", Data: &v}))
		require.NoError(t, tree.Fill())
		require.NoError(t, store.Close())
	}

	store, err := Driver{}.Open(path, columns.Read)
	require.NoError(t, err)
	defer store.Close()
	tree, err := store.OpenTree("Event")
	require.NoError(t, err)
	assert.Equal(t, 1, tree.NumRows())
}

func TestCodec(t *testing.T) {
	count := int32(3)
	arr := columns.Column{Name: "a", Data: make([]float64, 4), Count: &count}
	raw, err := encode(arr, []float64{1, -2, 3.5})
	require.NoError(t, err)
	assert.Len(t, raw, 24)
	back, err := decode(arr, raw)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, -2, 3.5}, back)

	_, err = decode(arr, []byte{1, 2, 3})
	assert.ErrorIs(t, err, columns.ErrKind)

	u := columns.Column{Name: "u", Data: new(uint64)}
	raw, err = encode(u, []uint64{1<<64 - 1})
	require.NoError(t, err)
	back, err = decode(u, raw)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1<<64 - 1}, back)

	b := columns.Column{Name: "b", Data: new(bool)}
	back, err = decode(b, int64(1))
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, back)
}
