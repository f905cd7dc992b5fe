package hdf5store

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
	columnstest.Run(t, "hdf5", func() string {
		n++
		return filepath.Join(dir, fmt.Sprintf("run%d.h5", n))
	})
}

func TestTreeGroupsAreShared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planes.h5")
	store, err := Driver{}.Open(path, columns.Write)
	require.NoError(t, err)
	for _, name := range []string{"Plane0/Hits", "Plane0/Clusters", "Plane1/Hits"} {
		_, err := store.CreateTree(name)
		require.NoError(t, err)
	}
	_, err = store.CreateTree("Plane0/Hits")
	assert.Error(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	store, err = Driver{}.Open(path, columns.Read)
	require.NoError(t, err)
	defer store.Close()
	assert.True(t, store.HasTree("Plane0/Hits"))
	assert.True(t, store.HasTree("Plane0/Clusters"))
	assert.True(t, store.HasTree("Plane1/Hits"))
	assert.False(t, store.HasTree("Plane1/Clusters"))
}

func TestBoolBytes(t *testing.T) {
	in := []bool{true, false, true}
	assert.Equal(t, []uint8{1, 0, 1}, boolsToBytes(in))
	assert.Equal(t, in, bytesToBools([]uint8{1, 0, 2}))
}
