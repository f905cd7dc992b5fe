package columns_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/next-exp/storage_go/pkg/columns"
	"github.com/next-exp/storage_go/pkg/columns/columnstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var memCounter atomic.Int64

func memPath() string {
	return fmt.Sprintf("%smemory-test-%d", columns.MemoryPrefix, memCounter.Add(1))
}

func TestMemoryDriver(t *testing.T) {
	columnstest.Run(t, "memory", memPath)
}

func TestDriverForPath(t *testing.T) {
	tests := []struct {
		path   string
		driver string
	}{
		{"mem://run1", "memory"},
		{"/data/run1.h5", "hdf5"},
		{"run1.HDF5", "hdf5"},
		{"run1.db", "sqlite"},
		{"run1.sqlite3", "sqlite"},
		{"run1.root", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.driver, columns.DriverForPath(tt.path), tt.path)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := columns.Open("", "run1.root", columns.Write)
	assert.ErrorIs(t, err, columns.ErrUnknownDriver)
	_, err = columns.Open("nosuchdriver", "mem://x", columns.Write)
	assert.ErrorIs(t, err, columns.ErrUnknownDriver)
}

func TestRegisterTwicePanics(t *testing.T) {
	assert.Contains(t, columns.Drivers(), "memory")
	assert.Panics(t, func() {
		columns.Register("memory", nil)
	})
}

func TestRemoveMemoryFile(t *testing.T) {
	path := memPath()
	store, err := columns.Open("", path, columns.Write)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	columns.RemoveMemoryFile(path)
	_, err = columns.Open("", path, columns.Read)
	assert.ErrorIs(t, err, columns.ErrNotExist)
}

func TestMemoryConcurrentFiles(t *testing.T) {
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := memPath()
			store, err := columns.Open("", path, columns.Write)
			if !assert.NoError(t, err) {
				return
			}
			tree, err := store.CreateTree("T")
			if !assert.NoError(t, err) {
				return
			}
			var v uint64
			assert.NoError(t, tree.Bind(columns.Column{Name: "v", Data: &v}))
			for i := 0; i < 100; i++ {
				v = uint64(i)
				assert.NoError(t, tree.Fill())
			}
			assert.Equal(t, 100, tree.NumRows())
			assert.NoError(t, store.Close())
		}()
	}
	wg.Wait()
}
