package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoiseMaskAt(t *testing.T) {
	m := NewNoiseMask(4, 6)
	require.NoError(t, m.Set(3, 5, true))
	require.NoError(t, m.Set(0, 1, true))

	assert.True(t, m.At(3, 5))
	assert.True(t, m.At(0, 1))
	assert.False(t, m.At(5, 3))
	assert.False(t, m.At(-1, 0))
	assert.False(t, m.At(4, 0))
	assert.False(t, m.At(0, 6))
	assert.Equal(t, 2, m.Count())
	assert.Equal(t, [][2]int{{0, 1}, {3, 5}}, m.Pixels())

	assert.ErrorIs(t, m.Set(4, 0, true), ErrOutOfRange)
	assert.ErrorIs(t, m.Set(0, -1, true), ErrOutOfRange)

	require.NoError(t, m.Set(3, 5, false))
	assert.False(t, m.At(3, 5))

	empty := NewNoiseMask(-1, 3)
	assert.False(t, empty.At(0, 0))
}

func TestNoiseMaskFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "masks.yaml")
	m0 := NewNoiseMask(8, 8)
	require.NoError(t, m0.Set(3, 4, true))
	m2 := NewNoiseMask(2, 3)
	require.NoError(t, m2.Set(1, 2, true))
	require.NoError(t, m2.Set(0, 0, true))

	require.NoError(t, WriteNoiseMasks(path, map[int]NoiseMask{2: m2, 0: m0}))
	masks, err := ReadNoiseMasks(path)
	require.NoError(t, err)
	require.Len(t, masks, 2)
	assert.Equal(t, m0, masks[0])
	assert.Equal(t, m2, masks[2])
}

func TestReadNoiseMasksErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"duplicate plane", "planes:\n  - {plane: 0, rows: 2, cols: 2}\n  - {plane: 0, rows: 2, cols: 2}\n"},
		{"pixel outside grid", "planes:\n  - {plane: 0, rows: 2, cols: 2, pixels: [[2, 0]]}\n"},
		{"not yaml", "planes: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := ReadNoiseMasks(path)
			assert.Error(t, err)
		})
	}

	_, err := ReadNoiseMasks(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
