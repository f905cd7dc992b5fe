package storage

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// NoiseMask flags known noisy pixels of one plane on a row-major grid.
// Hits are looked up with At(PixX, PixY): rows run along pixel X.
type NoiseMask struct {
	Rows int
	Cols int
	mask []bool
}

func NewNoiseMask(rows int, cols int) NoiseMask {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	return NoiseMask{Rows: rows, Cols: cols, mask: make([]bool, rows*cols)}
}

// At reports whether the pixel is masked. Coordinates outside the grid are
// never masked.
func (m NoiseMask) At(row int, col int) bool {
	if row < 0 || row >= m.Rows || col < 0 || col >= m.Cols {
		return false
	}
	return m.mask[row*m.Cols+col]
}

func (m *NoiseMask) Set(row int, col int, masked bool) error {
	if row < 0 || row >= m.Rows {
		return &RangeError{What: "mask row", Index: row, Len: m.Rows}
	}
	if col < 0 || col >= m.Cols {
		return &RangeError{What: "mask column", Index: col, Len: m.Cols}
	}
	m.mask[row*m.Cols+col] = masked
	return nil
}

func (m NoiseMask) Count() int {
	n := 0
	for _, v := range m.mask {
		if v {
			n++
		}
	}
	return n
}

// Pixels lists the masked (row, col) pairs in row-major order.
func (m NoiseMask) Pixels() [][2]int {
	var out [][2]int
	for i, v := range m.mask {
		if v {
			out = append(out, [2]int{i / m.Cols, i % m.Cols})
		}
	}
	return out
}

type noiseMaskFile struct {
	Planes []noiseMaskEntry `yaml:"planes"`
}

type noiseMaskEntry struct {
	Plane  int      `yaml:"plane"`
	Rows   int      `yaml:"rows"`
	Cols   int      `yaml:"cols"`
	Pixels [][2]int `yaml:"pixels,flow"`
}

// ReadNoiseMasks loads the per-plane masks of a YAML mask file.
func ReadNoiseMasks(filename string) (map[int]NoiseMask, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading noise mask file %q: %w", filename, err)
	}
	var file noiseMaskFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing noise mask file %q: %w", filename, err)
	}

	masks := make(map[int]NoiseMask, len(file.Planes))
	for _, entry := range file.Planes {
		if _, dup := masks[entry.Plane]; dup {
			return nil, fmt.Errorf("%w: plane %d listed twice in %q", ErrConfiguration, entry.Plane, filename)
		}
		mask := NewNoiseMask(entry.Rows, entry.Cols)
		for _, px := range entry.Pixels {
			if err := mask.Set(px[0], px[1], true); err != nil {
				return nil, fmt.Errorf("plane %d in %q: %w", entry.Plane, filename, err)
			}
		}
		masks[entry.Plane] = mask
	}
	return masks, nil
}

// WriteNoiseMasks stores masks as YAML, replacing the file atomically.
func WriteNoiseMasks(filename string, masks map[int]NoiseMask) error {
	planes := make([]int, 0, len(masks))
	for plane := range masks {
		planes = append(planes, plane)
	}
	sort.Ints(planes)

	var file noiseMaskFile
	for _, plane := range planes {
		mask := masks[plane]
		file.Planes = append(file.Planes, noiseMaskEntry{
			Plane:  plane,
			Rows:   mask.Rows,
			Cols:   mask.Cols,
			Pixels: mask.Pixels(),
		})
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("error encoding noise masks: %w", err)
	}
	if err := atomic.WriteFile(filename, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("error writing noise mask file %q: %w", filename, err)
	}
	return nil
}
