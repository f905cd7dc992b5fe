package hdf5store

import (
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
	"github.com/next-exp/storage_go/pkg/columns"
)

const (
	chunkSize        = 32768
	compressionLevel = 4
	// entryDataset holds the row numbers of a tree, so empty trees and
	// trees without scalar columns still know their length.
	entryDataset = "_entry"
)

// location is a file or a group.
type location interface {
	CreateGroup(name string) (*hdf5.Group, error)
	OpenGroup(name string) (*hdf5.Group, error)
	LinkExists(name string) bool
}

func datatypeFor(k columns.Kind) (*hdf5.Datatype, error) {
	switch k {
	case columns.Int32:
		return hdf5.T_NATIVE_INT32, nil
	case columns.Uint64:
		return hdf5.T_NATIVE_UINT64, nil
	case columns.Float64:
		return hdf5.T_NATIVE_DOUBLE, nil
	case columns.Bool:
		// stored as 0/1 bytes
		return hdf5.T_NATIVE_UINT8, nil
	}
	return nil, fmt.Errorf("%w: no HDF5 type for %v", columns.ErrKind, k)
}

// createColumn creates an empty one dimensional extensible dataset.
func createColumn(group *hdf5.Group, name string, dtype *hdf5.Datatype) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, fmt.Errorf("error creating dataspace for %s: %w", name, err)
	}
	defer fileSpace.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, fmt.Errorf("error creating property list for %s: %w", name, err)
	}
	defer plist.Close()

	if err := plist.SetChunk([]uint{chunkSize}); err != nil {
		return nil, fmt.Errorf("error setting chunk size for %s: %w", name, err)
	}
	if err := plist.SetDeflate(compressionLevel); err != nil {
		return nil, fmt.Errorf("error setting compression for %s: %w", name, err)
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, fmt.Errorf("error creating dataset %s: %w", name, err)
	}
	return dset, nil
}

// appendColumn extends the dataset by len(data) and writes data at the
// end. size is the current length of the dataset.
func appendColumn[T any](dataset *hdf5.Dataset, data []T, size uint) error {
	length := uint(len(data))
	if length == 0 {
		return nil
	}
	dataspace, err := hdf5.CreateSimpleDataspace([]uint{length}, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	// extend
	if err := dataset.Resize([]uint{size + length}); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	if err := filespace.SelectHyperslab([]uint{size}, nil, []uint{length}, nil); err != nil {
		return err
	}
	return dataset.WriteSubset(&data, dataspace, filespace)
}

// readColumn reads count values starting at start.
func readColumn[T any](dataset *hdf5.Dataset, start uint, count uint) ([]T, error) {
	data := make([]T, count)
	if count == 0 {
		return data, nil
	}
	dataspace, err := hdf5.CreateSimpleDataspace([]uint{count}, nil)
	if err != nil {
		return nil, err
	}
	defer dataspace.Close()

	filespace := dataset.Space()
	defer filespace.Close()

	if err := filespace.SelectHyperslab([]uint{start}, nil, []uint{count}, nil); err != nil {
		return nil, err
	}
	if err := dataset.ReadSubset(&data, dataspace, filespace); err != nil {
		return nil, err
	}
	return data, nil
}

func columnLength(dataset *hdf5.Dataset) (uint, error) {
	space := dataset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return 0, err
	}
	if len(dims) != 1 {
		return 0, fmt.Errorf("%w: dataset has %d dimensions", columns.ErrKind, len(dims))
	}
	return dims[0], nil
}

func boolsToBytes(values []bool) []uint8 {
	out := make([]uint8, len(values))
	for i, v := range values {
		if v {
			out[i] = 1
		}
	}
	return out
}

func bytesToBools(values []uint8) []bool {
	out := make([]bool, len(values))
	for i, v := range values {
		out[i] = v != 0
	}
	return out
}

// writeValues appends values (as returned by Column.Values) to dataset.
func writeValues(dataset *hdf5.Dataset, values any, size uint) error {
	switch v := values.(type) {
	case []int32:
		return appendColumn(dataset, v, size)
	case []uint64:
		return appendColumn(dataset, v, size)
	case []float64:
		return appendColumn(dataset, v, size)
	case []bool:
		return appendColumn(dataset, boolsToBytes(v), size)
	}
	return fmt.Errorf("%w: cannot write %T", columns.ErrKind, values)
}

// readValues reads count values of the kind, ready for Column.SetValues.
func readValues(dataset *hdf5.Dataset, k columns.Kind, start uint, count uint) (any, error) {
	switch k {
	case columns.Int32:
		return readColumn[int32](dataset, start, count)
	case columns.Uint64:
		return readColumn[uint64](dataset, start, count)
	case columns.Float64:
		return readColumn[float64](dataset, start, count)
	case columns.Bool:
		raw, err := readColumn[uint8](dataset, start, count)
		if err != nil {
			return nil, err
		}
		return bytesToBools(raw), nil
	}
	return nil, fmt.Errorf("%w: cannot read %v", columns.ErrKind, k)
}
