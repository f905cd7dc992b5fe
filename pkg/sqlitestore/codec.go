package sqlitestore

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/next-exp/storage_go/pkg/columns"
)

func sqlType(c columns.Column) (string, error) {
	k, err := c.Kind()
	if err != nil {
		return "", err
	}
	if c.IsArray() {
		return "BLOB", nil
	}
	if k == columns.Float64 {
		return "REAL", nil
	}
	return "INTEGER", nil
}

// encode turns the output of Column.Values into a SQL value: scalars as
// INTEGER or REAL, arrays as little endian BLOBs.
func encode(c columns.Column, values any) (any, error) {
	if c.IsArray() {
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, values); err != nil {
			return nil, fmt.Errorf("error encoding %s: %w", c.Name, err)
		}
		return buf.Bytes(), nil
	}
	switch v := values.(type) {
	case []int32:
		return int64(v[0]), nil
	case []uint64:
		// bit pattern kept, SQLite integers are signed
		return int64(v[0]), nil
	case []float64:
		return v[0], nil
	case []bool:
		if v[0] {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return nil, fmt.Errorf("%w: column %q cannot encode %T", columns.ErrKind, c.Name, values)
}

// decode turns a scanned SQL value back into a slice for Column.SetValues.
func decode(c columns.Column, raw any) (any, error) {
	k, err := c.Kind()
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return columns.MakeSlice(k, 0), nil
	}

	if c.IsArray() {
		blob, ok := raw.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: column %q holds %T, expected a blob", columns.ErrKind, c.Name, raw)
		}
		size := binary.Size(columns.MakeSlice(k, 1))
		if len(blob)%size != 0 {
			return nil, fmt.Errorf("%w: column %q blob of %d bytes", columns.ErrKind, c.Name, len(blob))
		}
		values := columns.MakeSlice(k, len(blob)/size)
		if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, values); err != nil {
			return nil, fmt.Errorf("error decoding %s: %w", c.Name, err)
		}
		return values, nil
	}

	switch v := raw.(type) {
	case int64:
		switch k {
		case columns.Int32:
			return []int32{int32(v)}, nil
		case columns.Uint64:
			return []uint64{uint64(v)}, nil
		case columns.Float64:
			return []float64{float64(v)}, nil
		case columns.Bool:
			return []bool{v != 0}, nil
		}
	case float64:
		if k == columns.Float64 {
			return []float64{v}, nil
		}
	}
	return nil, fmt.Errorf("%w: column %q holds %T", columns.ErrKind, c.Name, raw)
}
