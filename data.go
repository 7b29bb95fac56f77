package balsa

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// ReadMatrix loads a two-dimensional .npy table as a dense matrix.
func ReadMatrix(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSupplier, err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrSupplier, path, err)
	}
	m := &mat.Dense{}
	if err := r.Read(m); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrSupplier, path, err)
	}
	return m, nil
}

// MatrixData returns the row-major backing slice of a dense matrix, the
// shape the engine consumes. The data is copied only when the matrix is a
// strided view.
func MatrixData(m *mat.Dense) []float64 {
	raw := m.RawMatrix()
	if raw.Stride == raw.Cols {
		return raw.Data[:raw.Rows*raw.Cols]
	}
	out := make([]float64, raw.Rows*raw.Cols)
	for i := 0; i < raw.Rows; i++ {
		copy(out[i*raw.Cols:(i+1)*raw.Cols], raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols])
	}
	return out
}

// ReadLabels loads a one-column .npy table of class labels. The stored
// values may be uint8, a signed integer type (int8 to int64), or a float
// type holding whole numbers; other types, including the wider unsigned
// ones, are rejected. Every value must fit a Label.
func ReadLabels(path string) ([]Label, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSupplier, err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrSupplier, path, err)
	}
	shape := r.Header.Descr.Shape
	if len(shape) == 2 && shape[1] != 1 {
		return nil, fmt.Errorf("%w: label table %s has %d columns, want 1", ErrClient, path, shape[1])
	}
	if len(shape) > 2 {
		return nil, fmt.Errorf("%w: label table %s has %d dimensions", ErrClient, path, len(shape))
	}

	var values []float64
	switch kind := strings.TrimLeft(r.Header.Descr.Type, "<>|="); kind {
	case "u1":
		var raw []uint8
		if err := r.Read(&raw); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrSupplier, path, err)
		}
		labels := make([]Label, len(raw))
		for i, v := range raw {
			labels[i] = Label(v)
		}
		return labels, nil
	case "i1":
		var raw []int8
		if err := r.Read(&raw); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrSupplier, path, err)
		}
		values = widen(raw)
	case "i2":
		var raw []int16
		if err := r.Read(&raw); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrSupplier, path, err)
		}
		values = widen(raw)
	case "i4":
		var raw []int32
		if err := r.Read(&raw); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrSupplier, path, err)
		}
		values = widen(raw)
	case "i8":
		var raw []int64
		if err := r.Read(&raw); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrSupplier, path, err)
		}
		values = widen(raw)
	case "f4":
		var raw []float32
		if err := r.Read(&raw); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrSupplier, path, err)
		}
		values = widen(raw)
	case "f8":
		if err := r.Read(&values); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrSupplier, path, err)
		}
	default:
		return nil, fmt.Errorf("%w: label table %s stores unsupported type %q", ErrClient, path, r.Header.Descr.Type)
	}

	labels := make([]Label, len(values))
	for i, v := range values {
		if math.IsNaN(v) || v != math.Trunc(v) || v < 0 || v > 255 {
			return nil, fmt.Errorf("%w: value %v of %s is not a valid label", ErrClient, v, path)
		}
		labels[i] = Label(v)
	}
	return labels, nil
}

func widen[T int8 | int16 | int32 | int64 | float32](raw []T) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out
}

// WriteLabels writes labels as a one-dimensional .npy table.
func WriteLabels(path string, labels []Label) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSupplier, err)
	}
	raw := make([]uint8, len(labels))
	for i, l := range labels {
		raw[i] = uint8(l)
	}
	if err := npyio.Write(f, raw); err != nil {
		f.Close()
		return fmt.Errorf("%w: writing %s: %v", ErrSupplier, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", ErrSupplier, path, err)
	}
	return nil
}
