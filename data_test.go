package balsa

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

func writeNpy(t *testing.T, path string, value interface{}) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	if err := npyio.Write(f, value); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
}

func TestReadMatrixRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.npy")
	want := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	writeNpy(t, path, want)

	got, err := ReadMatrix(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !mat.Equal(want, got) {
		t.Fatalf("matrix changed in the round trip")
	}
	data := MatrixData(got)
	for i, v := range []float64{1, 2, 3, 4, 5, 6} {
		if data[i] != v {
			t.Fatalf("row-major data[%d] = %g, want %g", i, data[i], v)
		}
	}
}

func TestReadMatrixMissingFile(t *testing.T) {
	_, err := ReadMatrix(filepath.Join(t.TempDir(), "absent.npy"))
	if !errors.Is(err, ErrSupplier) {
		t.Fatalf("missing file: %v, want supplier error", err)
	}
}

func TestReadLabelsAcceptsIntegralTypes(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name  string
		value interface{}
	}{
		{"u1.npy", []uint8{0, 1, 2}},
		{"i8.npy", []int64{0, 1, 2}},
		{"f8.npy", []float64{0, 1, 2}},
	}
	for _, c := range cases {
		path := filepath.Join(dir, c.name)
		writeNpy(t, path, c.value)
		labels, err := ReadLabels(path)
		if err != nil {
			t.Fatalf("read %s: %v", c.name, err)
		}
		for i, want := range []Label{0, 1, 2} {
			if labels[i] != want {
				t.Fatalf("%s: label[%d] = %d, want %d", c.name, i, labels[i], want)
			}
		}
	}
}

func TestReadLabelsRejectsBadValues(t *testing.T) {
	dir := t.TempDir()

	fractional := filepath.Join(dir, "frac.npy")
	writeNpy(t, fractional, []float64{0, 1.5})
	if _, err := ReadLabels(fractional); !errors.Is(err, ErrClient) {
		t.Fatalf("fractional label accepted: %v", err)
	}

	negative := filepath.Join(dir, "neg.npy")
	writeNpy(t, negative, []int64{0, -1})
	if _, err := ReadLabels(negative); !errors.Is(err, ErrClient) {
		t.Fatalf("negative label accepted: %v", err)
	}

	wide := filepath.Join(dir, "wide.npy")
	writeNpy(t, wide, []int64{0, 300})
	if _, err := ReadLabels(wide); !errors.Is(err, ErrClient) {
		t.Fatalf("label above 255 accepted: %v", err)
	}
}

func TestWriteLabelsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.npy")
	want := []Label{3, 1, 4, 1, 5}
	if err := WriteLabels(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadLabels(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d labels, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("label[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
