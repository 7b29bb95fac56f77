package balsa

import (
	"errors"
	"math"
	"sort"
	"testing"
)

func TestFeatureIndexSortsEachFeature(t *testing.T) {
	points := []float64{
		3, 10,
		1, 30,
		2, 20,
	}
	labels := []Label{0, 1, 0}
	ix, err := newFeatureIndex(points, labels, 2)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	for f := 0; f < 2; f++ {
		seq := ix.entries(FeatureID(f), 0, 3)
		if !sort.SliceIsSorted(seq, func(i, j int) bool { return seq[i].value < seq[j].value }) {
			t.Fatalf("feature %d sequence not sorted: %v", f, seq)
		}
	}
	first := ix.entries(0, 0, 3)[0]
	if first.point != 1 || first.label != 1 {
		t.Fatalf("smallest entry of feature 0 is point %d label %d, want point 1 label 1", first.point, first.label)
	}
}

func TestFeatureIndexRejectsNaN(t *testing.T) {
	points := []float64{1, math.NaN(), 2, 3}
	_, err := newFeatureIndex(points, []Label{0, 1}, 2)
	if !errors.Is(err, ErrClient) {
		t.Fatalf("index with NaN: %v, want client error", err)
	}
}

// A partition keeps the node ranges contiguous: left-going entries first,
// each half still sorted by its own feature.
func TestFeatureIndexPartition(t *testing.T) {
	points := []float64{
		5, 1,
		4, 2,
		3, 3,
		2, 4,
		1, 5,
	}
	labels := []Label{0, 0, 1, 1, 1}
	ix, err := newFeatureIndex(points, labels, 2)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	// Split on feature 0 at 4: points 2, 3, 4 go left.
	ix.partition(0, 5, Split[float64]{Feature: 0, Value: 4})

	seq := ix.entries(1, 0, 5)
	for i, e := range seq[:3] {
		if points[int(e.point)*2] >= 4 {
			t.Fatalf("left half entry %d is point %d with feature0 %g", i, e.point, points[int(e.point)*2])
		}
	}
	for i, e := range seq[3:] {
		if points[int(e.point)*2] < 4 {
			t.Fatalf("right half entry %d is point %d with feature0 %g", i, e.point, points[int(e.point)*2])
		}
	}
	for _, half := range [][]indexEntry[float64]{seq[:3], seq[3:]} {
		if !sort.SliceIsSorted(half, func(i, j int) bool { return half[i].value < half[j].value }) {
			t.Fatalf("half not sorted after partition: %v", half)
		}
	}
}

func TestFeatureIndexCloneIsIndependent(t *testing.T) {
	points := []float64{2, 1, 3, 4}
	labels := []Label{0, 1}
	ix, err := newFeatureIndex(points, labels, 2)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	dup := ix.clone()
	dup.entries(0, 0, 2)[0].label = 1
	if got := ix.entries(0, 0, 2)[0].label; got != 0 {
		t.Fatalf("clone mutation leaked into original: label %d", got)
	}
}
