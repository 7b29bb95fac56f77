package balsa

import (
	"fmt"
	"math"
	"sort"
)

// indexEntry ties one feature value to the point it came from and the
// point's label.
type indexEntry[F Feature] struct {
	value F
	point uint32
	label Label
}

// featureIndex holds, for every feature, the entries of all points sorted
// ascending by value. During growth the entries belonging to one node
// occupy a contiguous range at the same offset in every feature sequence,
// and splitting a node stably repartitions those ranges so the invariant
// carries over to its children.
type featureIndex[F Feature] struct {
	points       []F // row-major, shared read-only with the owning tree
	pointCount   int
	featureCount int
	features     [][]indexEntry[F]
	scratch      []indexEntry[F]
}

// newFeatureIndex builds the sorted per-feature sequences. This is the
// expensive part of tree construction; clones of a built index copy the
// sorted entries instead of sorting again.
func newFeatureIndex[F Feature](points []F, labels []Label, featureCount int) (*featureIndex[F], error) {
	pointCount := len(labels)
	ix := &featureIndex[F]{
		points:       points,
		pointCount:   pointCount,
		featureCount: featureCount,
		features:     make([][]indexEntry[F], featureCount),
		scratch:      make([]indexEntry[F], 0, pointCount),
	}
	for f := 0; f < featureCount; f++ {
		seq := make([]indexEntry[F], pointCount)
		for p := 0; p < pointCount; p++ {
			value := points[p*featureCount+f]
			if math.IsNaN(float64(value)) {
				return nil, fmt.Errorf("%w: feature %d of point %d is not a number", ErrClient, f, p)
			}
			seq[p] = indexEntry[F]{value: value, point: uint32(p), label: labels[p]}
		}
		sort.SliceStable(seq, func(i, j int) bool { return seq[i].value < seq[j].value })
		ix.features[f] = seq
	}
	return ix, nil
}

// clone deep-copies the mutable entry sequences. The raw point matrix is
// shared: it is read-only for the duration of training.
func (ix *featureIndex[F]) clone() *featureIndex[F] {
	features := make([][]indexEntry[F], len(ix.features))
	for f, seq := range ix.features {
		dup := make([]indexEntry[F], len(seq))
		copy(dup, seq)
		features[f] = dup
	}
	return &featureIndex[F]{
		points:       ix.points,
		pointCount:   ix.pointCount,
		featureCount: ix.featureCount,
		features:     features,
		scratch:      make([]indexEntry[F], 0, ix.pointCount),
	}
}

// entries returns the contiguous slice of one feature's sequence that
// covers a node located at offset with the given point count.
func (ix *featureIndex[F]) entries(f FeatureID, offset, count int) []indexEntry[F] {
	return ix.features[f][offset : offset+count]
}

// partition stably splits the node range [offset, offset+count) of every
// feature sequence into the points going left under the split followed by
// the points going right. The sequence of the split feature itself is
// already partitioned: it is sorted by the very value the split tests.
func (ix *featureIndex[F]) partition(offset, count int, split Split[F]) {
	for f := 0; f < ix.featureCount; f++ {
		if FeatureID(f) == split.Feature {
			continue
		}
		seq := ix.features[f][offset : offset+count]
		right := ix.scratch[:0]
		w := 0
		for _, e := range seq {
			if ix.points[int(e.point)*ix.featureCount+int(split.Feature)] < split.Value {
				seq[w] = e
				w++
			} else {
				right = append(right, e)
			}
		}
		copy(seq[w:], right)
	}
}
