package balsa

import (
	"fmt"

	"gorgonia.org/tensor"
)

// VoteTable is a pointCount x classCount table of vote counters. Each
// classifier of an ensemble adds one vote per point to the column of its
// predicted class. The backing store is a rank-2 uint32 tensor so that
// worker tables can be reduced with one element-wise addition.
type VoteTable struct {
	rows, cols int
	dense      *tensor.Dense
	votes      []uint32
}

// NewVoteTable returns a zeroed table for the given number of points and
// classes.
func NewVoteTable(pointCount, classCount int) *VoteTable {
	t := &VoteTable{rows: pointCount, cols: classCount}
	if pointCount > 0 && classCount > 0 {
		t.dense = tensor.New(tensor.WithShape(pointCount, classCount), tensor.Of(tensor.Uint32))
		t.votes = t.dense.Data().([]uint32)
	}
	return t
}

// Rows returns the number of points the table covers.
func (v *VoteTable) Rows() int { return v.rows }

// Cols returns the number of classes the table covers.
func (v *VoteTable) Cols() int { return v.cols }

// Vote adds one vote for a label to a point.
func (v *VoteTable) Vote(point int, l Label) {
	v.votes[point*v.cols+int(l)]++
}

// Count returns the number of votes a class received for a point.
func (v *VoteTable) Count(point, class int) uint32 {
	return v.votes[point*v.cols+class]
}

// Add accumulates another table of identical shape into this one.
func (v *VoteTable) Add(o *VoteTable) error {
	if v.rows != o.rows || v.cols != o.cols {
		return fmt.Errorf("%w: vote table shapes %dx%d and %dx%d differ", ErrClient, v.rows, v.cols, o.rows, o.cols)
	}
	if v.dense == nil {
		return nil
	}
	if _, err := v.dense.Add(o.dense, tensor.UseUnsafe()); err != nil {
		return fmt.Errorf("%w: reducing vote tables: %v", ErrClient, err)
	}
	return nil
}

// RowArgmax returns the smallest class attaining the maximum vote count
// for a point.
func (v *VoteTable) RowArgmax(point int) Label {
	row := v.votes[point*v.cols : (point+1)*v.cols]
	best := 0
	for c := 1; c < len(row); c++ {
		if row[c] > row[best] {
			best = c
		}
	}
	return Label(best)
}

// WeightedRowArgmax returns the smallest class attaining the maximum of
// weight[class] * votes[point, class].
func (v *VoteTable) WeightedRowArgmax(point int, weights []float64) Label {
	row := v.votes[point*v.cols : (point+1)*v.cols]
	best := 0
	bestScore := weights[0] * float64(row[0])
	for c := 1; c < len(row); c++ {
		score := weights[c] * float64(row[c])
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return Label(best)
}
