package balsa

import "fmt"

// Classifier is anything that can cast votes over a block of points: a
// single compact tree or a whole ensemble. points is row-major with one
// row per point; the vote table must have one row per point and one
// column per class. ClassifyAndVote returns the number of voters that
// contributed.
type Classifier[F Feature] interface {
	ClassCount() int
	FeatureCount() int
	ClassifyAndVote(points []F, votes *VoteTable) (int, error)
}

// TreeClassifier is the compact, read-only form of a grown decision tree:
// five parallel columns indexed by node id, with the root at row 0.
// Interior rows have LeftChild > 0; leaf rows carry the label in
// LeafLabel. The fields are exported for serialization and should be
// treated as read-only.
type TreeClassifier[F Feature] struct {
	Classes      int
	Features     int
	LeftChild    []NodeID
	RightChild   []NodeID
	SplitFeature []FeatureID
	SplitValue   []F
	LeafLabel    []Label
}

// ClassCount returns the number of classes distinguished by the tree.
func (t *TreeClassifier[F]) ClassCount() int { return t.Classes }

// FeatureCount returns the number of features the tree expects.
func (t *TreeClassifier[F]) FeatureCount() int { return t.Features }

// NodeCount returns the number of nodes in the tree.
func (t *TreeClassifier[F]) NodeCount() int { return len(t.LeftChild) }

// Classify bulk-classifies a block of points and writes one label per
// point into out.
func (t *TreeClassifier[F]) Classify(points []F, out []Label) error {
	pointCount, err := pointCountOf(len(points), t.Features)
	if err != nil {
		return err
	}
	if len(out) != pointCount {
		return fmt.Errorf("%w: output for %d labels covers %d points", ErrClient, len(out), pointCount)
	}
	votes := NewVoteTable(pointCount, t.Classes)
	if _, err := t.ClassifyAndVote(points, votes); err != nil {
		return err
	}
	for p := 0; p < pointCount; p++ {
		out[p] = votes.RowArgmax(p)
	}
	return nil
}

// ClassifyAndVote partitions the point-id list in place down the tree and
// adds one vote per point to the table column of the leaf it lands in.
func (t *TreeClassifier[F]) ClassifyAndVote(points []F, votes *VoteTable) (int, error) {
	pointCount, err := pointCountOf(len(points), t.Features)
	if err != nil {
		return 0, err
	}
	if votes.Rows() != pointCount || votes.Cols() != t.Classes {
		return 0, fmt.Errorf("%w: vote table is %dx%d, want %dx%d", ErrClient, votes.Rows(), votes.Cols(), pointCount, t.Classes)
	}
	ids := make([]int, pointCount)
	for p := range ids {
		ids[p] = p
	}
	t.vote(points, ids, 0, votes)
	return 1, nil
}

func (t *TreeClassifier[F]) vote(points []F, ids []int, node NodeID, votes *VoteTable) {
	if t.LeftChild[node] != 0 {
		f := int(t.SplitFeature[node])
		value := t.SplitValue[node]
		lo, hi := 0, len(ids)
		for lo < hi {
			if points[ids[lo]*t.Features+f] < value {
				lo++
			} else {
				hi--
				ids[lo], ids[hi] = ids[hi], ids[lo]
			}
		}
		t.vote(points, ids[:lo], t.LeftChild[node], votes)
		t.vote(points, ids[lo:], t.RightChild[node], votes)
		return
	}
	label := t.LeafLabel[node]
	for _, id := range ids {
		votes.Vote(id, label)
	}
}

// Validate runs the structural checks applied to persisted trees: parallel
// columns of one common length, child ids inside the table and never
// pointing back at the root, children coming in pairs, split features
// inside the feature range.
func (t *TreeClassifier[F]) Validate() error {
	nodeCount := len(t.LeftChild)
	if nodeCount == 0 {
		return fmt.Errorf("%w: tree has no nodes", ErrMalformedInput)
	}
	if len(t.RightChild) != nodeCount || len(t.SplitFeature) != nodeCount ||
		len(t.SplitValue) != nodeCount || len(t.LeafLabel) != nodeCount {
		return fmt.Errorf("%w: tree columns differ in length", ErrMalformedInput)
	}
	if t.Classes <= 0 || t.Features <= 0 {
		return fmt.Errorf("%w: tree declares %d classes and %d features", ErrMalformedInput, t.Classes, t.Features)
	}
	for id := 0; id < nodeCount; id++ {
		left, right := t.LeftChild[id], t.RightChild[id]
		if (left == 0) != (right == 0) {
			return fmt.Errorf("%w: node %d has exactly one child", ErrMalformedInput, id)
		}
		if left == 0 {
			if int(t.LeafLabel[id]) >= t.Classes {
				return fmt.Errorf("%w: leaf %d labeled %d of %d classes", ErrMalformedInput, id, t.LeafLabel[id], t.Classes)
			}
			continue
		}
		if int(left) >= nodeCount || int(right) >= nodeCount {
			return fmt.Errorf("%w: node %d links child outside the tree", ErrMalformedInput, id)
		}
		if int(t.SplitFeature[id]) >= t.Features {
			return fmt.Errorf("%w: node %d splits on feature %d of %d", ErrMalformedInput, id, t.SplitFeature[id], t.Features)
		}
	}
	return nil
}

// pointCountOf derives the number of points in a raw feature block.
func pointCountOf(entryCount, featureCount int) (int, error) {
	if featureCount <= 0 || entryCount%featureCount != 0 {
		return 0, fmt.Errorf("%w: %d feature values are not a whole number of %d-feature points", ErrMalformedInput, entryCount, featureCount)
	}
	return entryCount / featureCount, nil
}
