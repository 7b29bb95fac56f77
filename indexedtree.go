package balsa

import (
	"fmt"
	"math"
)

// treeNode is the training-time representation of one tree node. A node
// with left == 0 is a leaf; interior nodes carry the split that separates
// their children. The node's points occupy the range
// [indexOffset, indexOffset+counts.Total()) of every feature sequence.
type treeNode[F Feature] struct {
	left, right NodeID
	indexOffset int
	depth       int
	counts      FrequencyTable
	split       Split[F]
}

// IndexedTree grows one decision tree over a per-feature sorted search
// index. Constructing the tree builds the index, which is expensive; when
// training many trees on the same data, construct one template tree and
// grow reseeded clones of it instead.
type IndexedTree[F Feature] struct {
	points             []F
	pointCount         int
	featureCount       int
	featuresToConsider int
	maxDepth           int
	impurityThreshold  float64

	index    *featureIndex[F]
	nodes    []treeNode[F]
	growable []NodeID
	coin     weightedCoin
	skipped  []FeatureID
}

// NewIndexedTree creates a tree with a single root node covering all
// points. points is the row-major feature matrix of the labeled points;
// featuresToConsider is the number of randomly selected features examined
// per split and must lie in [1, featureCount]; maxDepth caps the distance
// of any node to the root (0 means unlimited); impurityThreshold in [0, 1]
// stops the growth of nodes that are already pure enough: 0 grows while
// any impurity remains.
func NewIndexedTree[F Feature](points []F, labels []Label, featureCount, featuresToConsider, maxDepth int, impurityThreshold float64) (*IndexedTree[F], error) {
	if featureCount <= 0 {
		return nil, fmt.Errorf("%w: feature count must be positive", ErrClient)
	}
	if len(points) != len(labels)*featureCount {
		return nil, fmt.Errorf("%w: %d feature values do not cover %d points of %d features", ErrClient, len(points), len(labels), featureCount)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: empty dataset", ErrClient)
	}
	if featuresToConsider < 1 || featuresToConsider > featureCount {
		return nil, fmt.Errorf("%w: features to consider %d outside [1, %d]", ErrClient, featuresToConsider, featureCount)
	}
	if impurityThreshold < 0 || impurityThreshold > 1 {
		return nil, fmt.Errorf("%w: impurity threshold %g outside [0, 1]", ErrClient, impurityThreshold)
	}
	if maxDepth <= 0 {
		maxDepth = math.MaxInt
	}

	index, err := newFeatureIndex(points, labels, featureCount)
	if err != nil {
		return nil, err
	}

	t := &IndexedTree[F]{
		points:             points,
		pointCount:         len(labels),
		featureCount:       featureCount,
		featuresToConsider: featuresToConsider,
		maxDepth:           maxDepth,
		impurityThreshold:  impurityThreshold,
		index:              index,
		coin:               newWeightedCoin(0),
	}
	t.nodes = append(t.nodes, treeNode[F]{counts: CountLabels(labels)})
	if t.growableNode(0) {
		t.growable = append(t.growable, 0)
	}
	return t, nil
}

// ClassCount returns the number of classes distinguished by this tree.
func (t *IndexedTree[F]) ClassCount() int {
	return t.nodes[0].counts.Size()
}

// FeatureCount returns the number of features the tree was built over.
func (t *IndexedTree[F]) FeatureCount() int {
	return t.featureCount
}

// Seed reinitializes the random engine used to select the features
// considered per split.
func (t *IndexedTree[F]) Seed(seed int64) {
	t.coin.Seed(seed)
}

// Clone copies the tree so the copy can be reseeded and grown
// independently. The sorted index and node table are duplicated; only the
// read-only feature matrix is shared. Cloning a template before its first
// grow step is much cheaper than constructing a second tree.
func (t *IndexedTree[F]) Clone() *IndexedTree[F] {
	dup := &IndexedTree[F]{
		points:             t.points,
		pointCount:         t.pointCount,
		featureCount:       t.featureCount,
		featuresToConsider: t.featuresToConsider,
		maxDepth:           t.maxDepth,
		impurityThreshold:  t.impurityThreshold,
		index:              t.index.clone(),
		nodes:              make([]treeNode[F], len(t.nodes)),
		growable:           append([]NodeID(nil), t.growable...),
		coin:               newWeightedCoin(0),
	}
	for i := range t.nodes {
		n := t.nodes[i]
		n.counts = n.counts.Clone()
		dup.nodes[i] = n
	}
	return dup
}

// Grow splits growable leaves until none remain.
func (t *IndexedTree[F]) Grow() {
	for t.IsGrowable() {
		t.GrowNextLeaf()
	}
}

// IsGrowable reports whether any growable leaves remain.
func (t *IndexedTree[F]) IsGrowable() bool {
	return len(t.growable) > 0
}

// GrowNextLeaf grows the leaf at the head of the growable queue.
// The tree must be growable.
func (t *IndexedTree[F]) GrowNextLeaf() {
	leaf := t.growable[0]
	t.growable = t.growable[1:]
	t.growLeaf(leaf)
}

// NodeCount returns the number of nodes currently in the tree.
func (t *IndexedTree[F]) NodeCount() int {
	return len(t.nodes)
}

func (t *IndexedTree[F]) growLeaf(id NodeID) {
	candidate := t.findBestSplit(id)
	if candidate.valid() {
		t.splitNode(id, candidate)
	}
}

// findBestSplit scans a random subset of featuresToConsider features for
// the lowest-impurity split of the node. If none of the selected features
// yields a valid split, the skipped features are scanned in id order and
// the first valid candidate wins. An invalid result means every point of
// the node has an identical feature vector.
func (t *IndexedTree[F]) findBestSplit(id NodeID) splitCandidate[F] {
	best := invalidSplit[F]()
	toScan := t.featuresToConsider
	t.skipped = t.skipped[:0]
	for f := 0; f < t.featureCount; f++ {
		if !t.coin.flip(toScan, t.featureCount-f) {
			t.skipped = append(t.skipped, FeatureID(f))
			continue
		}
		toScan--
		best = t.bestSplitForFeature(id, FeatureID(f), best)
	}
	if best.valid() {
		return best
	}
	for _, f := range t.skipped {
		best = t.bestSplitForFeature(id, f, best)
		if best.valid() {
			return best
		}
	}
	return best
}

// bestSplitForFeature walks the node's contiguous range of one feature
// sequence and returns the best of the incumbent candidate and all
// candidates along this feature. A candidate is evaluated at the first
// entry of each block of equal values, so a block is never split within;
// its threshold is the entry's value, with the counts accumulated so far
// forming the left half.
func (t *IndexedTree[F]) bestSplitForFeature(id NodeID, f FeatureID, incumbent splitCandidate[F]) splitCandidate[F] {
	node := &t.nodes[id]
	entries := t.index.entries(f, node.indexOffset, node.counts.Total())

	best := incumbent
	blockValue := entries[0].value
	left := NewFrequencyTable(node.counts.Size())
	right := node.counts.Clone()
	for _, e := range entries {
		if e.value > blockValue {
			candidate := newSplitCandidate(Split[F]{Feature: f, Value: e.value}, left.Clone(), right.Clone())
			if candidate.impurity < best.impurity {
				best = candidate
			}
		}
		blockValue = e.value
		left.Increment(e.label)
		right.Decrement(e.label)
	}
	return best
}

// splitNode applies a split to a leaf: it repartitions the node's index
// ranges, appends both children and enqueues those that can still grow.
func (t *IndexedTree[F]) splitNode(id NodeID, candidate splitCandidate[F]) {
	node := &t.nodes[id]
	leftCount := candidate.left.Total()
	t.index.partition(node.indexOffset, node.counts.Total(), candidate.split)

	leftID := NodeID(len(t.nodes))
	rightID := leftID + 1
	left := treeNode[F]{
		indexOffset: node.indexOffset,
		depth:       node.depth + 1,
		counts:      candidate.left,
	}
	right := treeNode[F]{
		indexOffset: node.indexOffset + leftCount,
		depth:       node.depth + 1,
		counts:      candidate.right,
	}
	node.split = candidate.split
	node.left = leftID
	node.right = rightID
	t.nodes = append(t.nodes, left, right)

	if t.growableNode(leftID) {
		t.growable = append(t.growable, leftID)
	}
	if t.growableNode(rightID) {
		t.growable = append(t.growable, rightID)
	}
}

// growableNode reports whether it is still meaningful to grow a leaf:
// the depth cap must leave room and the leaf must be impure enough.
func (t *IndexedTree[F]) growableNode(id NodeID) bool {
	node := &t.nodes[id]
	if node.depth >= t.maxDepth {
		return false
	}
	return node.counts.Gini() > t.impurityThreshold
}

// Finalize converts the grown tree into its compact read-only form. Nodes
// are renumbered densely in depth-first order with the root at row 0, and
// every leaf label is recomputed from the leaf's label counts.
func (t *IndexedTree[F]) Finalize() *TreeClassifier[F] {
	nodeCount := len(t.nodes)
	c := &TreeClassifier[F]{
		Classes:      t.ClassCount(),
		Features:     t.featureCount,
		LeftChild:    make([]NodeID, nodeCount),
		RightChild:   make([]NodeID, nodeCount),
		SplitFeature: make([]FeatureID, nodeCount),
		SplitValue:   make([]F, nodeCount),
		LeafLabel:    make([]Label, nodeCount),
	}

	newID := make([]NodeID, nodeCount)
	order := make([]NodeID, 0, nodeCount)
	stack := []NodeID{0}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		newID[id] = NodeID(len(order))
		order = append(order, id)
		node := &t.nodes[id]
		if node.left != 0 {
			stack = append(stack, node.right, node.left)
		}
	}

	for _, old := range order {
		node := &t.nodes[old]
		row := newID[old]
		if node.left != 0 {
			c.LeftChild[row] = newID[node.left]
			c.RightChild[row] = newID[node.right]
			c.SplitFeature[row] = node.split.Feature
			c.SplitValue[row] = node.split.Value
		} else {
			c.LeafLabel[row] = node.counts.MostFrequent()
		}
	}
	return c
}
