package balsa

import (
	"errors"
	"math/rand"
	"testing"
)

// stumpClassifier returns a two-node-deep tree: feature 0 < 0.5 goes to a
// leaf labeled 0, the rest to a leaf labeled 1.
func stumpClassifier() *TreeClassifier[float64] {
	return &TreeClassifier[float64]{
		Classes:      2,
		Features:     2,
		LeftChild:    []NodeID{1, 0, 0},
		RightChild:   []NodeID{2, 0, 0},
		SplitFeature: []FeatureID{0, 0, 0},
		SplitValue:   []float64{0.5, 0, 0},
		LeafLabel:    []Label{0, 0, 1},
	}
}

func TestTreeClassifierClassify(t *testing.T) {
	tree := stumpClassifier()
	points := []float64{
		0.1, 9,
		0.9, 9,
		0.49, -1,
		0.5, -1,
	}
	out := make([]Label, 4)
	if err := tree.Classify(points, out); err != nil {
		t.Fatalf("classify: %v", err)
	}
	want := []Label{0, 1, 0, 1}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("label[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestTreeClassifierVotesOnce(t *testing.T) {
	tree := stumpClassifier()
	points := []float64{0.1, 0, 0.9, 0}
	votes := NewVoteTable(2, 2)
	voters, err := tree.ClassifyAndVote(points, votes)
	if err != nil {
		t.Fatalf("classifyAndVote: %v", err)
	}
	if voters != 1 {
		t.Fatalf("voters = %d, want 1", voters)
	}
	if votes.Count(0, 0) != 1 || votes.Count(0, 1) != 0 || votes.Count(1, 1) != 1 {
		t.Fatalf("unexpected votes")
	}
}

func TestTreeClassifierRejectsRaggedInput(t *testing.T) {
	tree := stumpClassifier()
	votes := NewVoteTable(1, 2)
	if _, err := tree.ClassifyAndVote([]float64{1, 2, 3}, votes); !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("ragged input: %v, want malformed input", err)
	}
}

func TestFinalizeLabelsLeavesByMajority(t *testing.T) {
	// Identical feature vectors with mixed labels cannot be split; the
	// single leaf takes the majority label, ties towards the smallest.
	points := []float64{7, 7, 7, 7, 7}
	labels := []Label{0, 0, 1, 1, 1}
	tree, err := NewIndexedTree(points, labels, 1, 1, 0, 0.0)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	tree.Seed(3)
	tree.Grow()
	c := tree.Finalize()
	if c.NodeCount() != 1 {
		t.Fatalf("identical points grew %d nodes", c.NodeCount())
	}
	if c.LeafLabel[0] != 1 {
		t.Fatalf("leaf labeled %d, want 1", c.LeafLabel[0])
	}
}

func TestFinalizeRenumbersDepthFirst(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	points, labels := randomDataset(rng, 100, 2)
	tree := growTestTree(t, points, labels, 2, 1, 0, 13)
	c := tree.Finalize()
	if err := c.Validate(); err != nil {
		t.Fatalf("finalized tree invalid: %v", err)
	}
	// In depth-first order the left child of the root is always row 1.
	if c.LeftChild[0] != 0 && c.LeftChild[0] != 1 {
		t.Fatalf("root's left child at row %d, want 1", c.LeftChild[0])
	}
}

func TestValidateCatchesStructuralDamage(t *testing.T) {
	damage := []func(*TreeClassifier[float64]){
		func(c *TreeClassifier[float64]) { c.LeftChild[0] = 0 },            // one child missing
		func(c *TreeClassifier[float64]) { c.RightChild[0] = 9 },           // child out of range
		func(c *TreeClassifier[float64]) { c.SplitFeature[0] = 5 },         // feature out of range
		func(c *TreeClassifier[float64]) { c.LeafLabel[1] = 7 },            // label out of range
		func(c *TreeClassifier[float64]) { c.LeafLabel = c.LeafLabel[:1] }, // ragged columns
	}
	for i, hurt := range damage {
		c := stumpClassifier()
		hurt(c)
		if err := c.Validate(); !errors.Is(err, ErrMalformedInput) {
			t.Errorf("damage %d passed validation: %v", i, err)
		}
	}
	if err := stumpClassifier().Validate(); err != nil {
		t.Fatalf("intact tree rejected: %v", err)
	}
}
