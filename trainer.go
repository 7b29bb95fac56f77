package balsa

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// TrainerParams collect the hyperparameters of a training run.
type TrainerParams struct {
	// FeaturesToConsider is the number of randomly selected features
	// examined per split; 0 picks floor(sqrt(featureCount)).
	FeaturesToConsider int
	// MaxDepth caps the distance of any node to the root; 0 means
	// unlimited.
	MaxDepth int
	// ImpurityThreshold in [0, 1] stops the growth of nodes whose Gini
	// impurity does not exceed it.
	ImpurityThreshold float64
	// TreeCount is the number of trees to train.
	TreeCount int
	// ThreadCount bounds how many trees grow in parallel; values below 1
	// train on the calling goroutine only.
	ThreadCount int
	// Seed is the master seed. It is split deterministically into one
	// seed per tree, so a fixed (seed, dataset, hyperparameters) tuple
	// reproduces the same set of trees regardless of scheduling.
	Seed int64
	// GraphvizPrefix, when non-empty, renders every grown tree to
	// <prefix>_<index>.svg.
	GraphvizPrefix string
}

// Trainer trains a random forest and streams the finished trees to a
// classifier output stream.
type Trainer[F Feature] struct {
	params TrainerParams
}

// NewTrainer returns a trainer with the given hyperparameters.
func NewTrainer[F Feature](params TrainerParams) *Trainer[F] {
	return &Trainer[F]{params: params}
}

// Train grows the configured number of trees over the row-major feature
// matrix and label vector and appends each finished tree to out. Trees
// arrive on the stream in completion order, which is nondeterministic
// under parallel training; classification is insensitive to tree order.
// The caller must not mutate points or labels while Train runs.
func (tr *Trainer[F]) Train(points []F, labels []Label, featureCount int, out ClassifierOutputStream[F]) error {
	p := tr.params
	if featureCount <= 0 {
		return fmt.Errorf("%w: feature count must be positive", ErrClient)
	}
	if len(points) != len(labels)*featureCount {
		return fmt.Errorf("%w: %d feature values do not cover %d points of %d features", ErrClient, len(points), len(labels), featureCount)
	}
	if p.TreeCount < 1 {
		return fmt.Errorf("%w: tree count must be at least 1", ErrClient)
	}
	featuresToConsider := p.FeaturesToConsider
	if featuresToConsider == 0 {
		featuresToConsider = int(math.Sqrt(float64(featureCount)))
		if featuresToConsider < 1 {
			featuresToConsider = 1
		}
	}

	// The template pays the one-time sort cost; every tree starts from a
	// clone of it.
	start := time.Now()
	template, err := NewIndexedTree(points, labels, featureCount, featuresToConsider, p.MaxDepth, p.ImpurityThreshold)
	if err != nil {
		return err
	}
	log.Printf("built feature index over %d points, %d features (%.3fs)", len(labels), featureCount, time.Since(start).Seconds())

	// Per-tree seeds are drawn in tree order before any tree grows, so
	// the forest is reproducible no matter how workers are scheduled.
	seedSource := rand.New(rand.NewSource(p.Seed))
	seeds := make([]int64, p.TreeCount)
	for i := range seeds {
		seeds[i] = seedSource.Int63()
	}

	threads := p.ThreadCount
	if threads < 1 {
		threads = 1
	}
	if threads > p.TreeCount {
		threads = p.TreeCount
	}

	var failure failureSlot
	var failed atomic.Bool
	var streamMu sync.Mutex
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < threads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if failed.Load() {
					continue
				}
				if err := tr.trainTree(template, seeds[i], i, &streamMu, out); err != nil {
					failure.set(err)
					failed.Store(true)
				}
			}
		}()
	}
	for i := 0; i < p.TreeCount; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return failure.err()
}

func (tr *Trainer[F]) trainTree(template *IndexedTree[F], seed int64, index int, streamMu *sync.Mutex, out ClassifierOutputStream[F]) error {
	start := time.Now()
	tree := template.Clone()
	tree.Seed(seed)
	tree.Grow()

	if prefix := tr.params.GraphvizPrefix; prefix != "" {
		if err := tree.RenderGraph(fmt.Sprintf("%s_%05d.svg", prefix, index)); err != nil {
			return err
		}
	}

	classifier := tree.Finalize()
	streamMu.Lock()
	err := out.Write(classifier)
	streamMu.Unlock()
	if err != nil {
		return err
	}
	log.Printf("trained tree %d: %d nodes (%.3fs)", index, classifier.NodeCount(), time.Since(start).Seconds())
	return nil
}
