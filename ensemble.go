package balsa

import (
	"fmt"
	"sync"
)

// EnsembleClassifier applies every classifier of a stream to a block of
// points and labels each point by the weighted majority of the votes.
// With maxWorkers > 0 the classifiers fan out over a pool of workers,
// each accumulating votes in a private table; the tables are reduced into
// the caller's table after all workers have joined, so the result is
// independent of scheduling. The ensemble needs exclusive access to its
// stream for the span of one classification pass.
type EnsembleClassifier[F Feature] struct {
	stream     ClassifierInputStream[F]
	maxWorkers int
	weights    []float64
}

// NewEnsembleClassifier binds an ensemble to a classifier stream.
// maxWorkers is the number of worker goroutines spawned per
// classification pass; 0 classifies inline on the calling goroutine.
func NewEnsembleClassifier[F Feature](stream ClassifierInputStream[F], maxWorkers int) *EnsembleClassifier[F] {
	weights := make([]float64, stream.ClassCount())
	for i := range weights {
		weights[i] = 1.0
	}
	return &EnsembleClassifier[F]{stream: stream, maxWorkers: maxWorkers, weights: weights}
}

// ClassCount returns the number of classes distinguished by the ensemble.
func (e *EnsembleClassifier[F]) ClassCount() int { return e.stream.ClassCount() }

// FeatureCount returns the number of features the ensemble expects.
func (e *EnsembleClassifier[F]) FeatureCount() int { return e.stream.FeatureCount() }

// SetClassWeights replaces the per-class multipliers applied to the vote
// totals before the final argmax. There must be one non-negative weight
// per class.
func (e *EnsembleClassifier[F]) SetClassWeights(weights []float64) error {
	if len(weights) != e.ClassCount() {
		return fmt.Errorf("%w: %d weights for %d classes", ErrClient, len(weights), e.ClassCount())
	}
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("%w: class weights must be non-negative", ErrClient)
		}
	}
	e.weights = append([]float64(nil), weights...)
	return nil
}

// Classify bulk-classifies a block of points and returns one label per
// point: the class maximizing weight * votes, ties broken towards the
// smallest class id.
func (e *EnsembleClassifier[F]) Classify(points []F) ([]Label, error) {
	pointCount, err := pointCountOf(len(points), e.FeatureCount())
	if err != nil {
		return nil, err
	}
	votes := NewVoteTable(pointCount, e.ClassCount())
	if _, err := e.ClassifyAndVote(points, votes); err != nil {
		return nil, err
	}
	labels := make([]Label, pointCount)
	for p := range labels {
		labels[p] = votes.WeightedRowArgmax(p, e.weights)
	}
	return labels, nil
}

// ClassifyAndVote lets every classifier of the stream vote on the points,
// accumulating into the given table, and returns the number of voters.
func (e *EnsembleClassifier[F]) ClassifyAndVote(points []F, votes *VoteTable) (int, error) {
	pointCount, err := pointCountOf(len(points), e.FeatureCount())
	if err != nil {
		return 0, err
	}
	if votes.Rows() != pointCount || votes.Cols() != e.ClassCount() {
		return 0, fmt.Errorf("%w: vote table is %dx%d, want %dx%d", ErrClient, votes.Rows(), votes.Cols(), pointCount, e.ClassCount())
	}
	if e.maxWorkers > 0 {
		return e.classifyAndVoteParallel(points, votes)
	}
	return e.classifyAndVoteInline(points, votes)
}

func (e *EnsembleClassifier[F]) classifyAndVoteInline(points []F, votes *VoteTable) (int, error) {
	if err := e.stream.Rewind(); err != nil {
		return 0, err
	}
	voters := 0
	for {
		c, err := e.stream.Next()
		if err != nil {
			return 0, err
		}
		if c == nil {
			return voters, nil
		}
		if _, err := c.ClassifyAndVote(points, votes); err != nil {
			return 0, err
		}
		voters++
	}
}

func (e *EnsembleClassifier[F]) classifyAndVoteParallel(points []F, votes *VoteTable) (int, error) {
	if err := e.stream.Rewind(); err != nil {
		return 0, err
	}

	var failure failureSlot
	jobs := make(chan Classifier[F])
	tables := make([]*VoteTable, e.maxWorkers)
	var wg sync.WaitGroup
	for i := 0; i < e.maxWorkers; i++ {
		table := NewVoteTable(votes.Rows(), votes.Cols())
		tables[i] = table
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Keep draining after a failure so the feeder never blocks.
			failed := false
			for c := range jobs {
				if c == nil {
					return
				}
				if failed {
					continue
				}
				if _, err := c.ClassifyAndVote(points, table); err != nil {
					failure.set(err)
					failed = true
				}
			}
		}()
	}

	voters := 0
	for {
		c, err := e.stream.Next()
		if err != nil {
			failure.set(err)
			break
		}
		if c == nil {
			break
		}
		jobs <- c
		voters++
	}
	// One nil sentinel per worker signals termination.
	for i := 0; i < e.maxWorkers; i++ {
		jobs <- nil
	}
	wg.Wait()
	close(jobs)

	if err := failure.err(); err != nil {
		return 0, err
	}
	for _, table := range tables {
		if err := votes.Add(table); err != nil {
			return 0, err
		}
	}
	return voters, nil
}

// failureSlot keeps the first error a group of workers reports.
type failureSlot struct {
	mu    sync.Mutex
	first error
}

func (s *failureSlot) set(err error) {
	s.mu.Lock()
	if s.first == nil {
		s.first = err
	}
	s.mu.Unlock()
}

func (s *failureSlot) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.first
}
