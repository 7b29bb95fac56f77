package balsa

import (
	"fmt"
	"math/rand"
)

// FeatureImportance scores every feature by permutation: it shuffles one
// feature column across all points, classifies the perturbed dataset with
// the ensemble and measures how much the accuracy against the true labels
// drops compared to the unperturbed baseline, averaged over repeatCount
// shuffles. Informative features score high; features the forest ignores
// score near zero.
func FeatureImportance[F Feature](e *EnsembleClassifier[F], points []F, labels []Label, repeatCount int, seed int64) ([]float64, error) {
	if repeatCount < 1 {
		return nil, fmt.Errorf("%w: repeat count must be at least 1", ErrClient)
	}
	featureCount := e.FeatureCount()
	pointCount, err := pointCountOf(len(points), featureCount)
	if err != nil {
		return nil, err
	}
	if len(labels) != pointCount {
		return nil, fmt.Errorf("%w: %d labels for %d points", ErrClient, len(labels), pointCount)
	}

	baselineLabels, err := e.Classify(points)
	if err != nil {
		return nil, err
	}
	baseline := accuracy(baselineLabels, labels)

	// Shuffling happens on a scratch copy; the shared dataset is never
	// written.
	scratch := append([]F(nil), points...)
	column := make([]F, pointCount)
	rng := rand.New(rand.NewSource(seed))

	importances := make([]float64, featureCount)
	for f := 0; f < featureCount; f++ {
		drop := 0.0
		for repeat := 0; repeat < repeatCount; repeat++ {
			for p := 0; p < pointCount; p++ {
				column[p] = scratch[p*featureCount+f]
			}
			rng.Shuffle(pointCount, func(i, j int) {
				column[i], column[j] = column[j], column[i]
			})
			for p := 0; p < pointCount; p++ {
				scratch[p*featureCount+f] = column[p]
			}

			permutedLabels, err := e.Classify(scratch)
			if err != nil {
				return nil, err
			}
			drop += baseline - accuracy(permutedLabels, labels)
		}
		importances[f] = drop / float64(repeatCount)

		// Restore the column before scoring the next feature.
		for p := 0; p < pointCount; p++ {
			scratch[p*featureCount+f] = points[p*featureCount+f]
		}
	}
	return importances, nil
}

func accuracy(predicted, truth []Label) float64 {
	correct := 0
	for i, l := range predicted {
		if l == truth[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(truth))
}
