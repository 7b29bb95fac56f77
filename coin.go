package balsa

import "math/rand"

// weightedCoin drives the random feature subsampling during training.
// Given the same seed it produces the same sequence of flips.
type weightedCoin struct {
	rng *rand.Rand
}

func newWeightedCoin(seed int64) weightedCoin {
	return weightedCoin{rng: rand.New(rand.NewSource(seed))}
}

// Seed reinitializes the state of the underlying random engine.
func (c *weightedCoin) Seed(seed int64) {
	c.rng = rand.New(rand.NewSource(seed))
}

// flip returns true with probability wanted/remaining. Iterating over all
// features and flipping with (wantedLeft, remainingFeatures) realizes
// sampling without replacement: exactly the wanted number of features come
// out true.
func (c *weightedCoin) flip(wanted, remaining int) bool {
	if wanted <= 0 {
		return false
	}
	if wanted >= remaining {
		return true
	}
	return c.rng.Int63n(int64(remaining)) < int64(wanted)
}
