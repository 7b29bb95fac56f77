package balsa

import "testing"

// Sampling without replacement: a full pass over F features with
// flip(wantedLeft, remaining) yields exactly k trues.
func TestCoinDrawsExactlyK(t *testing.T) {
	coin := newWeightedCoin(42)
	const features = 20
	for _, k := range []int{1, 3, 10, 20} {
		for pass := 0; pass < 100; pass++ {
			wanted := k
			trues := 0
			for f := 0; f < features; f++ {
				if coin.flip(wanted, features-f) {
					wanted--
					trues++
				}
			}
			if trues != k {
				t.Fatalf("pass with k=%d drew %d features", k, trues)
			}
		}
	}
}

func TestCoinPositionFrequencyConverges(t *testing.T) {
	coin := newWeightedCoin(7)
	const features = 10
	const k = 3
	const passes = 20000
	hits := make([]int, features)
	for pass := 0; pass < passes; pass++ {
		wanted := k
		for f := 0; f < features; f++ {
			if coin.flip(wanted, features-f) {
				wanted--
				hits[f]++
			}
		}
	}
	want := float64(k) / float64(features)
	for f, h := range hits {
		got := float64(h) / float64(passes)
		if got < want-0.02 || got > want+0.02 {
			t.Errorf("position %d selected with frequency %.4f, want about %.4f", f, got, want)
		}
	}
}

func TestCoinIsDeterministicGivenSeed(t *testing.T) {
	a := newWeightedCoin(99)
	b := newWeightedCoin(99)
	for i := 0; i < 1000; i++ {
		if a.flip(3, 7) != b.flip(3, 7) {
			t.Fatalf("same seed diverged at flip %d", i)
		}
	}
	a.Seed(123)
	b.Seed(123)
	for i := 0; i < 1000; i++ {
		if a.flip(1, 4) != b.flip(1, 4) {
			t.Fatalf("reseeded coins diverged at flip %d", i)
		}
	}
}
