package model

import (
	"math"
	"math/rand/v2"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// TrainTestSplit shuffles row indices with seed and holds out testFrac of
// them (rounded up, at least one row when the dataset has two or more).
// Stratification is not applied.
func TrainTestSplit(d *Dataset, testFrac float64, seed uint64) (train, test *Dataset) {
	n := d.Len()
	perm := newRand(seed).Perm(n)
	nTest := int(math.Ceil(float64(n) * testFrac))
	if nTest == 0 && n > 1 && testFrac > 0 {
		nTest = 1
	}
	if nTest >= n {
		nTest = n - 1
	}
	return d.Subset(perm[nTest:]), d.Subset(perm[:nTest])
}

// Undersample draws, without replacement, as many rows of each class as the
// minority class has, then shuffles the union.
func Undersample(d *Dataset, seed uint64) *Dataset {
	rng := newRand(seed)
	var byClass [2][]int
	for i, y := range d.Labels {
		byClass[y] = append(byClass[y], i)
	}
	n := min(len(byClass[0]), len(byClass[1]))
	idx := make([]int, 0, 2*n)
	for _, rows := range byClass {
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		idx = append(idx, rows[:n]...)
	}
	rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	return d.Subset(idx)
}
