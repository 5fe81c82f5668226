package model

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// SMOTE oversamples the minority class of X, y until both classes have the
// same count. Each synthetic row lies on the segment between a minority row
// and one of its k nearest minority neighbours. The inputs are not modified.
func SMOTE(X [][]float64, y []int, k int, seed uint64) ([][]float64, []int) {
	var byClass [2][]int
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}
	minority, majority := 1, 0
	if len(byClass[0]) < len(byClass[1]) {
		minority, majority = 0, 1
	}
	need := len(byClass[majority]) - len(byClass[minority])
	outX := append([][]float64(nil), X...)
	outY := append([]int(nil), y...)
	mins := byClass[minority]
	if need <= 0 || len(mins) < 2 {
		return outX, outY
	}
	k = max(1, min(k, len(mins)-1))

	neighbours := make([][]int, len(mins))
	type cand struct {
		j    int
		dist float64
	}
	for a, i := range mins {
		cs := make([]cand, 0, len(mins)-1)
		for b, j := range mins {
			if a == b {
				continue
			}
			cs = append(cs, cand{b, floats.Distance(X[i], X[j], 2)})
		}
		sort.SliceStable(cs, func(p, q int) bool { return cs[p].dist < cs[q].dist })
		nn := make([]int, k)
		for q := range nn {
			nn[q] = cs[q].j
		}
		neighbours[a] = nn
	}

	rng := newRand(seed)
	for s := 0; s < need; s++ {
		a := rng.IntN(len(mins))
		b := neighbours[a][rng.IntN(k)]
		base, other := X[mins[a]], X[mins[b]]
		diff := make([]float64, len(base))
		floats.SubTo(diff, other, base)
		synth := make([]float64, len(base))
		floats.AddScaledTo(synth, base, rng.Float64(), diff)
		outX = append(outX, synth)
		outY = append(outY, minority)
	}
	return outX, outY
}
