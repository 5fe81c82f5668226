package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ForestConfig holds the random forest hyperparameters.
type ForestConfig struct {
	NTrees          int
	MaxDepth        int
	MinSamplesLeaf  int
	MinSamplesSplit int
	// MaxFeatures is the number of candidate features per split; 0 means
	// floor(sqrt(p)).
	MaxFeatures int
	Seed        uint64
	Workers     int
}

// DefaultForestConfig mirrors the production hyperparameters.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NTrees:          200,
		MaxDepth:        20,
		MinSamplesLeaf:  2,
		MinSamplesSplit: 5,
		Seed:            142,
	}
}

// Node is one decision tree node. Leaves have Left == -1.
type Node struct {
	Feature   int        `json:"f"`
	Threshold float64    `json:"t"`
	Left      int        `json:"l"`
	Right     int        `json:"r"`
	Value     [2]float64 `json:"v"`
}

// Tree is a binary CART classification tree stored as a flat node slice.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest is a bagged ensemble of trees with probability averaging.
type Forest struct {
	NFeatures   int       `json:"n_features"`
	Trees       []Tree    `json:"trees"`
	Importances []float64 `json:"importances"`
}

// PredictProba returns [P(negative), P(positive)] for x.
func (t *Tree) PredictProba(x []float64) [2]float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// PredictProba averages tree probabilities.
func (f *Forest) PredictProba(x []float64) ([2]float64, error) {
	if len(x) != f.NFeatures {
		return [2]float64{}, fmt.Errorf("forest expects %d features, got %d", f.NFeatures, len(x))
	}
	if len(f.Trees) == 0 {
		return [2]float64{}, errors.New("forest has no trees")
	}
	var p [2]float64
	for i := range f.Trees {
		tp := f.Trees[i].PredictProba(x)
		p[0] += tp[0]
		p[1] += tp[1]
	}
	n := float64(len(f.Trees))
	return [2]float64{p[0] / n, p[1] / n}, nil
}

// Predict returns the majority class for x.
func (f *Forest) Predict(x []float64) (int, error) {
	p, err := f.PredictProba(x)
	if err != nil {
		return 0, err
	}
	if p[1] > p[0] {
		return 1, nil
	}
	return 0, nil
}

// FitForest trains a random forest on X, y. Trees are built concurrently,
// each with its own seed derived from cfg.Seed, so results do not depend on
// scheduling.
func FitForest(ctx context.Context, X [][]float64, y []int, cfg ForestConfig) (*Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("fit forest: %d rows, %d labels", len(X), len(y))
	}
	if cfg.NTrees <= 0 {
		return nil, errors.New("fit forest: NTrees must be positive")
	}
	p := len(X[0])
	mtry := cfg.MaxFeatures
	if mtry <= 0 {
		mtry = int(math.Sqrt(float64(p)))
	}
	mtry = max(1, min(mtry, p))
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	f := &Forest{NFeatures: p, Trees: make([]Tree, cfg.NTrees)}
	imps := make([][]float64, cfg.NTrees)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for t := 0; t < cfg.NTrees; t++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b := &builder{
				X:    X,
				y:    y,
				cfg:  cfg,
				mtry: mtry,
				rng:  newRand(cfg.Seed + uint64(t)),
				imp:  make([]float64, p),
			}
			sample := make([]int, len(X))
			for i := range sample {
				sample[i] = b.rng.IntN(len(X))
			}
			b.grow(sample, 0)
			f.Trees[t] = Tree{Nodes: b.nodes}
			imps[t] = normalize(b.imp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.Importances = make([]float64, p)
	for _, imp := range imps {
		for j, v := range imp {
			f.Importances[j] += v
		}
	}
	f.Importances = normalize(f.Importances)
	return f, nil
}

type builder struct {
	X     [][]float64
	y     []int
	cfg   ForestConfig
	mtry  int
	rng   *rand.Rand
	nodes []Node
	imp   []float64
}

func (b *builder) counts(idx []int) [2]float64 {
	var c [2]float64
	for _, i := range idx {
		c[b.y[i]]++
	}
	return c
}

func gini(c [2]float64) float64 {
	n := c[0] + c[1]
	if n == 0 {
		return 0
	}
	p0, p1 := c[0]/n, c[1]/n
	return 1 - p0*p0 - p1*p1
}

// grow appends the subtree for idx and returns its root index.
func (b *builder) grow(idx []int, depth int) int {
	c := b.counts(idx)
	n := float64(len(idx))
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1, Value: [2]float64{c[0] / n, c[1] / n}})

	impurity := gini(c)
	if impurity == 0 ||
		len(idx) < b.cfg.MinSamplesSplit ||
		len(idx) < 2*b.cfg.MinSamplesLeaf ||
		(b.cfg.MaxDepth > 0 && depth >= b.cfg.MaxDepth) {
		return id
	}

	feat, thr, gain, ok := b.bestSplit(idx, c, impurity)
	if !ok {
		return id
	}
	b.imp[feat] += gain

	var left, right []int
	for _, i := range idx {
		if b.X[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id].Feature = feat
	b.nodes[id].Threshold = thr
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}

// bestSplit searches mtry random features for the split with the largest
// weighted impurity decrease. gain is n*impurity minus the children's.
func (b *builder) bestSplit(idx []int, total [2]float64, impurity float64) (feat int, thr, gain float64, ok bool) {
	p := len(b.X[0])
	candidates := b.rng.Perm(p)[:b.mtry]
	n := float64(len(idx))
	minLeaf := max(1, b.cfg.MinSamplesLeaf)

	sorted := make([]int, len(idx))
	best := 0.0
	for _, f := range candidates {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		var left [2]float64
		for k := 0; k < len(sorted)-1; k++ {
			left[b.y[sorted[k]]]++
			nl := k + 1
			nr := len(sorted) - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			xa, xb := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if xa == xb {
				continue
			}
			right := [2]float64{total[0] - left[0], total[1] - left[1]}
			g := n*impurity - float64(nl)*gini(left) - float64(nr)*gini(right)
			if g > best {
				best, feat, thr, ok = g, f, xa+(xb-xa)/2, true
			}
		}
	}
	return feat, thr, best, ok
}

func normalize(xs []float64) []float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	out := make([]float64, len(xs))
	if sum == 0 {
		return out
	}
	for i, x := range xs {
		out[i] = x / sum
	}
	return out
}
