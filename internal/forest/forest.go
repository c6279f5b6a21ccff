package forest

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// Config controls forest training.
type Config struct {
	NumTrees int
	// MaxFeatures is the number of features considered per split. Zero uses
	// the square root of the feature count.
	MaxFeatures     int
	MaxDepth        int
	MinSamplesSplit int
	Seed            uint64
	Workers         int
}

// DefaultConfig returns 100 unbounded trees seeded with 42.
func DefaultConfig() Config {
	return Config{
		NumTrees:        100,
		MinSamplesSplit: 2,
		Seed:            42,
	}
}

// Forest is a bagged ensemble of classification trees.
type Forest struct {
	Trees       []*Tree `json:"trees"`
	NumFeatures int     `json:"num_features"`
	NumClasses  int     `json:"num_classes"`
}

// Fit trains a forest on x and class indices y in [0, numClasses). Trees are
// grown concurrently but each draws from its own seeded source, so the
// result depends only on the inputs and cfg.Seed.
func Fit(ctx context.Context, x [][]float64, y []int, numClasses int, cfg Config) (*Forest, error) {
	if len(x) == 0 {
		return nil, ErrEmptyDataset
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d rows but %d labels", common.ErrInvalidArgument, len(x), len(y))
	}
	if cfg.NumTrees <= 0 {
		return nil, fmt.Errorf("%w: tree count must be positive", common.ErrInvalidArgument)
	}

	width := len(x[0])
	for i, row := range x {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", common.ErrFeatureMismatch, i, len(row), width)
		}
		if y[i] < 0 || y[i] >= numClasses {
			return nil, fmt.Errorf("%w: label %d at row %d out of range", common.ErrInvalidArgument, y[i], i)
		}
	}

	maxFeatures := cfg.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(width))))
	}
	minSplit := max(2, cfg.MinSamplesSplit)
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	f := &Forest{
		Trees:       make([]*Tree, cfg.NumTrees),
		NumFeatures: width,
		NumClasses:  numClasses,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for t := 0; t < cfg.NumTrees; t++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(t)))

			samples := make([]int, len(x))
			for i := range samples {
				samples[i] = rng.IntN(len(x))
			}

			f.Trees[t] = fitTree(x, y, samples, treeParams{
				rng:             rng,
				maxFeatures:     maxFeatures,
				maxDepth:        cfg.MaxDepth,
				minSamplesSplit: minSplit,
				numClasses:      numClasses,
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

// PredictProba averages the leaf distributions of every tree.
func (f *Forest) PredictProba(v []float64) ([]float64, error) {
	if len(v) != f.NumFeatures {
		return nil, fmt.Errorf("%w: got %d features, forest expects %d", common.ErrFeatureMismatch, len(v), f.NumFeatures)
	}
	if len(f.Trees) == 0 {
		return nil, common.ErrNotTrained
	}

	probs := make([]float64, f.NumClasses)
	for _, tree := range f.Trees {
		floats.Add(probs, tree.Probs(v))
	}
	floats.Scale(1/float64(len(f.Trees)), probs)
	return probs, nil
}

// Predict returns the most probable class and its probability.
func (f *Forest) Predict(v []float64) (int, float64, error) {
	probs, err := f.PredictProba(v)
	if err != nil {
		return 0, 0, err
	}
	best := floats.MaxIdx(probs)
	return best, probs[best], nil
}

// PredictAll classifies every row of x.
func (f *Forest) PredictAll(x [][]float64) ([]int, error) {
	out := make([]int, len(x))
	for i, row := range x {
		cls, _, err := f.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = cls
	}
	return out, nil
}

// Validate checks a decoded forest for structural consistency.
func (f *Forest) Validate() error {
	if len(f.Trees) == 0 || f.NumFeatures <= 0 || f.NumClasses <= 0 {
		return fmt.Errorf("%w: forest has no trees", common.ErrNotTrained)
	}
	for ti, tree := range f.Trees {
		if tree == nil || len(tree.Nodes) == 0 {
			return fmt.Errorf("%w: tree %d is empty", common.ErrInvalidArgument, ti)
		}
		for ni, n := range tree.Nodes {
			if n.Feature == leafFeature {
				if len(n.Probs) != f.NumClasses {
					return fmt.Errorf("%w: tree %d leaf %d has %d classes", common.ErrInvalidArgument, ti, ni, len(n.Probs))
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= f.NumFeatures ||
				n.Left <= ni || n.Right <= ni ||
				n.Left >= len(tree.Nodes) || n.Right >= len(tree.Nodes) {
				return fmt.Errorf("%w: tree %d node %d is malformed", common.ErrInvalidArgument, ti, ni)
			}
		}
	}
	return nil
}

// TrainTestSplit shuffles row indices 0..n-1 with a seeded source and holds
// out ceil(n*testFraction) of them for evaluation.
func TrainTestSplit(n int, testFraction float64, seed uint64) (train, test []int) {
	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest >= n {
		nTest = n - 1
	}
	nTest = max(0, nTest)
	return perm[nTest:], perm[:nTest]
}

// Rows selects rows of x and y by index.
func Rows(x [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = y[j]
	}
	return xs, ys
}
