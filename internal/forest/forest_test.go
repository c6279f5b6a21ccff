package forest

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bands builds a two-feature dataset where the class is decided by which
// third of [0, 3) the first feature falls in; the second feature is noise.
func bands(n int, seed uint64) ([][]float64, []int) {
	rng := rand.New(rand.NewPCG(seed, 0))
	x := make([][]float64, n)
	y := make([]int, n)
	for i := range x {
		v := rng.Float64() * 3
		x[i] = []float64{v, rng.Float64()}
		y[i] = int(v)
	}
	return x, y
}

func TestFitScaler(t *testing.T) {
	x := [][]float64{{1, 5}, {3, 5}, {5, 5}}
	s, err := FitScaler(x)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{3, 5}, s.Mean, 1e-12)
	assert.InDelta(t, 1.632993161855452, s.Scale[0], 1e-12)
	assert.InDelta(t, 1, s.Scale[1], 0, "constant column keeps unit scale")

	out, err := s.Transform([]float64{3, 7})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 2}, out, 1e-12)

	_, err = s.Transform([]float64{1, 2, 3})
	assert.ErrorIs(t, err, common.ErrFeatureMismatch)

	_, err = FitScaler(nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestFit_LearnsSeparableBands(t *testing.T) {
	x, y := bands(300, 1)
	f, err := Fit(context.Background(), x, y, 3, Config{NumTrees: 25, Seed: 7})
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	cases := map[int][]float64{0: {0.4, 0.5}, 1: {1.5, 0.1}, 2: {2.6, 0.9}}
	for want, v := range cases {
		cls, conf, err := f.Predict(v)
		require.NoError(t, err)
		assert.Equal(t, want, cls)
		assert.Greater(t, conf, 0.5)
	}
}

func TestFit_Deterministic(t *testing.T) {
	x, y := bands(200, 3)
	cfg := Config{NumTrees: 10, Seed: 42, Workers: 4}

	a, err := Fit(context.Background(), x, y, 3, cfg)
	require.NoError(t, err)
	b, err := Fit(context.Background(), x, y, 3, cfg)
	require.NoError(t, err)

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	assert.JSONEq(t, string(ja), string(jb))
}

func TestFit_ProbabilitiesSumToOne(t *testing.T) {
	x, y := bands(150, 5)
	f, err := Fit(context.Background(), x, y, 3, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, f.Trees, 100)

	probs, err := f.PredictProba([]float64{1.0, 0.5})
	require.NoError(t, err)

	var sum float64
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1, sum, 1e-9)

	_, err = f.PredictProba([]float64{1})
	assert.ErrorIs(t, err, common.ErrFeatureMismatch)
}

func TestFit_RoundTripJSON(t *testing.T) {
	x, y := bands(120, 9)
	f, err := Fit(context.Background(), x, y, 3, Config{NumTrees: 5, Seed: 1})
	require.NoError(t, err)

	raw, err := json.Marshal(f)
	require.NoError(t, err)

	var loaded Forest
	require.NoError(t, json.Unmarshal(raw, &loaded))
	require.NoError(t, loaded.Validate())

	for _, row := range x[:20] {
		want, _ := f.PredictProba(row)
		got, err := loaded.PredictProba(row)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestFit_InvalidInput(t *testing.T) {
	_, err := Fit(context.Background(), nil, nil, 3, DefaultConfig())
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = Fit(context.Background(), [][]float64{{1}, {2}}, []int{0}, 3, DefaultConfig())
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = Fit(context.Background(), [][]float64{{1}, {2, 3}}, []int{0, 1}, 3, DefaultConfig())
	assert.ErrorIs(t, err, common.ErrFeatureMismatch)

	_, err = Fit(context.Background(), [][]float64{{1}}, []int{5}, 3, DefaultConfig())
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestFit_ConstantFeaturesYieldLeaf(t *testing.T) {
	x := [][]float64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	y := []int{0, 1, 0, 1}

	f, err := Fit(context.Background(), x, y, 2, Config{NumTrees: 3, Seed: 2})
	require.NoError(t, err)
	for _, tree := range f.Trees {
		assert.Equal(t, 0, tree.Depth())
	}
}

func TestForest_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Forest{}).Validate(), common.ErrNotTrained)

	bad := &Forest{NumFeatures: 2, NumClasses: 2, Trees: []*Tree{{Nodes: []Node{
		{Feature: 0, Threshold: 1, Left: 5, Right: 6},
	}}}}
	assert.ErrorIs(t, bad.Validate(), common.ErrInvalidArgument)
}

func TestTrainTestSplit(t *testing.T) {
	train, test := TrainTestSplit(100, 0.2, 42)
	assert.Len(t, train, 80)
	assert.Len(t, test, 20)

	seen := make(map[int]bool)
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i], "index %d repeated", i)
		seen[i] = true
	}
	assert.Len(t, seen, 100)

	train2, test2 := TrainTestSplit(100, 0.2, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	_, test3 := TrainTestSplit(101, 0.2, 42)
	assert.Len(t, test3, 21)
}

func TestNewReport(t *testing.T) {
	truth := []int{0, 0, 1, 1, 2, 2}
	pred := []int{0, 1, 1, 1, 2, 0}

	r := NewReport(truth, pred, []string{"Low", "Medium", "High"})
	assert.InDelta(t, 4.0/6, r.Accuracy, 1e-12)
	assert.Equal(t, 6, r.Support)

	low := r.Classes[0]
	assert.InDelta(t, 0.5, low.Precision, 1e-12)
	assert.InDelta(t, 0.5, low.Recall, 1e-12)
	assert.Equal(t, 2, low.Support)

	medium := r.Classes[1]
	assert.InDelta(t, 2.0/3, medium.Precision, 1e-12)
	assert.InDelta(t, 1.0, medium.Recall, 1e-12)
	assert.InDelta(t, 0.8, medium.F1, 1e-12)

	out := r.String()
	assert.Contains(t, out, "precision")
	assert.Contains(t, out, "Medium")
	assert.Contains(t, out, "weighted avg")
}
