package forest

import (
	"math/rand/v2"
	"slices"
)

const leafFeature = -1

// Node is one node of a fitted tree. Leaves have Feature == -1 and carry the
// class distribution of their training samples.
type Node struct {
	Probs     []float64 `json:"p,omitempty"`
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
}

// Tree is a CART classification tree stored as a flat node slice with the
// root at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

type treeParams struct {
	rng             *rand.Rand
	maxFeatures     int
	maxDepth        int
	minSamplesSplit int
	numClasses      int
}

type builder struct {
	x      [][]float64
	y      []int
	tree   *Tree
	params treeParams
}

// fitTree grows a tree on the rows named by samples. samples may repeat rows,
// as bootstrap draws do.
func fitTree(x [][]float64, y []int, samples []int, params treeParams) *Tree {
	b := &builder{x: x, y: y, tree: &Tree{}, params: params}
	b.grow(slices.Clone(samples), 0)
	return b.tree
}

func (b *builder) grow(samples []int, depth int) int {
	idx := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{Feature: leafFeature})

	counts := b.classCounts(samples)
	if b.isPure(counts) ||
		len(samples) < b.params.minSamplesSplit ||
		(b.params.maxDepth > 0 && depth >= b.params.maxDepth) {
		b.tree.Nodes[idx].Probs = normalize(counts)
		return idx
	}

	feature, threshold, ok := b.bestSplit(samples, counts)
	if !ok {
		b.tree.Nodes[idx].Probs = normalize(counts)
		return idx
	}

	var left, right []int
	for _, s := range samples {
		if b.x[s][feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)

	b.tree.Nodes[idx] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return idx
}

// bestSplit searches a random subset of features for the threshold with the
// lowest weighted gini impurity. Like CART implementations that sample
// features per split, it keeps drawing past maxFeatures until a feature with
// at least two distinct values has been seen.
func (b *builder) bestSplit(samples []int, parent []float64) (int, float64, bool) {
	numFeatures := len(b.x[samples[0]])
	order := b.params.rng.Perm(numFeatures)

	bestFeature, bestThreshold := -1, 0.0
	bestScore := gini(parent, float64(len(samples)))
	found := false
	visited := 0

	sorted := slices.Clone(samples)
	for _, f := range order {
		if visited >= b.params.maxFeatures && found {
			break
		}

		slices.SortFunc(sorted, func(a, c int) int {
			switch va, vc := b.x[a][f], b.x[c][f]; {
			case va < vc:
				return -1
			case va > vc:
				return 1
			default:
				return 0
			}
		})
		if b.x[sorted[0]][f] == b.x[sorted[len(sorted)-1]][f] {
			continue
		}
		visited++

		left := make([]float64, b.params.numClasses)
		right := slices.Clone(parent)
		n := float64(len(sorted))

		for i := 0; i < len(sorted)-1; i++ {
			cls := b.y[sorted[i]]
			left[cls]++
			right[cls]--

			cur, next := b.x[sorted[i]][f], b.x[sorted[i+1]][f]
			if cur == next {
				continue
			}

			nl := float64(i + 1)
			nr := n - nl
			score := (nl*gini(left, nl) + nr*gini(right, nr)) / n
			if !found || score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				if bestThreshold >= next {
					bestThreshold = cur
				}
				found = true
			}
		}
	}

	return bestFeature, bestThreshold, found
}

func (b *builder) classCounts(samples []int) []float64 {
	counts := make([]float64, b.params.numClasses)
	for _, s := range samples {
		counts[b.y[s]]++
	}
	return counts
}

func (b *builder) isPure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// gini returns the gini impurity of a class histogram holding n samples.
func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	sum := 1.0
	for _, c := range counts {
		p := c / n
		sum -= p * p
	}
	return sum
}

func normalize(counts []float64) []float64 {
	var total float64
	for _, c := range counts {
		total += c
	}
	out := make([]float64, len(counts))
	if total == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / total
	}
	return out
}

// Probs walks the tree for v and returns the class distribution of its leaf.
func (t *Tree) Probs(v []float64) []float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature == leafFeature {
			return n.Probs
		}
		if v[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Feature == leafFeature {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}
