package search

import (
	"io"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/causalorder/pkg/cache"
	"github.com/matzehuels/causalorder/pkg/dag"
	"github.com/matzehuels/causalorder/pkg/dag/perm"
	"github.com/matzehuels/causalorder/pkg/knowledge"
	"github.com/matzehuels/causalorder/pkg/score"
)

const diamondCPDAG = "A --- B\nA --- C\nB --> D\nC --> D\n"

// allOrders lists every permutation of 0..n-1 by inserting each new
// variable at every position of the shorter orders.
func allOrders(n int) [][]int {
	orders := [][]int{{}}
	for v := range n {
		next := make([][]int, 0, len(orders)*(v+1))
		for _, o := range orders {
			for i := 0; i <= len(o); i++ {
				next = append(next, slices.Insert(slices.Clone(o), i, v))
			}
		}
		orders = next
	}
	return orders
}

// letters names n variables A, B, C, ...
func letters(n int) []dag.Variable {
	names := make([]string, n)
	for i := range names {
		names[i] = string(rune('A' + i))
	}
	return dag.NewVariables(names...)
}

func truth(t *testing.T, parents ...[]int) *dag.Graph {
	t.Helper()
	g, err := dag.FromParents(letters(len(parents)), parents)
	if err != nil {
		t.Fatalf("FromParents: %v", err)
	}
	return g
}

func oracleFor(t *testing.T, g *dag.Graph) *score.DSeparation {
	t.Helper()
	o, err := score.NewDSeparation(g)
	if err != nil {
		t.Fatalf("NewDSeparation: %v", err)
	}
	return o
}

func diamond(t *testing.T) *dag.Graph {
	return truth(t, nil, []int{0}, []int{0}, []int{1, 2})
}

func quiet() Option {
	return WithLogger(log.NewWithOptions(io.Discard, log.Options{}))
}

func mustNew(t *testing.T, vars []dag.Variable, opts ...Option) *Search {
	t.Helper()
	s, err := New(vars, append([]Option{quiet()}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// randomDAG draws a DAG over n variables whose index order is topological.
func randomDAG(t *testing.T, seed uint64, n int, density float64) *dag.Graph {
	rng := rand.New(rand.NewPCG(seed, 0))
	parents := make([][]int, n)
	for v := range n {
		for u := range v {
			if rng.Float64() < density {
				parents[v] = append(parents[v], u)
			}
		}
	}
	return truth(t, parents...)
}

func newOptimizer(scorer score.LocalScorer, oracle score.IndependenceOracle, know *knowledge.Knowledge) *optimizer {
	return &optimizer{scorer: scorer, oracle: oracle, know: know, cache: cache.NewLocalCache()}
}

func stateOf(t *testing.T, opt *optimizer, order ...int) *State {
	t.Helper()
	o, err := perm.NewOrder(order)
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}
	return newState(t.Context(), opt, opt.know, o)
}

// populationBIC scores a linear Gaussian model with the exact covariance of
// the SEM given by parents and weights (unit noise), as if estimated from
// samples observations. Conditional independencies hold exactly, so the
// score ranks graphs the way BIC does in the large-sample limit.
func populationBIC(t *testing.T, parents [][]int, weights map[[2]int]float64, samples float64) score.Func {
	t.Helper()
	k := len(parents)
	b := mat.NewDense(k, k, nil)
	for v, pa := range parents {
		for _, p := range pa {
			b.Set(v, p, weights[[2]int{p, v}])
		}
	}
	ones := make([]float64, k)
	for i := range ones {
		ones[i] = 1
	}
	var a, ainv, sigma mat.Dense
	a.Sub(mat.NewDiagDense(k, ones), b)
	if err := ainv.Inverse(&a); err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	sigma.Mul(&ainv, ainv.T())

	return func(v int, set []int) (float64, error) {
		resid := sigma.At(v, v)
		if len(set) > 0 {
			sub := mat.NewDense(len(set), len(set), nil)
			c := mat.NewVecDense(len(set), nil)
			for i, x := range set {
				c.SetVec(i, sigma.At(x, v))
				for j, y := range set {
					sub.Set(i, j, sigma.At(x, y))
				}
			}
			var inv mat.Dense
			if err := inv.Inverse(sub); err != nil {
				return 0, err
			}
			resid -= mat.Inner(c, &inv, c)
		}
		return -samples/2*math.Log(resid) - float64(len(set))*math.Log(samples)/2, nil
	}
}
