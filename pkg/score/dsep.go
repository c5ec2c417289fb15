package score

import (
	"github.com/matzehuels/causalorder/pkg/dag"
	"github.com/matzehuels/causalorder/pkg/errors"
)

// DSeparation answers independence queries from a known DAG. Queries are
// posed over observed variables and mapped onto the graph, so the graph may
// contain latent variables that the search never sees.
type DSeparation struct {
	g        *dag.Graph
	observed []int // observed index -> graph index
}

// NewDSeparation creates an oracle over every observed variable of g, in
// index order. The graph must be acyclic.
func NewDSeparation(g *dag.Graph) (*DSeparation, error) {
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "d-separation graph")
	}
	var observed []int
	for i := range g.Len() {
		if !g.Variable(i).IsLatent() {
			observed = append(observed, i)
		}
	}
	return &DSeparation{g: g, observed: observed}, nil
}

// Variables returns the observed variables the oracle is indexed by.
func (d *DSeparation) Variables() []dag.Variable {
	vars := make([]dag.Variable, len(d.observed))
	for i, gi := range d.observed {
		vars[i] = d.g.Variable(gi)
	}
	return vars
}

// Independent reports whether x and y are d-separated given z. The p-value
// is 1 for independence and 0 otherwise.
func (d *DSeparation) Independent(x, y int, z []int) (bool, float64, error) {
	n := len(d.observed)
	if x < 0 || x >= n || y < 0 || y >= n {
		return false, 0, errors.New(errors.ErrCodeInvalidInput, "variable out of range: %d, %d", x, y)
	}
	cond := make([]int, len(z))
	for i, v := range z {
		if v < 0 || v >= n {
			return false, 0, errors.New(errors.ErrCodeInvalidInput, "conditioning variable out of range: %d", v)
		}
		cond[i] = d.observed[v]
	}
	if d.g.DSeparated(d.observed[x], d.observed[y], cond) {
		return true, 1, nil
	}
	return false, 0, nil
}
