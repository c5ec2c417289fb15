package search

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"

	"github.com/matzehuels/causalorder/pkg/dag/perm"
	"github.com/matzehuels/causalorder/pkg/errors"
	"github.com/matzehuels/causalorder/pkg/knowledge"
)

// errInadmissible rejects a move whose order violates background knowledge.
// It is not an error condition for the search; the move is simply skipped.
var errInadmissible = stderrors.New("order violates background knowledge")

// State is an order together with the parent set and local score every
// variable gets in it. A State is immutable once built; [State.Apply]
// returns a new one. States never share mutable structure.
type State struct {
	order   *perm.Order
	parents [][]int
	scores  []float64
	total   float64

	opt  *optimizer
	know *knowledge.Knowledge
}

func newState(ctx context.Context, opt *optimizer, know *knowledge.Knowledge, order *perm.Order) *State {
	n := order.Len()
	s := &State{
		order:   order,
		parents: make([][]int, n),
		scores:  make([]float64, n),
		opt:     opt,
		know:    know,
	}
	s.rescore(ctx, 0, n-1)
	return s
}

// rescore recomputes parents for positions lo..hi and the total.
func (s *State) rescore(ctx context.Context, lo, hi int) {
	for p := lo; p <= hi; p++ {
		v := s.order.At(p)
		s.parents[v], s.scores[v] = s.opt.best(ctx, v, s.order.Prefix(p))
	}
	// Summed by variable index so equal states have bit-identical totals.
	s.total = 0
	for _, sc := range s.scores {
		s.total += sc
	}
}

func (s *State) clone() *State {
	return &State{
		order:   s.order.Clone(),
		parents: slices.Clone(s.parents),
		scores:  slices.Clone(s.scores),
		total:   s.total,
		opt:     s.opt,
		know:    s.know,
	}
}

// TotalScore returns the sum of local scores.
func (s *State) TotalScore() float64 { return s.total }

// Parents returns the parents of v, sorted ascending.
func (s *State) Parents(v int) []int { return slices.Clone(s.parents[v]) }

// Position returns the position of v in the order.
func (s *State) Position(v int) int { return s.order.Index(v) }

// Order returns the variables in order.
func (s *State) Order() []int { return s.order.Vars() }

// Len returns the number of variables.
func (s *State) Len() int { return s.order.Len() }

// EdgeCount returns the number of parent-child pairs.
func (s *State) EdgeCount() int {
	n := 0
	for _, pa := range s.parents {
		n += len(pa)
	}
	return n
}

// ParentSets returns a copy of every variable's parents, indexed by variable.
func (s *State) ParentSets() [][]int {
	out := make([][]int, len(s.parents))
	for v, pa := range s.parents {
		out[v] = slices.Clone(pa)
	}
	return out
}

// Apply returns the state reached by m. Only the variables inside the
// span of the move get new parent sets; everything before and after it
// keeps the same predecessors. Apply returns errInadmissible when the new
// order violates background knowledge.
func (s *State) Apply(ctx context.Context, m Move) (*State, error) {
	next := s.clone()
	lo, hi, err := m.apply(next.order)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvariant, err, "apply %s to %s", m, s.order)
	}
	if !s.know.Admissible(next.order) {
		return nil, errInadmissible
	}
	next.rescore(ctx, lo, hi)
	return next, nil
}

// Validate checks the search invariants: the order is a permutation and
// every parent precedes its child. Acyclicity follows from the second.
func (s *State) Validate() error {
	if err := s.order.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvariant, err, "order")
	}
	if len(s.parents) != s.order.Len() {
		return errors.New(errors.ErrCodeInvariant, "%d parent sets for %d variables", len(s.parents), s.order.Len())
	}
	for v, pa := range s.parents {
		if !slices.IsSorted(pa) {
			return errors.New(errors.ErrCodeInvariant, "parents of %d not sorted: %v", v, pa)
		}
		for i, p := range pa {
			if i > 0 && pa[i-1] == p {
				return errors.New(errors.ErrCodeInvariant, "parents of %d repeat %d", v, p)
			}
			if !s.order.Before(p, v) {
				return errors.New(errors.ErrCodeInvariant, "parent %d of %d does not precede it in %s", p, v, s.order)
			}
		}
	}
	return nil
}

func checkPermutation(vars []int, n int) error {
	if len(vars) != n {
		return fmt.Errorf("%w: %d variables, want %d", perm.ErrNotPermutation, len(vars), n)
	}
	_, err := perm.NewOrder(vars)
	return err
}
