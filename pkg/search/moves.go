package search

import (
	"fmt"
	"slices"

	"github.com/matzehuels/causalorder/pkg/dag/perm"
)

// Move rearranges an order. apply mutates o in place and returns the span
// [lo, hi] of positions whose predecessor sets changed.
type Move interface {
	apply(o *perm.Order) (lo, hi int, err error)
	fmt.Stringer
}

// Swap transposes the variables at positions I and I+1.
type Swap struct {
	I int
}

func (m Swap) apply(o *perm.Order) (int, int, error) {
	if m.I < 0 || m.I+1 >= o.Len() {
		return 0, 0, fmt.Errorf("%w: swap at %d in order of %d", perm.ErrNotPermutation, m.I, o.Len())
	}
	o.Swap(m.I, m.I+1)
	return m.I, m.I + 1, nil
}

func (m Swap) String() string { return fmt.Sprintf("swap(%d,%d)", m.I, m.I+1) }

// Tuck moves Y, together with its ancestors that sit between X and Y, to
// just before X, where X is a parent of Y. Seg is the new content of the
// window starting at Start: the moved ancestors in their current relative
// order, then X, then the rest of the window.
type Tuck struct {
	Start int
	Seg   []int
	Y, X  int

	// Covered reports pa(Y) = pa(X) + {X}. Reversing a covered edge never
	// changes the score.
	Covered bool
	// Singular reports that no moved ancestor other than Y is a child of X.
	Singular bool
}

func (m Tuck) apply(o *perm.Order) (int, int, error) {
	if err := o.Rearrange(m.Start, m.Seg); err != nil {
		return 0, 0, err
	}
	return m.Start, m.Start + len(m.Seg) - 1, nil
}

func (m Tuck) String() string { return fmt.Sprintf("tuck(%d before %d)", m.Y, m.X) }

// adjacent reports whether the tuck is a plain transposition.
func (m Tuck) adjacent() bool { return len(m.Seg) == 2 }

// coveredEdge identifies a covered tuck on a DFS path.
type coveredEdge struct{ x, y int }

// tucks returns the tucks of y over each of its parents, closest parent
// first.
func (s *State) tucks(y int) []Tuck {
	py := s.order.Index(y)
	pa := s.parents[y]
	out := make([]Tuck, 0, len(pa))

	byPos := slices.Clone(pa)
	slices.SortFunc(byPos, func(a, b int) int { return s.order.Index(b) - s.order.Index(a) })
	for _, x := range byPos {
		out = append(out, s.tuck(y, x, py, s.order.Index(x)))
	}
	return out
}

func (s *State) tuck(y, x, py, px int) Tuck {
	n := s.order.Len()
	need := make([]bool, n)
	anc := make([]bool, n)
	mark := func(v int) {
		anc[v] = true
		for _, p := range s.parents[v] {
			need[p] = true
		}
	}
	mark(y)
	for p := py - 1; p > px; p-- {
		if w := s.order.At(p); need[w] {
			mark(w)
		}
	}

	seg := make([]int, 0, py-px+1)
	rest := make([]int, 0, py-px)
	singular := true
	for p := px + 1; p <= py; p++ {
		w := s.order.At(p)
		if !anc[w] {
			rest = append(rest, w)
			continue
		}
		seg = append(seg, w)
		if w != y && contains(s.parents[w], x) {
			singular = false
		}
	}
	seg = append(seg, x)
	seg = append(seg, rest...)

	return Tuck{
		Start:    px,
		Seg:      seg,
		Y:        y,
		X:        x,
		Covered:  slices.Equal(s.parents[y], insert(s.parents[x], x)),
		Singular: singular,
	}
}

// allowed reports whether t may be taken at DFS level.
func (o *Options) allowed(t Tuck, level int) bool {
	if !t.Covered && level > o.UncoveredDepth {
		return false
	}
	if !t.Singular && level > o.NonSingularDepth {
		return false
	}
	return true
}
