// Package knowledge holds caller-supplied background knowledge: directed
// edges that must or must not appear, and tiers that impose a partial
// temporal order on the variables.
//
// A nil *Knowledge is valid and means "no constraints"; every query method
// accepts a nil receiver.
//
// Tiers: a variable in tier t may not have a parent in a tier greater than t.
// With [Knowledge.ForbidWithinTier], edges between two variables of the same
// tier are forbidden as well. Untiered variables are unconstrained.
package knowledge

import (
	"cmp"
	"maps"
	"slices"

	"github.com/matzehuels/causalorder/pkg/dag/perm"
	"github.com/matzehuels/causalorder/pkg/errors"
)

// Edge is a directed edge From→To between variable indices.
type Edge struct {
	From int
	To   int
}

func compareEdges(a, b Edge) int {
	if c := cmp.Compare(a.From, b.From); c != 0 {
		return c
	}
	return cmp.Compare(a.To, b.To)
}

// Knowledge is a set of edge and tier constraints. It is mutable while being
// built and must be treated as read-only once handed to a search.
type Knowledge struct {
	forbidden  map[Edge]bool
	required   map[Edge]bool
	tiers      map[int]int
	withinTier map[int]bool
}

// New returns empty knowledge.
func New() *Knowledge {
	return &Knowledge{
		forbidden:  make(map[Edge]bool),
		required:   make(map[Edge]bool),
		tiers:      make(map[int]int),
		withinTier: make(map[int]bool),
	}
}

// Forbid forbids the edge from→to.
func (k *Knowledge) Forbid(from, to int) { k.forbidden[Edge{from, to}] = true }

// Require requires the edge from→to.
func (k *Knowledge) Require(from, to int) { k.required[Edge{from, to}] = true }

// SetTier places vars in tier. Lower tiers precede higher ones.
func (k *Knowledge) SetTier(tier int, vars ...int) {
	for _, v := range vars {
		k.tiers[v] = tier
	}
}

// ForbidWithinTier forbids every edge between two variables of tier.
func (k *Knowledge) ForbidWithinTier(tier int) { k.withinTier[tier] = true }

// Empty reports whether k imposes no constraints.
func (k *Knowledge) Empty() bool {
	return k == nil || len(k.forbidden)+len(k.required)+len(k.tiers) == 0
}

// Tier returns the tier of v, if it has one.
func (k *Knowledge) Tier(v int) (int, bool) {
	if k == nil {
		return 0, false
	}
	t, ok := k.tiers[v]
	return t, ok
}

// IsRequired reports whether from→to is required.
func (k *Knowledge) IsRequired(from, to int) bool {
	return k != nil && k.required[Edge{from, to}]
}

// IsExplicitlyForbidden reports whether from→to was forbidden with Forbid,
// ignoring tiers.
func (k *Knowledge) IsExplicitlyForbidden(from, to int) bool {
	return k != nil && k.forbidden[Edge{from, to}]
}

// IsForbidden reports whether from→to is forbidden, either explicitly or by
// tiers.
func (k *Knowledge) IsForbidden(from, to int) bool {
	if k == nil {
		return false
	}
	if k.forbidden[Edge{from, to}] {
		return true
	}
	tf, okf := k.tiers[from]
	tt, okt := k.tiers[to]
	if !okf || !okt {
		return false
	}
	return tf > tt || (tf == tt && k.withinTier[tf])
}

// Required returns the required edges sorted by (From, To).
func (k *Knowledge) Required() []Edge {
	if k == nil {
		return nil
	}
	return slices.SortedFunc(maps.Keys(k.required), compareEdges)
}

// Forbidden returns the explicitly forbidden edges sorted by (From, To).
func (k *Knowledge) Forbidden() []Edge {
	if k == nil {
		return nil
	}
	return slices.SortedFunc(maps.Keys(k.forbidden), compareEdges)
}

// Validate checks k against a problem with n variables. It rejects indices
// out of range, a required edge that is also forbidden (explicitly or by
// tiers), and required edges that no ordering can realize because they form
// a cycle together with the tier order.
func (k *Knowledge) Validate(n int) error {
	if k == nil {
		return nil
	}
	inRange := func(v int) bool { return v >= 0 && v < n }

	for _, e := range k.Forbidden() {
		if !inRange(e.From) || !inRange(e.To) || e.From == e.To {
			return errors.New(errors.ErrCodeInvalidConfig, "forbidden edge %d->%d is not between two distinct variables", e.From, e.To)
		}
	}
	for _, v := range slices.Sorted(maps.Keys(k.tiers)) {
		if !inRange(v) {
			return errors.New(errors.ErrCodeInvalidConfig, "tier assigned to unknown variable %d", v)
		}
	}
	for _, e := range k.Required() {
		if !inRange(e.From) || !inRange(e.To) || e.From == e.To {
			return errors.New(errors.ErrCodeInvalidConfig, "required edge %d->%d is not between two distinct variables", e.From, e.To)
		}
		if k.IsForbidden(e.From, e.To) {
			return errors.New(errors.ErrCodeKnowledgeConflict, "edge %d->%d is both required and forbidden", e.From, e.To)
		}
		if k.IsRequired(e.To, e.From) {
			return errors.New(errors.ErrCodeKnowledgeConflict, "edges %d->%d and %d->%d are both required", e.From, e.To, e.To, e.From)
		}
	}

	if _, ok := k.arrange(perm.Identity(n)); !ok {
		return errors.New(errors.ErrCodeKnowledgeConflict, "required edges cannot be realized by any ordering: they form a cycle with each other or with the tiers")
	}
	return nil
}

// precedes reports whether u must come before v in every admissible order.
func (k *Knowledge) precedes(u, v int) bool {
	if k.required[Edge{u, v}] {
		return true
	}
	tu, oku := k.tiers[u]
	tv, okv := k.tiers[v]
	return oku && okv && tu < tv
}

// Admissible reports whether o places the tail of every required edge before
// its head and never places a variable before one of a lower tier.
func (k *Knowledge) Admissible(o *perm.Order) bool {
	if k.Empty() {
		return true
	}
	for e := range k.required {
		if !o.Before(e.From, e.To) {
			return false
		}
	}
	maxTier, seen := 0, false
	for i := range o.Len() {
		t, ok := k.tiers[o.At(i)]
		if !ok {
			continue
		}
		if seen && t < maxTier {
			return false
		}
		maxTier, seen = max(maxTier, t), true
	}
	return true
}

// Arrange returns the admissible order closest to o: a topological sort of
// the precedence constraints that always picks the ready variable appearing
// earliest in o. An order that is already admissible is returned unchanged.
// Arrange assumes Validate succeeded; if the constraints are cyclic it
// returns o as is.
func (k *Knowledge) Arrange(o *perm.Order) *perm.Order {
	if k.Empty() || k.Admissible(o) {
		return o
	}
	out, ok := k.arrange(o)
	if !ok {
		return o
	}
	return out
}

// arrange is Kahn's algorithm over the precedence relation, prioritized by
// position in o. ok is false if the relation is cyclic.
func (k *Knowledge) arrange(o *perm.Order) (*perm.Order, bool) {
	n := o.Len()
	inDegree := make([]int, n)
	succ := make([][]int, n)
	for u := range n {
		for v := range n {
			if u != v && k.precedes(u, v) {
				succ[u] = append(succ[u], v)
				inDegree[v]++
			}
		}
	}

	placed := make([]bool, n)
	result := make([]int, 0, n)
	for len(result) < n {
		next := -1
		for i := range n {
			v := o.At(i)
			if !placed[v] && inDegree[v] == 0 {
				next = v
				break
			}
		}
		if next < 0 {
			return nil, false
		}
		placed[next] = true
		result = append(result, next)
		for _, w := range succ[next] {
			inDegree[w]--
		}
	}

	arranged, err := perm.NewOrder(result)
	if err != nil {
		return nil, false
	}
	return arranged, true
}
