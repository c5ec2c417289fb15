package transform

import (
	"strings"

	"github.com/matzehuels/causalorder/pkg/dag"
	"github.com/matzehuels/causalorder/pkg/errors"
	"github.com/matzehuels/causalorder/pkg/knowledge"
)

// EquivalenceClass returns the completed partially directed graph (CPDAG)
// of the DAG g, refined by background knowledge.
//
// # Algorithm
//
//  1. Every edge of g becomes undirected, except forbidden edges, which are
//     dropped.
//  2. Unshielded colliders a→v←b (a, b nonadjacent) are oriented.
//  3. Edges are oriented as knowledge demands: required edges as given,
//     edges whose reverse is forbidden the other way.
//  4. Meek's rules R1-R4 propagate orientations to a fixed point. They never
//     create a new collider or a directed cycle.
//
// Edges left unoriented are reversible within the class.
//
// # Conflicts
//
// The graph is always returned. When knowledge cannot be honored, a
// KNOWLEDGE_CONFLICT error lists every violation: a forbidden edge present
// in g, a required edge g lacks, a required edge against an orientation the
// class compels, or knowledge orientations that close a directed cycle.
//
// g must be a DAG: EquivalenceClass returns an INVALID_INPUT error for a
// graph with undirected edges or a directed cycle. g is not modified.
func EquivalenceClass(g *dag.Graph, know *knowledge.Knowledge) (*dag.Graph, error) {
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "equivalence class")
	}
	n := g.Len()
	name := func(v int) string { return g.Variable(v).Name }

	var conflicts []string
	out := dag.NewGraph(g.Variables())
	parents := make([][]int, n)
	for _, e := range g.Edges() {
		if !e.Directed {
			return nil, errors.New(errors.ErrCodeInvalidInput, "equivalence class: edge %s --- %s is undirected", name(e.From), name(e.To))
		}
		if know.IsForbidden(e.From, e.To) {
			conflicts = append(conflicts, "forbidden edge "+name(e.From)+" --> "+name(e.To)+" omitted")
			continue
		}
		_ = out.AddUndirected(e.From, e.To)
		parents[e.To] = append(parents[e.To], e.From)
	}

	orientColliders(out, parents)

	for _, e := range know.Required() {
		switch {
		case !out.Adjacent(e.From, e.To):
			conflicts = append(conflicts, "required edge "+name(e.From)+" --> "+name(e.To)+" missing")
		case out.IsDirected(e.To, e.From):
			conflicts = append(conflicts, "required edge "+name(e.From)+" --> "+name(e.To)+" contradicts a collider")
		default:
			_ = out.Orient(e.From, e.To)
		}
	}
	for a := range n {
		for b := range n {
			if out.IsUndirected(a, b) && know.IsForbidden(b, a) && !know.IsForbidden(a, b) {
				_ = out.Orient(a, b)
			}
		}
	}

	ApplyMeekRules(out)

	if err := out.Validate(); err != nil {
		conflicts = append(conflicts, "knowledge orientations form a directed cycle")
	}
	if len(conflicts) > 0 {
		return out, errors.New(errors.ErrCodeKnowledgeConflict, "%s", strings.Join(conflicts, "; "))
	}
	return out, nil
}

// orientColliders orients a→v←b for every pair of parents of v that are
// not adjacent in g.
func orientColliders(g *dag.Graph, parents [][]int) {
	for v, pa := range parents {
		for i, a := range pa {
			for _, b := range pa[i+1:] {
				if !g.Adjacent(a, b) {
					_ = g.Orient(a, v)
					_ = g.Orient(b, v)
				}
			}
		}
	}
}

// ApplyMeekRules orients undirected edges of g by Meek's rules until no rule
// applies. Edges are visited in index order, so the result is deterministic.
//
//   - R1: c→a---b, c and b nonadjacent: a→b.
//   - R2: a→c→b and a---b: a→b.
//   - R3: a---c→b, a---d→b, a---b, c and d nonadjacent: a→b.
//   - R4: a---k→l→b, a adjacent to l, a---b, k and b nonadjacent: a→b.
func ApplyMeekRules(g *dag.Graph) {
	n := g.Len()
	for changed := true; changed; {
		changed = false
		for a := range n {
			for b := range n {
				if a == b || !g.IsUndirected(a, b) {
					continue
				}
				if meekR1(g, a, b) || meekR2(g, a, b) || meekR3(g, a, b) || meekR4(g, a, b) {
					_ = g.Orient(a, b)
					changed = true
				}
			}
		}
	}
}

func meekR1(g *dag.Graph, a, b int) bool {
	for _, c := range g.Parents(a) {
		if c != b && !g.Adjacent(c, b) {
			return true
		}
	}
	return false
}

func meekR2(g *dag.Graph, a, b int) bool {
	for _, c := range g.Children(a) {
		if g.IsDirected(c, b) {
			return true
		}
	}
	return false
}

func meekR3(g *dag.Graph, a, b int) bool {
	var into []int
	for _, c := range g.Neighbors(a) {
		if c != b && g.IsDirected(c, b) {
			into = append(into, c)
		}
	}
	for i, c := range into {
		for _, d := range into[i+1:] {
			if !g.Adjacent(c, d) {
				return true
			}
		}
	}
	return false
}

func meekR4(g *dag.Graph, a, b int) bool {
	for _, l := range g.Parents(b) {
		if l == a || !g.Adjacent(a, l) {
			continue
		}
		for _, k := range g.Parents(l) {
			if k != a && k != b && g.IsUndirected(a, k) && !g.Adjacent(k, b) {
				return true
			}
		}
	}
	return false
}
