package transform

import "github.com/matzehuels/causalorder/pkg/dag"

// TopologicalOrder returns the variables of g so that every directed edge
// points forward. Undirected edges are treated as pointing from the lower
// index to the higher one; a CPDAG has no partially directed cycle, so this
// never closes one. Among ready variables the lowest index goes first, so
// the order is deterministic.
//
// TopologicalOrder uses Kahn's algorithm and returns [dag.ErrGraphHasCycle]
// if the edges admit no such order.
func TopologicalOrder(g *dag.Graph) ([]int, error) {
	n := g.Len()
	inDegree := make([]int, n)
	succ := make([][]int, n)
	for _, e := range g.Edges() {
		// Undirected edges are reported with From < To.
		succ[e.From] = append(succ[e.From], e.To)
		inDegree[e.To]++
	}

	placed := make([]bool, n)
	order := make([]int, 0, n)
	for len(order) < n {
		next := -1
		for v := range n {
			if !placed[v] && inDegree[v] == 0 {
				next = v
				break
			}
		}
		if next < 0 {
			return nil, dag.ErrGraphHasCycle
		}
		placed[next] = true
		order = append(order, next)
		for _, w := range succ[next] {
			inDegree[w]--
		}
	}
	return order, nil
}
