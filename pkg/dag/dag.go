package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnknownVariable is returned when an edge references an index outside
	// the graph's variable set.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrSelfLoop is returned by [Graph.AddDirected] and [Graph.AddUndirected]
	// when both endpoints are the same variable.
	ErrSelfLoop = errors.New("self loops are not allowed")

	// ErrNotAdjacent is returned by [Graph.Orient] when the two variables share
	// no edge.
	ErrNotAdjacent = errors.New("variables are not adjacent")

	// ErrGraphHasCycle is returned by [Graph.Validate] when the directed part
	// of the graph contains a cycle. Cycles are detected using depth-first
	// search with white/gray/black coloring.
	ErrGraphHasCycle = errors.New("graph contains a directed cycle")
)

// VariableKind tags a variable as measured or hidden.
type VariableKind int

const (
	// Observed variables are measured and take part in the search.
	Observed VariableKind = iota
	// Latent variables exist only in ground-truth graphs. They are never
	// searched over but still mediate d-separation.
	Latent
)

func (k VariableKind) String() string {
	switch k {
	case Observed:
		return "observed"
	case Latent:
		return "latent"
	default:
		return fmt.Sprintf("VariableKind(%d)", int(k))
	}
}

// Variable is an immutable random variable. Inside the engine a variable is
// identified by its index into the variable slice handed to a constructor, so
// two variables with the same name at different indices are distinct.
type Variable struct {
	Name string
	Kind VariableKind
}

// IsLatent reports whether the variable is hidden.
func (v Variable) IsLatent() bool { return v.Kind == Latent }

// NewVariables creates observed variables with the given names.
func NewVariables(names ...string) []Variable {
	vars := make([]Variable, len(names))
	for i, name := range names {
		vars[i] = Variable{Name: name}
	}
	return vars
}

// Names returns the names of vars in index order.
func Names(vars []Variable) []string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name
	}
	return names
}

// Edge is a single edge of a [Graph]. When Directed is false the edge is
// undirected and From < To.
type Edge struct {
	From     int
	To       int
	Directed bool
}

// Graph is a partially directed graph over a fixed, indexed variable set.
// It represents both DAGs (every edge directed) and equivalence-class graphs
// (CPDAGs) where some edges remain undirected.
//
// Each adjacency is stored as a pair of marks: mark[i][j] && mark[j][i] is an
// undirected edge i---j, mark[i][j] alone is a directed edge i→j.
//
// The zero value is not usable - use [NewGraph] to create a graph.
// Graph is not safe for concurrent mutation; concurrent readers are fine.
type Graph struct {
	vars []Variable
	mark [][]bool
}

// NewGraph creates an edgeless graph over vars. The variable slice is copied.
func NewGraph(vars []Variable) *Graph {
	n := len(vars)
	mark := make([][]bool, n)
	for i := range mark {
		mark[i] = make([]bool, n)
	}
	return &Graph{vars: slices.Clone(vars), mark: mark}
}

// FromParents builds a DAG from a parent-set assignment: for every v, each
// u in parents[v] becomes the edge u→v.
func FromParents(vars []Variable, parents [][]int) (*Graph, error) {
	g := NewGraph(vars)
	for v, pa := range parents {
		for _, u := range pa {
			if err := g.AddDirected(u, v); err != nil {
				return nil, fmt.Errorf("parent %d of %d: %w", u, v, err)
			}
		}
	}
	return g, nil
}

// Len returns the number of variables.
func (g *Graph) Len() int { return len(g.vars) }

// Variables returns a copy of the variable set.
func (g *Graph) Variables() []Variable { return slices.Clone(g.vars) }

// Variable returns the variable at index i.
func (g *Graph) Variable(i int) Variable { return g.vars[i] }

// Index returns the index of the variable with the given name.
func (g *Graph) Index(name string) (int, bool) {
	for i, v := range g.vars {
		if v.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (g *Graph) check(a, b int) error {
	if a < 0 || a >= len(g.vars) || b < 0 || b >= len(g.vars) {
		return ErrUnknownVariable
	}
	if a == b {
		return ErrSelfLoop
	}
	return nil
}

// AddDirected adds the edge from→to, replacing any existing edge between the
// two variables.
func (g *Graph) AddDirected(from, to int) error {
	if err := g.check(from, to); err != nil {
		return err
	}
	g.mark[from][to] = true
	g.mark[to][from] = false
	return nil
}

// AddUndirected adds the edge a---b, replacing any existing edge between the
// two variables.
func (g *Graph) AddUndirected(a, b int) error {
	if err := g.check(a, b); err != nil {
		return err
	}
	g.mark[a][b] = true
	g.mark[b][a] = true
	return nil
}

// RemoveEdge removes any edge between a and b. No error is returned if the
// variables are not adjacent.
func (g *Graph) RemoveEdge(a, b int) {
	if g.check(a, b) != nil {
		return
	}
	g.mark[a][b] = false
	g.mark[b][a] = false
}

// Orient turns an existing edge between from and to into from→to.
// Returns ErrNotAdjacent if the variables share no edge.
func (g *Graph) Orient(from, to int) error {
	if err := g.check(from, to); err != nil {
		return err
	}
	if !g.Adjacent(from, to) {
		return ErrNotAdjacent
	}
	g.mark[from][to] = true
	g.mark[to][from] = false
	return nil
}

// Adjacent reports whether a and b share an edge of any kind.
func (g *Graph) Adjacent(a, b int) bool { return g.mark[a][b] || g.mark[b][a] }

// IsDirected reports whether the graph holds the directed edge from→to.
func (g *Graph) IsDirected(from, to int) bool { return g.mark[from][to] && !g.mark[to][from] }

// IsUndirected reports whether the graph holds the undirected edge a---b.
func (g *Graph) IsUndirected(a, b int) bool { return g.mark[a][b] && g.mark[b][a] }

// Parents returns the variables with a directed edge into v, in index order.
func (g *Graph) Parents(v int) []int {
	var out []int
	for u := range g.vars {
		if g.IsDirected(u, v) {
			out = append(out, u)
		}
	}
	return out
}

// Children returns the variables v points to, in index order.
func (g *Graph) Children(v int) []int {
	var out []int
	for u := range g.vars {
		if g.IsDirected(v, u) {
			out = append(out, u)
		}
	}
	return out
}

// Neighbors returns the variables joined to v by an undirected edge.
func (g *Graph) Neighbors(v int) []int {
	var out []int
	for u := range g.vars {
		if g.IsUndirected(v, u) {
			out = append(out, u)
		}
	}
	return out
}

// Adjacents returns every variable sharing an edge with v.
func (g *Graph) Adjacents(v int) []int {
	var out []int
	for u := range g.vars {
		if u != v && g.Adjacent(u, v) {
			out = append(out, u)
		}
	}
	return out
}

// Edges returns all edges ordered by (From, To). Undirected edges are
// reported once with From < To.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for i := range g.vars {
		for j := range g.vars {
			switch {
			case g.IsDirected(i, j):
				edges = append(edges, Edge{From: i, To: j, Directed: true})
			case i < j && g.IsUndirected(i, j):
				edges = append(edges, Edge{From: i, To: j})
			}
		}
	}
	return edges
}

// EdgeCount returns the number of adjacencies, directed or not.
func (g *Graph) EdgeCount() int {
	count := 0
	for i := range g.vars {
		for j := i + 1; j < len(g.vars); j++ {
			if g.Adjacent(i, j) {
				count++
			}
		}
	}
	return count
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	mark := make([][]bool, len(g.mark))
	for i := range g.mark {
		mark[i] = slices.Clone(g.mark[i])
	}
	return &Graph{vars: slices.Clone(g.vars), mark: mark}
}

// Equal reports whether both graphs have the same variables and edge marks.
func (g *Graph) Equal(other *Graph) bool {
	if other == nil || !slices.Equal(g.vars, other.vars) {
		return false
	}
	for i := range g.mark {
		if !slices.Equal(g.mark[i], other.mark[i]) {
			return false
		}
	}
	return true
}

// Validate checks that the directed part of the graph is acyclic.
// Returns ErrGraphHasCycle otherwise. Cycle detection runs in O(N²) time
// because adjacency is stored as a matrix.
func (g *Graph) Validate() error {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(g.vars))
	var hasCycle bool

	var dfs func(v int)
	dfs = func(v int) {
		color[v] = gray
		for _, child := range g.Children(v) {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				hasCycle = true
			}
			if hasCycle {
				return
			}
		}
		color[v] = black
	}

	for v := range g.vars {
		if color[v] == white {
			dfs(v)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

// String renders the graph as one edge per line, e.g. "A --> B" or "A --- B".
func (g *Graph) String() string {
	var b strings.Builder
	for _, e := range g.Edges() {
		arrow := "---"
		if e.Directed {
			arrow = "-->"
		}
		fmt.Fprintf(&b, "%s %s %s\n", g.vars[e.From].Name, arrow, g.vars[e.To].Name)
	}
	return b.String()
}
