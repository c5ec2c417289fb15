// Package dag provides the graph types shared by the search engine: indexed
// variables and a partially directed graph that holds both DAGs and
// equivalence-class graphs (CPDAGs).
//
// # Overview
//
// Variables are addressed by index. A search is constructed over a fixed
// []Variable and every ordering, parent set and edge refers to positions in
// that slice. Names exist for display only.
//
// # Basic Usage
//
// Create a graph with [NewGraph] and add edges with [Graph.AddDirected] and
// [Graph.AddUndirected]:
//
//	vars := dag.NewVariables("A", "B", "C")
//	g := dag.NewGraph(vars)
//	g.AddDirected(0, 1)
//	g.AddUndirected(1, 2)
//
// [FromParents] builds a DAG from a parent-set assignment, which is how the
// search materializes the graph induced by an ordering.
//
// Query the structure with [Graph.Parents], [Graph.Children],
// [Graph.Neighbors] and [Graph.Adjacent]. Use [Graph.Validate] to verify the
// directed part is acyclic.
//
// # Edge Marks
//
// Each adjacency is stored as two marks, one per direction. Both marks set is
// an undirected edge, a single mark a directed one. [Graph.Orient] clears the
// reverse mark of an existing edge, which is the only step the orientation
// rules in [transform] need.
//
// # d-Separation
//
// [Graph.DSeparated] answers conditional independence queries against the
// directed part of a graph with a reachability search. It backs the
// d-separation oracle in the score package, which lets a ground-truth graph
// (including latent variables) stand in for a statistical test.
//
// # Concurrency
//
// Graph instances are not safe for concurrent mutation. Read-only queries,
// including d-separation, may run in parallel.
//
// [transform]: github.com/matzehuels/causalorder/pkg/dag/transform
package dag
