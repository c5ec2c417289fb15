// Package transform derives graphs from graphs: the equivalence class of a
// DAG, and orders compatible with a graph.
//
// # Equivalence Classes
//
// Many DAGs encode the same conditional independencies. [EquivalenceClass]
// turns a DAG into the completed partially directed graph (CPDAG) of its
// class: edges every member orients the same way stay directed, the rest
// become undirected.
//
// Background knowledge narrows the class further. Required edges and edges
// whose reverse is forbidden are oriented before [ApplyMeekRules] closes the
// orientations. Knowledge the DAG cannot honor is reported as a
// KNOWLEDGE_CONFLICT error alongside the graph, never silently dropped.
//
// # Orders
//
// [TopologicalOrder] returns the deterministic topological order a search
// starts from when seeded with a known graph.
//
// # Usage
//
//	cpdag, err := transform.EquivalenceClass(g, know)
//	if errors.Is(err, errors.ErrCodeKnowledgeConflict) {
//	    // cpdag is still usable; err lists what could not be honored
//	}
package transform
