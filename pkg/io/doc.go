// Package io reads search problems from TOML and moves graphs in and out of
// JSON.
//
// # Problem Files
//
// A problem file names the variables, the ground-truth edges an oracle
// answers from, background knowledge and search options:
//
//	name = "diamond"
//
//	[[variables]]
//	name = "A"
//	[[variables]]
//	name = "B"
//	[[variables]]
//	name = "U"
//	latent = true
//
//	[[edges]]
//	from = "A"
//	to = "B"
//
//	[knowledge]
//	forbidden = [{ from = "B", to = "A" }]
//	tiers = [["A"], ["B"]]
//
//	[search]
//	depth = 3
//	num_starts = 4
//	timeout_ms = 500
//
// Latent variables take part in the truth graph but are never searched
// over; knowledge may only name observed variables. Unknown keys are
// rejected so typos do not silently fall back to defaults.
//
// Use [LoadProblem] to read a file by path, or [ReadProblem] to read from
// any io.Reader.
//
// # Graph JSON
//
// Graphs are exchanged as a node list and an edge list:
//
//	{
//	  "nodes": [{"id": "A"}, {"id": "B"}, {"id": "U", "latent": true}],
//	  "edges": [
//	    {"from": "A", "to": "B"},
//	    {"from": "B", "to": "C", "undirected": true}
//	  ]
//	}
//
// Edges are directed unless marked undirected. [WriteJSON] and [ReadJSON]
// round-trip every graph the search produces, CPDAGs included.
//
// A problem's [search] table may set initial_graph to such a file, resolved
// relative to the problem file. The first restart then starts from a
// topological order of that graph restricted to the observed variables.
//
// # Concurrency
//
// All functions are safe to call concurrently. Returned values are
// independent of their input and can be modified freely.
package io
