package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/causalorder/pkg/dag"
	"github.com/matzehuels/causalorder/pkg/errors"
)

// ReadJSON decodes a graph written by [WriteJSON].
//
// ReadJSON returns an error if the JSON is malformed, a node id is invalid
// or repeated, an edge names an unknown node or a self loop, two edges join
// the same pair, or the directed edges form a cycle. ReadJSON does not
// close r.
func ReadJSON(r io.Reader) (*dag.Graph, error) {
	var data graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode graph")
	}

	vars := make([]dag.Variable, len(data.Nodes))
	index := make(map[string]int, len(data.Nodes))
	for i, n := range data.Nodes {
		if err := errors.ValidateVariableName(n.ID); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		if _, dup := index[n.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate node %q", n.ID)
		}
		index[n.ID] = i
		vars[i] = dag.Variable{Name: n.ID}
		if n.Latent {
			vars[i].Kind = dag.Latent
		}
	}

	g := dag.NewGraph(vars)
	for _, e := range data.Edges {
		from, okFrom := index[e.From]
		to, okTo := index[e.To]
		if !okFrom || !okTo {
			return nil, errors.New(errors.ErrCodeInvalidInput, "edge %s -> %s names an unknown node", e.From, e.To)
		}
		if g.Adjacent(from, to) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "more than one edge between %s and %s", e.From, e.To)
		}
		add := g.AddDirected
		if e.Undirected {
			add = g.AddUndirected
		}
		if err := add(from, to); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "edge %s -> %s", e.From, e.To)
		}
	}
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "graph")
	}
	return g, nil
}

// ImportJSON reads a JSON graph file at path.
func ImportJSON(path string) (*dag.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	defer f.Close()
	return ReadJSON(f)
}
