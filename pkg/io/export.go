package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/causalorder/pkg/dag"
)

type graph struct {
	Nodes []node `json:"nodes"`
	Edges []edge `json:"edges"`
}

type node struct {
	ID     string `json:"id"`
	Latent bool   `json:"latent,omitempty"`
}

type edge struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Undirected bool   `json:"undirected,omitempty"`
}

// WriteJSON encodes g as indented JSON and writes it to w. Edges are listed
// in the graph's canonical order, so equal graphs encode identically.
func WriteJSON(g *dag.Graph, w io.Writer) error {
	out := graph{
		Nodes: make([]node, g.Len()),
		Edges: []edge{},
	}
	for i, v := range g.Variables() {
		out.Nodes[i] = node{ID: v.Name, Latent: v.IsLatent()}
	}
	for _, e := range g.Edges() {
		out.Edges = append(out.Edges, edge{
			From:       g.Variable(e.From).Name,
			To:         g.Variable(e.To).Name,
			Undirected: !e.Directed,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes g to a JSON file at path.
func ExportJSON(g *dag.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f)
}
