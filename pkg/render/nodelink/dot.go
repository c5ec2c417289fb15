package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/causalorder/pkg/dag"
	"github.com/matzehuels/causalorder/pkg/knowledge"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Title is drawn above the graph when set.
	Title string
	// Omitted lists edges the search left out because knowledge forbids
	// them. They are drawn dashed and red and do not affect the layout.
	Omitted []knowledge.Edge
}

// ToDOT converts a graph to Graphviz DOT format. Directed edges get an
// arrowhead, undirected edges none. Latent variables are drawn dashed and
// grey.
func ToDOT(g *dag.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n  fontsize=28;\n", opts.Title)
	}
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, v := range g.Variables() {
		attrs := []string{fmt.Sprintf("label=%q", v.Name)}
		if v.IsLatent() {
			attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", v.Name, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	name := func(i int) string { return g.Variable(i).Name }
	for _, e := range g.Edges() {
		if e.Directed {
			fmt.Fprintf(&buf, "  %q -> %q;\n", name(e.From), name(e.To))
		} else {
			fmt.Fprintf(&buf, "  %q -> %q [dir=none];\n", name(e.From), name(e.To))
		}
	}
	for _, e := range opts.Omitted {
		fmt.Fprintf(&buf, "  %q -> %q [style=dashed, color=red, constraint=false];\n", name(e.From), name(e.To))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// The SVG can be converted further with the render package.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with one whose
// width and height equal the viewBox, so the SVG scales in browsers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
