// Package nodelink renders causal graphs as node-link diagrams.
//
// # Usage
//
// Convert a graph to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Title: "diamond"})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output, convert the SVG:
//
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0) // 2x scale
//
// # Drawing Conventions
//
//   - Directed edges (A --> B) are arrows.
//   - Undirected edges of a CPDAG (A --- B) are drawn without arrowheads.
//   - Latent variables have dashed grey boxes.
//   - Forbidden edges listed in [Options.Omitted] are dashed red arrows that
//     do not influence the layout.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
