// Package render turns search output into pictures.
//
// The [nodelink] subpackage draws graphs as Graphviz node-link diagrams and
// renders them to SVG in-process. This package converts that SVG to other
// formats with the external rsvg-convert tool (from librsvg):
//
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0) // 2x scale
//
// Conversions return an UNSUPPORTED error when rsvg-convert is not
// installed.
//
// [nodelink]: github.com/matzehuels/causalorder/pkg/render/nodelink
package render
