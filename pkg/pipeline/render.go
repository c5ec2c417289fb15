package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matzehuels/causalorder/pkg/dag"
	pkgio "github.com/matzehuels/causalorder/pkg/io"
	"github.com/matzehuels/causalorder/pkg/knowledge"
	"github.com/matzehuels/causalorder/pkg/observability"
	"github.com/matzehuels/causalorder/pkg/render"
	"github.com/matzehuels/causalorder/pkg/render/nodelink"
	"github.com/matzehuels/causalorder/pkg/search"
)

// Render generates artifacts for a searched result in every requested
// format. SVG is rendered once and shared by the PNG and PDF conversions.
func (r *Runner) Render(ctx context.Context, result *Result, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	artifacts, err := RenderGraph(ctx, result.Graph, conflicts(result.Search), result.Search, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	return artifacts, err
}

// RenderGraph renders g in the formats of opts. omitted edges are drawn
// as conflicts in diagrams. diag, if non-nil, is embedded in the JSON
// output next to the graph.
func RenderGraph(ctx context.Context, g *dag.Graph, omitted []knowledge.Edge, diag *search.Result, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var dot string
	var svg []byte
	for _, format := range opts.Formats {
		if _, done := artifacts[format]; done {
			continue
		}

		var data []byte
		var err error
		switch format {
		case FormatText:
			data = []byte(g.String())
		case FormatJSON:
			data, err = renderJSON(g, diag)
		case FormatDOT, FormatSVG, FormatPNG, FormatPDF:
			if dot == "" {
				dot = nodelink.ToDOT(g, nodelink.Options{Title: opts.Title, Omitted: omitted})
			}
			if format == FormatDOT {
				data = []byte(dot)
				break
			}
			if svg == nil {
				if svg, err = nodelink.RenderSVG(ctx, dot); err != nil {
					break
				}
			}
			data, err = convertSVG(ctx, svg, format, opts.Scale)
		default:
			err = ValidateFormat(format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func convertSVG(ctx context.Context, svg []byte, format string, scale float64) ([]byte, error) {
	switch format {
	case FormatPNG:
		return render.ToPNG(ctx, svg, scale)
	case FormatPDF:
		return render.ToPDF(ctx, svg)
	default:
		return svg, nil
	}
}

func conflicts(diag *search.Result) []knowledge.Edge {
	if diag == nil {
		return nil
	}
	return diag.Conflicts
}

// renderJSON writes the graph document, wrapped with diagnostics when
// present.
func renderJSON(g *dag.Graph, diag *search.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := pkgio.WriteJSON(g, &buf); err != nil {
		return nil, err
	}
	if diag == nil {
		return buf.Bytes(), nil
	}
	doc := struct {
		Graph  json.RawMessage `json:"graph"`
		Search *search.Result  `json:"search"`
	}{json.RawMessage(buf.Bytes()), diag}
	return json.MarshalIndent(doc, "", "  ")
}
