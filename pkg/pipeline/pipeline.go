// Package pipeline runs a causal search end to end.
//
// This package implements the load → search → extract → render pipeline the
// CLI drives. Keeping it here means every entry point treats problem files,
// score stores and output formats the same way.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: Decode a TOML problem file (see [github.com/matzehuels/causalorder/pkg/io])
//  2. Search: Run the order search against a d-separation oracle built from
//     the problem's ground-truth graph
//  3. Extract: Collapse the best DAG to its equivalence class
//  4. Render: Generate output in the requested formats (text, JSON, DOT, SVG, PNG, PDF)
//
// # Usage
//
//	runner := pipeline.NewRunner(store, logger)
//	result, err := runner.Execute(ctx, "diamond.toml", pipeline.Options{
//	    Formats: []string{"text", "svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	p, err := runner.Load(ctx, "diamond.toml")
//	p.Options.NumStarts = 10
//	result, err := runner.Run(ctx, p, opts)
//
// # Score Store
//
// A Runner's store persists independence results between runs. Entries are
// namespaced by a hash of the ground-truth graph, so runs over different
// problems never share entries while repeated runs over one problem skip
// every evaluation they have seen before.
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalorder/pkg/cache"
	"github.com/matzehuels/causalorder/pkg/dag"
	"github.com/matzehuels/causalorder/pkg/errors"
	pkgio "github.com/matzehuels/causalorder/pkg/io"
	"github.com/matzehuels/causalorder/pkg/search"
)

// DefaultScale is the PNG resolution multiplier.
const DefaultScale = 2.0

// Format constants for output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatText: true,
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
}

// Options configures the stages after Load. Search options come from the
// problem file; callers adjust them on the loaded problem.
type Options struct {
	// Formats lists the artifacts to render. Defaults to text.
	Formats []string `json:"formats,omitempty"`
	// NoOrient skips equivalence-class extraction and reports the best DAG.
	NoOrient bool `json:"no_orient,omitempty"`
	// Title labels rendered diagrams. Defaults to the problem name.
	Title string `json:"title,omitempty"`
	// Scale is the PNG resolution multiplier.
	Scale float64 `json:"scale,omitempty"`
	// NoCache bypasses the runner's score store for this run.
	NoCache bool `json:"no_cache,omitempty"`

	// Logger receives the search's own log lines. Defaults to the
	// runner's logger.
	Logger *log.Logger `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Problem *pkgio.Problem

	// Graph is the equivalence class of the best DAG, or the DAG itself
	// with NoOrient.
	Graph *dag.Graph

	// Search holds the search diagnostics.
	Search *search.Result

	// Conflict is the KNOWLEDGE_CONFLICT error reported during extraction,
	// if any. Graph is still set when Conflict is.
	Conflict error

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Variables  int
	Edges      int
	LoadTime   time.Duration
	SearchTime time.Duration
	RenderTime time.Duration
	Cache      cache.Stats
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)", format, strings.Join(formatNames(), ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

func formatNames() []string {
	return []string{FormatText, FormatJSON, FormatDOT, FormatSVG, FormatPNG, FormatPDF}
}

// ValidateAndSetDefaults checks formats and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatText}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "scale must be > 0, got %g", o.Scale)
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	o.validated = true
	return nil
}

// Namespace returns the score store namespace of a problem. It covers the
// variables and the ground-truth edges, which together determine every
// independence result.
func Namespace(p *pkgio.Problem) string {
	var names []string
	for _, v := range p.Truth.Variables() {
		names = append(names, fmt.Sprintf("%s/%s", v.Name, v.Kind))
	}
	return cache.Namespace("dsep", names, p.Truth.String())
}
