package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/causalorder/pkg/errors"
	pkgio "github.com/matzehuels/causalorder/pkg/io"
	"github.com/matzehuels/causalorder/pkg/observability"
	"github.com/matzehuels/causalorder/pkg/pipeline"
	"github.com/matzehuels/causalorder/pkg/search"
)

// searchOpts holds the command-line flags for the search command. Search
// flags override the problem file's [search] table only when set.
type searchOpts struct {
	output    string // output file (single format) or base path
	formats   []string
	noOrient  bool
	title     string
	scale     float64
	noCache   bool
	redisAddr string
	summary   bool

	depth            int
	uncoveredDepth   int
	nonSingularDepth int
	maxParents       int
	starts           int
	seed             uint64
	mode             string
	timeout          time.Duration
	workers          int
	dataOrder        bool
}

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	var formatsStr string
	opts := searchOpts{summary: true, scale: pipeline.DefaultScale}

	cmd := &cobra.Command{
		Use:   "search [problem.toml]",
		Short: "Search orderings and print the equivalence class",
		Long: `Search loads a problem file, runs the permutation search against a
d-separation oracle on the problem's ground-truth graph and writes the
resulting equivalence class.

Text, JSON and DOT output go to stdout unless --output is set. SVG, PNG and
PDF are written next to the problem file by default.`,
		Example: `  causalorder search diamond.toml
  causalorder search diamond.toml --starts 10 --depth 4 -f text,svg
  causalorder search sachs.toml --timeout 30s --redis-addr localhost:6379`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return []string{"toml"}, cobra.ShellCompDirectiveFilterFileExt
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			return c.runSearch(cmd, args[0], &opts)
		},
	}

	defaults := search.DefaultOptions()
	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	f.StringVarP(&formatsStr, "format", "f", "", "output format(s): text (default), json, dot, svg, png, pdf (comma-separated)")
	f.BoolVar(&opts.noOrient, "no-orient", false, "report the best DAG instead of its equivalence class")
	f.StringVar(&opts.title, "title", "", "diagram title (defaults to the problem name)")
	f.Float64Var(&opts.scale, "scale", opts.scale, "PNG resolution multiplier")
	f.BoolVar(&opts.noCache, "no-cache", false, "do not read or write the score store")
	f.StringVar(&opts.redisAddr, "redis-addr", "", "share scores through Redis at host:port instead of the file store")
	f.BoolVar(&opts.summary, "summary", opts.summary, "print the restart summary")

	f.IntVar(&opts.depth, "depth", defaults.Depth, "maximum depth of nested tucks (0 = swaps only)")
	f.IntVar(&opts.uncoveredDepth, "uncovered-depth", defaults.UncoveredDepth, "depth up to which uncovered tucks are allowed")
	f.IntVar(&opts.nonSingularDepth, "non-singular-depth", defaults.NonSingularDepth, "depth up to which non-singular tucks are allowed")
	f.IntVar(&opts.maxParents, "max-parents", defaults.MaxParents, "maximum parents per variable (0 = unbounded)")
	f.IntVar(&opts.starts, "starts", defaults.NumStarts, "number of restarts")
	f.Uint64Var(&opts.seed, "seed", defaults.Seed, "random seed for start orders")
	f.StringVar(&opts.mode, "mode", defaults.Mode.String(), "move acceptance: best, first")
	f.DurationVar(&opts.timeout, "timeout", 0, "stop the search after this long and report the best result so far")
	f.IntVar(&opts.workers, "workers", 0, "restarts run in parallel (0 = number of CPUs)")
	f.BoolVar(&opts.dataOrder, "data-order", false, "start the first restart from the file's variable order")

	_ = cmd.RegisterFlagCompletionFunc("mode", cobra.FixedCompletions(
		[]string{search.BestImprovement.String(), search.FirstImprovement.String()}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(
		[]string{pipeline.FormatText, pipeline.FormatJSON, pipeline.FormatDOT, pipeline.FormatSVG, pipeline.FormatPNG, pipeline.FormatPDF},
		cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// applyFlags copies explicitly set search flags onto the problem's options.
func applyFlags(cmd *cobra.Command, opts *searchOpts, o *search.Options) error {
	changed := cmd.Flags().Changed
	if changed("depth") {
		o.Depth = opts.depth
	}
	if changed("uncovered-depth") {
		o.UncoveredDepth = opts.uncoveredDepth
	}
	if changed("non-singular-depth") {
		o.NonSingularDepth = opts.nonSingularDepth
	}
	if changed("max-parents") {
		o.MaxParents = opts.maxParents
	}
	if changed("starts") {
		o.NumStarts = opts.starts
	}
	if changed("seed") {
		o.Seed = opts.seed
	}
	if changed("mode") {
		mode, err := search.ParseMode(opts.mode)
		if err != nil {
			return err
		}
		o.Mode = mode
	}
	if changed("timeout") {
		o.Timeout = opts.timeout
	}
	if changed("workers") {
		o.Workers = opts.workers
	}
	if changed("data-order") {
		o.UseDataOrder = opts.dataOrder
	}
	return nil
}

// runSearch loads the problem, searches it and writes the artifacts.
func (c *CLI) runSearch(cmd *cobra.Command, input string, opts *searchOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, opts.noCache, opts.redisAddr)
	if err != nil {
		return err
	}
	defer runner.Close()

	p, err := runner.Load(ctx, input)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, opts, &p.Options); err != nil {
		return err
	}

	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Searching %d variables", len(p.Observed())))
	observability.SetSearchHooks(newSpinnerHooks(spinner, p.Options.NumStarts))
	defer observability.Reset()

	spinner.Start()
	result, err := runner.Run(ctx, p, pipeline.Options{
		Formats:  opts.formats,
		NoOrient: opts.noOrient,
		Title:    opts.title,
		Scale:    opts.scale,
	})
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Searched %s", problemName(p, input)))

	if err := c.writeArtifacts(result.Artifacts, opts, input); err != nil {
		return err
	}
	if opts.summary {
		printSummary(result)
	}

	// An interrupted search still reports its best result before exiting.
	return ctx.Err()
}

func problemName(p *pkgio.Problem, input string) string {
	if p.Name != "" {
		return p.Name
	}
	return filepath.Base(input)
}

// writeArtifacts writes one file per format. A single textual format with
// no --output goes to stdout.
func (c *CLI) writeArtifacts(artifacts map[string][]byte, opts *searchOpts, input string) error {
	if len(opts.formats) == 1 && opts.output == "" && isTextual(opts.formats[0]) {
		_, err := c.Out.Write(artifacts[opts.formats[0]])
		return err
	}

	base := basePath(opts.output, input)
	for _, format := range opts.formats {
		path := base + "." + extension(format)
		if len(opts.formats) == 1 && opts.output != "" {
			path = opts.output
		}
		if err := writeFile(path, artifacts[format]); err != nil {
			return err
		}
		printFile(path)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}

func isTextual(format string) bool {
	switch format {
	case pipeline.FormatText, pipeline.FormatJSON, pipeline.FormatDOT:
		return true
	}
	return false
}

func extension(format string) string {
	if format == pipeline.FormatText {
		return "txt"
	}
	return format
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .pdf, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := strings.TrimPrefix(filepath.Ext(output), ".")
	if pipeline.ValidFormats[ext] || ext == "txt" {
		return strings.TrimSuffix(output, "."+ext)
	}
	return output
}

// =============================================================================
// Progress Hooks
// =============================================================================

// spinnerHooks reports restart progress on the spinner line and forwards
// every event to the metric hooks.
type spinnerHooks struct {
	observability.SearchHooks

	spinner *Spinner
	starts  int

	mu       sync.Mutex
	finished int
	best     float64
}

func newSpinnerHooks(s *Spinner, starts int) *spinnerHooks {
	return &spinnerHooks{SearchHooks: observability.NewOTelSearchHooks(), spinner: s, starts: starts}
}

func (h *spinnerHooks) OnRestartComplete(ctx context.Context, restart int, score float64, iterations int, d time.Duration) {
	h.SearchHooks.OnRestartComplete(ctx, restart, score, iterations, d)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished == 0 || score > h.best {
		h.best = score
	}
	h.finished++
	h.spinner.SetMessage(fmt.Sprintf("Searching orders: %d/%d restarts, best score %.4g", h.finished, h.starts, h.best))
}

// =============================================================================
// Summary
// =============================================================================

func printSummary(result *pipeline.Result) {
	res := result.Search
	printSuccess("Found %d edges over %d variables (score %.6g)", result.Stats.Edges, result.Stats.Variables, res.Score)
	printKeyValue("run", res.RunID)
	printKeyValue("iterations", fmt.Sprintf("%d", res.Iterations()))
	printKeyValue("elapsed", res.Elapsed.Round(time.Millisecond).String())
	printCacheStats(result.Stats.Cache)

	if len(res.Restarts) > 1 {
		printRestarts(res)
	}
	if res.Incomplete {
		printWarning("Search stopped before every restart converged; the result is the best found so far")
	}
	if res.Failures > 0 {
		printWarning("%d evaluations failed and were treated as uninformative", res.Failures)
	}
	if result.Conflict != nil {
		printWarning("%s", errors.UserMessage(result.Conflict))
	}
}
