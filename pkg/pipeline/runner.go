package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalorder/pkg/cache"
	"github.com/matzehuels/causalorder/pkg/errors"
	pkgio "github.com/matzehuels/causalorder/pkg/io"
	"github.com/matzehuels/causalorder/pkg/observability"
	"github.com/matzehuels/causalorder/pkg/score"
	"github.com/matzehuels/causalorder/pkg/search"
)

// Runner encapsulates pipeline execution with a persistent score store.
//
// The Runner is stateless except for the store and logger - it doesn't
// keep pipeline results. Multiple goroutines can safely use the same
// Runner with different problems.
type Runner struct {
	Store  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner with the given score store.
// If store is nil, a NullCache is used (nothing persists between runs).
func NewRunner(store cache.Cache, logger *log.Logger) *Runner {
	if store == nil {
		store = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Store: store, Logger: logger}
}

// Execute loads the problem at path and runs the remaining stages.
func (r *Runner) Execute(ctx context.Context, path string, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	loadStart := time.Now()
	p, err := r.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	loadTime := time.Since(loadStart)

	result, err := r.Run(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.LoadTime = loadTime
	return result, nil
}

// Load decodes the problem file at path.
func (r *Runner) Load(ctx context.Context, path string) (*pkgio.Problem, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, path)
	start := time.Now()

	p, err := pkgio.LoadProblem(path)
	if err != nil {
		hooks.OnLoadComplete(ctx, path, 0, time.Since(start), err)
		return nil, fmt.Errorf("load: %w", err)
	}
	hooks.OnLoadComplete(ctx, path, len(p.Observed()), time.Since(start), nil)

	r.Logger.Info("loaded problem",
		"name", p.Name,
		"variables", len(p.Observed()),
		"latent", p.Truth.Len()-len(p.Observed()),
		"truth_edges", p.Truth.EdgeCount())
	return p, nil
}

// Run searches a loaded problem, extracts its graph and renders artifacts.
// A knowledge conflict during extraction is reported in Result.Conflict
// rather than as an error.
func (r *Runner) Run(ctx context.Context, p *pkgio.Problem, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{Problem: p}

	searchStart := time.Now()
	s, err := r.Search(ctx, p, opts)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	result.Search = s.Result()
	result.Stats.SearchTime = time.Since(searchStart)
	result.Stats.Variables = len(p.Observed())
	result.Stats.Cache = s.Cache().Stats()

	g, err := s.Graph(!opts.NoOrient)
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrCodeKnowledgeConflict) && g != nil:
		result.Conflict = err
		r.Logger.Warn("knowledge conflict", "error", errors.UserMessage(err))
	default:
		return nil, fmt.Errorf("extract: %w", err)
	}
	result.Graph = g
	result.Stats.Edges = g.EdgeCount()

	if opts.Title == "" {
		opts.Title = p.Name
	}
	renderStart := time.Now()
	// A cancelled search still yields its best graph, so the converters
	// must outlive the caller's context.
	artifacts, err := r.Render(context.WithoutCancel(ctx), result, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)
	return result, nil
}

// Search runs the order search over the problem's observed variables with
// a d-separation oracle on its ground-truth graph. The returned search has
// completed and can be queried for its graph.
func (r *Runner) Search(ctx context.Context, p *pkgio.Problem, opts Options) (*search.Search, error) {
	oracle, err := score.NewDSeparation(p.Truth)
	if err != nil {
		return nil, err
	}

	cacheOpts := []cache.Option{
		cache.WithCapacity(p.Options.CacheCapacity),
		cache.WithDisabled(!p.Options.CacheScores),
	}
	if !opts.NoCache && p.Options.CacheScores {
		cacheOpts = append(cacheOpts, cache.WithStore(r.Store, cache.NewKeyer(Namespace(p)), cache.TTLScore))
	}

	s, err := search.New(oracle.Variables(),
		search.WithOracle(oracle),
		search.WithKnowledge(p.Knowledge),
		search.WithOptions(p.Options),
		search.WithCache(cache.NewLocalCache(cacheOpts...)),
		search.WithLogger(r.logger(opts)),
	)
	if err != nil {
		return nil, err
	}
	if _, err := s.BestOrder(ctx, p.InitialOrder); err != nil {
		return nil, err
	}

	res := s.Result()
	r.Logger.Info("searched orders",
		"score", res.Score,
		"edges", res.EdgeCount,
		"restarts", len(res.Restarts),
		"incomplete", res.Incomplete,
		"duration", res.Elapsed)
	return s, nil
}

// Close releases resources held by the runner (primarily the store).
func (r *Runner) Close() error {
	if r.Store != nil {
		return r.Store.Close()
	}
	return nil
}

func (r *Runner) logger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}
