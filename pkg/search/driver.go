package search

import (
	"context"
	stderrors "errors"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/causalorder/pkg/dag/perm"
	"github.com/matzehuels/causalorder/pkg/dag/transform"
	"github.com/matzehuels/causalorder/pkg/errors"
	"github.com/matzehuels/causalorder/pkg/observability"
)

var tracer = otel.Tracer("causalorder/search")

// BestOrder runs the search and returns the best order found.
//
// initial, if non-nil, is the start order of the first restart; it must be
// a permutation of the variable indices. Without it the first restart
// starts from the index order (UseDataOrder), a topological order of
// InitialGraph, or a seeded shuffle, in that order of preference. Every
// other restart starts from its own seeded shuffle. Start orders are
// rearranged to satisfy background knowledge.
//
// Cancellation of ctx, or the Timeout option, stops the search at the next
// iteration or restart boundary. The best state reached so far is kept and
// the result is marked Incomplete; no error is returned. The first restart
// always produces a scored state, even if ctx is already done.
//
// Errors are returned only for an invalid initial order and for broken
// search invariants (code INTERNAL_INVARIANT).
func (s *Search) BestOrder(ctx context.Context, initial []int) ([]int, error) {
	n := len(s.vars)
	if initial != nil {
		if err := checkPermutation(initial, n); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "initial order")
		}
	}

	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "search.BestOrder",
		trace.WithAttributes(
			attribute.String("search.run_id", runID),
			attribute.Int("search.variables", n),
			attribute.Int("search.starts", s.opts.NumStarts),
		),
	)
	defer span.End()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	hooks := observability.Search()
	hooks.OnSearchStart(ctx, n, s.opts.NumStarts)
	failuresBefore := s.opt.failures.Load()

	runs := make([]restartRun, s.opts.NumStarts)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i := range runs {
		g.Go(func() error {
			run, err := s.restart(gctx, i, initial)
			runs[i] = run
			return err
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		hooks.OnSearchComplete(ctx, math.Inf(-1), s.opt.failures.Load()-failuresBefore, true, time.Since(start), err)
		return nil, err
	}

	bestIdx := -1
	for i, run := range runs {
		if run.state == nil {
			continue
		}
		if bestIdx < 0 || run.state.total > runs[bestIdx].state.total {
			bestIdx = i
		}
	}
	best := runs[bestIdx].state

	result := &Result{
		RunID:       runID,
		Order:       best.Order(),
		Score:       best.total,
		EdgeCount:   best.EdgeCount(),
		Restarts:    make([]RestartResult, len(runs)),
		BestRestart: bestIdx,
	}
	for i, run := range runs {
		result.Restarts[i] = run.summary
		if !run.summary.Completed {
			result.Incomplete = true
		}
	}
	result.Conflicts = s.conflicts(context.WithoutCancel(ctx), best)
	result.Failures = s.opt.failures.Load() - failuresBefore
	result.Elapsed = time.Since(start)
	result.Cache = s.cache.Stats()

	s.mu.Lock()
	s.best, s.result = best, result
	s.mu.Unlock()

	hooks.OnPhase(ctx, bestIdx, observability.PhaseDone)
	hooks.OnSearchComplete(ctx, result.Score, result.Failures, result.Incomplete, result.Elapsed, nil)
	span.SetAttributes(
		attribute.Float64("search.score", result.Score),
		attribute.Int("search.edges", result.EdgeCount),
		attribute.Bool("search.incomplete", result.Incomplete),
	)
	span.SetStatus(codes.Ok, "")

	s.logger.Info("search complete",
		"run", runID[:8],
		"score", result.Score,
		"edges", result.EdgeCount,
		"best_restart", bestIdx,
		"restarts", len(runs),
		"failures", result.Failures,
		"incomplete", result.Incomplete,
		"elapsed", result.Elapsed.Round(time.Millisecond),
	)
	return best.Order(), nil
}

// restartRun is the outcome of one restart.
type restartRun struct {
	state   *State
	summary RestartResult
}

// restart climbs from one start order to a local optimum.
func (s *Search) restart(ctx context.Context, idx int, initial []int) (restartRun, error) {
	run := restartRun{summary: RestartResult{Index: idx}}
	if idx > 0 && ctx.Err() != nil {
		run.summary.Skipped = true
		return run, nil
	}

	ctx, span := tracer.Start(ctx, "search.Restart",
		trace.WithAttributes(attribute.Int("search.restart", idx)),
	)
	defer span.End()

	hooks := observability.Search()
	if idx > 0 {
		hooks.OnPhase(ctx, idx, observability.PhaseRestarting)
	}
	start := time.Now()
	rng := rand.New(rand.NewPCG(s.opts.Seed, uint64(idx)))

	hooks.OnPhase(ctx, idx, observability.PhaseInitializing)
	order := s.know.Arrange(s.startOrder(idx, initial, rng))
	cur := newState(ctx, s.opt, s.know, order)
	if err := cur.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return run, err
	}

	c := &climber{opts: &s.opts, rng: rng}
	trajectory := []float64{cur.total}
	iterations := 0
	completed := false
	for ctx.Err() == nil {
		hooks.OnPhase(ctx, idx, observability.PhaseImproving)
		next, moves, err := c.step(ctx, cur)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return run, err
		}
		if next == nil {
			// A DFS cut short by cancellation proves nothing.
			completed = ctx.Err() == nil
			break
		}
		if err := next.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return run, err
		}
		cur = next
		iterations++
		trajectory = append(trajectory, cur.total)
		span.AddEvent("improvement", trace.WithAttributes(
			attribute.String("search.moves", describe(moves)),
			attribute.Float64("search.score", cur.total),
		))
		s.logger.Debug("improved", "restart", idx, "moves", describe(moves), "score", cur.total)
		hooks.OnImprovement(ctx, idx, moveKind(moves), cur.total)
	}
	if completed {
		hooks.OnPhase(ctx, idx, observability.PhaseLocalOptimum)
	}

	elapsed := time.Since(start)
	run.state = cur
	run.summary = RestartResult{
		Index:      idx,
		Score:      cur.total,
		Iterations: iterations,
		Trajectory: trajectory,
		Elapsed:    elapsed,
		Completed:  completed,
	}
	hooks.OnRestartComplete(ctx, idx, cur.total, iterations, elapsed)
	span.SetAttributes(
		attribute.Float64("search.score", cur.total),
		attribute.Int("search.iterations", iterations),
	)

	s.logger.Debug("restart done",
		"restart", idx,
		"score", cur.total,
		"iterations", iterations,
		"completed", completed,
		"order", cur.order.String(),
	)
	return run, nil
}

// startOrder picks the order a restart begins from.
func (s *Search) startOrder(idx int, initial []int, rng *rand.Rand) *perm.Order {
	n := len(s.vars)
	if idx == 0 {
		switch {
		case initial != nil:
			o, _ := perm.NewOrder(initial)
			return o
		case s.opts.UseDataOrder:
			return perm.Identity(n)
		case s.opts.InitialGraph != nil:
			if topo, err := transform.TopologicalOrder(s.opts.InitialGraph); err == nil {
				o, _ := perm.NewOrder(topo)
				return o
			}
		}
	}
	return perm.Shuffled(n, rng)
}

// moveKind maps an accepted move sequence onto the bounded set of metric
// labels.
func moveKind(moves []Move) observability.MoveKind {
	if len(moves) > 1 {
		return observability.MoveSequence
	}
	if _, ok := moves[0].(Swap); ok {
		return observability.MoveSwap
	}
	return observability.MoveTuck
}

func describe(moves []Move) string {
	parts := make([]string, len(moves))
	for i, m := range moves {
		parts[i] = m.String()
	}
	return strings.Join(parts, " ")
}

// climber finds improving moves for one restart. It is not safe for
// concurrent use.
type climber struct {
	opts *Options
	rng  *rand.Rand
}

type plateauMove struct {
	tuck  Tuck
	state *State
}

// step returns an improving neighbor of cur and the moves leading to it,
// or nil at a local optimum.
func (c *climber) step(ctx context.Context, cur *State) (*State, []Move, error) {
	scan := c.scanOrder(cur.Len())

	var (
		best     *State
		bestMove Move
		plateau  []plateauMove
	)
	for _, y := range scan {
		for _, m := range c.firstLevel(cur, y) {
			next, err := cur.Apply(ctx, m)
			if stderrors.Is(err, errInadmissible) {
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			if next.total > cur.total+epsilon {
				if c.opts.Mode == FirstImprovement {
					return next, []Move{m}, nil
				}
				if best == nil || next.total > best.total {
					best, bestMove = next, m
				}
				continue
			}
			if t, ok := m.(Tuck); ok && math.Abs(next.total-cur.total) <= epsilon {
				plateau = append(plateau, plateauMove{tuck: t, state: next})
			}
		}
	}
	if best != nil {
		return best, []Move{bestMove}, nil
	}
	if c.opts.Depth < 2 || len(plateau) == 0 {
		return nil, nil, nil
	}

	// No single move helps: look for a sequence of tucks through
	// equal-score orders that ends in an improvement.
	visited := map[string]bool{cur.order.Key(): true}
	for _, p := range plateau {
		visited[p.state.order.Key()] = true
	}
	path := make(map[coveredEdge]bool)
	for _, p := range plateau {
		if ctx.Err() != nil {
			return nil, nil, nil
		}
		pair := edgeOf(p.tuck)
		if p.tuck.Covered {
			path[pair] = true
		}
		found, moves, err := c.dfs(ctx, p.state, 2, cur.total, scan, path, visited)
		delete(path, pair)
		if err != nil || found != nil {
			return found, append([]Move{p.tuck}, moves...), err
		}
	}
	return nil, nil, nil
}

// firstLevel returns the moves that bring y forward: the swap with its
// predecessor, then its tucks. A tuck over an adjacent parent is that swap
// and is always legal; longer tucks need Depth >= 1 and pass the gates.
func (c *climber) firstLevel(cur *State, y int) []Move {
	var moves []Move
	if p := cur.Position(y); p > 0 && !contains(cur.parents[y], cur.order.At(p-1)) {
		moves = append(moves, Swap{I: p - 1})
	}
	for _, t := range cur.tucks(y) {
		switch {
		case t.adjacent():
			moves = append(moves, t)
		case c.opts.Depth > 0 && c.opts.allowed(t, 1):
			moves = append(moves, t)
		}
	}
	return moves
}

func (c *climber) dfs(ctx context.Context, cur *State, level int, base float64, scan []int, path map[coveredEdge]bool, visited map[string]bool) (*State, []Move, error) {
	for _, y := range scan {
		for _, t := range cur.tucks(y) {
			if ctx.Err() != nil {
				return nil, nil, nil
			}
			if !c.opts.allowed(t, level) {
				continue
			}
			pair := edgeOf(t)
			if t.Covered && path[pair] {
				continue
			}
			next, err := cur.Apply(ctx, t)
			if stderrors.Is(err, errInadmissible) {
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			key := next.order.Key()
			if visited[key] {
				continue
			}
			visited[key] = true

			if next.total > base+epsilon {
				return next, []Move{t}, nil
			}
			if level >= c.opts.Depth || math.Abs(next.total-base) > epsilon {
				continue
			}
			if t.Covered {
				path[pair] = true
			}
			found, moves, err := c.dfs(ctx, next, level+1, base, scan, path, visited)
			if t.Covered {
				delete(path, pair)
			}
			if err != nil || found != nil {
				return found, append([]Move{t}, moves...), err
			}
		}
	}
	return nil, nil, nil
}

// scanOrder returns the order variables are visited in this iteration.
func (c *climber) scanOrder(n int) []int {
	if c.opts.ScanOrder != nil {
		return c.opts.ScanOrder
	}
	return c.rng.Perm(n)
}

func edgeOf(t Tuck) coveredEdge {
	return coveredEdge{x: min(t.X, t.Y), y: max(t.X, t.Y)}
}
