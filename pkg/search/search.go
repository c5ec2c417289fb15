package search

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalorder/pkg/cache"
	"github.com/matzehuels/causalorder/pkg/dag"
	"github.com/matzehuels/causalorder/pkg/dag/transform"
	"github.com/matzehuels/causalorder/pkg/errors"
	"github.com/matzehuels/causalorder/pkg/knowledge"
	"github.com/matzehuels/causalorder/pkg/score"
)

// Search is a permutation search over a fixed set of variables.
//
// A Search is built once with [New], run with [Search.BestOrder] and then
// queried with [Search.Graph], [Search.Result] and [Search.State]. Running
// it again replaces the previous result; the score cache is kept, so later
// runs are cheaper.
//
// Thread Safety:
//
//	BestOrder must not be called concurrently on the same Search. Query
//	methods are safe to call from any goroutine.
type Search struct {
	vars   []dag.Variable
	scorer score.LocalScorer
	oracle score.IndependenceOracle
	know   *knowledge.Knowledge
	cache  *cache.LocalCache
	logger *log.Logger
	opts   Options

	opt *optimizer

	mu     sync.RWMutex
	best   *State
	result *Result
}

// Option configures a [Search].
type Option func(*Search)

// WithScorer sets the local score the search maximizes.
func WithScorer(s score.LocalScorer) Option {
	return func(x *Search) { x.scorer = s }
}

// WithOracle sets the independence oracle used to choose parent sets.
func WithOracle(o score.IndependenceOracle) Option {
	return func(x *Search) { x.oracle = o }
}

// WithKnowledge sets background knowledge. Knowledge must not be modified
// after it is handed to a search.
func WithKnowledge(k *knowledge.Knowledge) Option {
	return func(x *Search) { x.know = k }
}

// WithCache shares an evaluation cache, for example one backed by a
// second-level store. The cache must only ever have seen evaluations of
// the same problem.
func WithCache(c *cache.LocalCache) Option {
	return func(x *Search) { x.cache = c }
}

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(x *Search) { x.logger = l }
}

// WithOptions sets search options. The default is [DefaultOptions].
func WithOptions(o Options) Option {
	return func(x *Search) { x.opts = o }
}

// New validates the configuration and returns a search. Configuration
// problems are reported here with code INVALID_CONFIG or
// KNOWLEDGE_CONFLICT; no evaluation happens before BestOrder.
func New(vars []dag.Variable, opts ...Option) (*Search, error) {
	s := &Search{
		vars: slices.Clone(vars),
		opts: DefaultOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.vars) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "no variables")
	}
	if s.scorer == nil && s.oracle == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "a scorer or an independence oracle is required")
	}
	seen := make(map[string]bool, len(s.vars))
	for _, v := range s.vars {
		if v.IsLatent() {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "latent variable %q cannot be searched over", v.Name)
		}
		if seen[v.Name] {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "duplicate variable %q", v.Name)
		}
		seen[v.Name] = true
	}
	if err := s.opts.ValidateAndSetDefaults(len(s.vars)); err != nil {
		return nil, err
	}
	if err := s.know.Validate(len(s.vars)); err != nil {
		return nil, err
	}

	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.cache == nil {
		s.cache = cache.NewLocalCache(
			cache.WithCapacity(s.opts.CacheCapacity),
			cache.WithDisabled(!s.opts.CacheScores),
		)
	}
	s.opt = &optimizer{
		scorer:     s.scorer,
		oracle:     s.oracle,
		know:       s.know,
		cache:      s.cache,
		maxParents: s.opts.MaxParents,
	}
	return s, nil
}

// Variables returns the searched variables.
func (s *Search) Variables() []dag.Variable { return slices.Clone(s.vars) }

// Options returns the validated options.
func (s *Search) Options() Options { return s.opts }

// Cache returns the evaluation cache.
func (s *Search) Cache() *cache.LocalCache { return s.cache }

// Result returns the diagnostics of the last search, or nil.
func (s *Search) Result() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// State returns the best state of the last search, or nil.
func (s *Search) State() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.best
}

// Graph returns the graph of the last search. With useOrientationRules it
// is the equivalence class of the best DAG under the background knowledge;
// otherwise it is the DAG itself.
//
// If the search had to leave out forbidden edges it would otherwise have
// chosen, or knowledge cannot be honored in the equivalence class, Graph
// returns the graph together with a KNOWLEDGE_CONFLICT error naming the
// edges. Graph never mutates the search, so repeated calls return equal
// graphs.
func (s *Search) Graph(useOrientationRules bool) (*dag.Graph, error) {
	s.mu.RLock()
	best, result := s.best, s.result
	s.mu.RUnlock()
	if best == nil {
		return nil, errors.New(errors.ErrCodeNoResult, "no completed search")
	}

	g, err := dag.FromParents(s.vars, best.ParentSets())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvariant, err, "best state")
	}

	var extractErr error
	if useOrientationRules {
		g, extractErr = transform.EquivalenceClass(g, s.know)
	}

	if len(result.Conflicts) > 0 {
		conflict := errors.New(errors.ErrCodeKnowledgeConflict, "forbidden edges omitted from the result: %s", s.formatEdges(result.Conflicts))
		if extractErr != nil {
			return g, errors.Wrap(errors.ErrCodeKnowledgeConflict, extractErr, "%s", conflict.Message)
		}
		return g, conflict
	}
	return g, extractErr
}

func (s *Search) formatEdges(edges []knowledge.Edge) string {
	parts := make([]string, len(edges))
	for i, e := range edges {
		parts[i] = s.vars[e.From].Name + " --> " + s.vars[e.To].Name
	}
	return strings.Join(parts, ", ")
}

// conflicts re-optimizes every variable of best with each explicitly
// forbidden edge into it lifted, and reports the edges that would be
// chosen.
func (s *Search) conflicts(ctx context.Context, best *State) []knowledge.Edge {
	var out []knowledge.Edge
	for _, e := range s.know.Forbidden() {
		if !best.order.Before(e.From, e.To) {
			continue
		}
		preds := best.order.Prefix(best.order.Index(e.To))
		parents, _ := s.opt.bestAllowing(ctx, e.To, preds, e)
		if contains(parents, e.From) {
			out = append(out, e)
		}
	}
	return out
}
