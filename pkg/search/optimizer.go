package search

import (
	"context"
	"math"
	"slices"
	"sync/atomic"

	"github.com/matzehuels/causalorder/pkg/cache"
	"github.com/matzehuels/causalorder/pkg/errors"
	"github.com/matzehuels/causalorder/pkg/knowledge"
	"github.com/matzehuels/causalorder/pkg/score"
)

// optimizer chooses the parent set of one variable among its predecessors.
//
// With a scorer it runs score-based grow-shrink. With only an oracle it runs
// test-based grow-shrink and scores a set as minus its size, so the search
// maximizes sparsity. With both, the oracle picks the set and the scorer
// scores it.
//
// Thread Safety:
//
//	optimizer is safe for concurrent use. It holds no per-call state; the
//	failure counter is atomic and the cache is concurrency safe.
type optimizer struct {
	scorer     score.LocalScorer
	oracle     score.IndependenceOracle
	know       *knowledge.Knowledge
	cache      *cache.LocalCache
	maxParents int

	failures atomic.Int64
}

// forbiddenFunc reports whether x may not be a parent of v.
type forbiddenFunc func(x, v int) bool

// best returns the chosen parents of v (sorted ascending) and their local
// score. preds are the variables before v in the order.
func (o *optimizer) best(ctx context.Context, v int, preds []int) ([]int, float64) {
	return o.choose(ctx, v, preds, o.know.IsForbidden)
}

// bestAllowing is best with the single edge allowed lifted from the
// forbidden set.
func (o *optimizer) bestAllowing(ctx context.Context, v int, preds []int, allowed knowledge.Edge) ([]int, float64) {
	return o.choose(ctx, v, preds, func(x, y int) bool {
		if x == allowed.From && y == allowed.To {
			return false
		}
		return o.know.IsForbidden(x, y)
	})
}

func (o *optimizer) choose(ctx context.Context, v int, preds []int, forbidden forbiddenFunc) ([]int, float64) {
	var forced, cands []int
	for _, x := range preds {
		switch {
		case o.know.IsRequired(x, v):
			forced = append(forced, x)
		case !forbidden(x, v):
			cands = append(cands, x)
		}
	}
	slices.Sort(forced)
	slices.Sort(cands)

	if o.scorer == nil {
		set := o.growShrinkTests(ctx, v, forced, cands)
		return set, -float64(len(set))
	}
	if o.oracle != nil {
		set := o.growShrinkTests(ctx, v, forced, cands)
		return set, o.score(ctx, v, set)
	}
	if len(cands) <= 1 {
		return o.exhaustive(ctx, v, forced, cands)
	}
	return o.growShrink(ctx, v, forced, cands)
}

// exhaustive compares the forced set with and without the one candidate.
func (o *optimizer) exhaustive(ctx context.Context, v int, forced, cands []int) ([]int, float64) {
	set := slices.Clone(forced)
	cur := o.score(ctx, v, set)
	if len(cands) == 0 || o.full(set) {
		return set, cur
	}
	with := insert(set, cands[0])
	if s := o.score(ctx, v, with); s > cur+epsilon {
		return with, s
	}
	return set, cur
}

func (o *optimizer) growShrink(ctx context.Context, v int, forced, cands []int) ([]int, float64) {
	set := slices.Clone(forced)
	cur, release := o.pin(ctx, v, set)
	defer func() { release() }()

	// Grow: add the candidate with the largest strict gain.
	for !o.full(set) {
		bestX, bestS := -1, cur+epsilon
		for _, x := range cands {
			if contains(set, x) {
				continue
			}
			if s := o.score(ctx, v, insert(set, x)); s > bestS {
				bestX, bestS = x, s
			}
		}
		if bestX < 0 {
			break
		}
		release()
		set = insert(set, bestX)
		cur, release = o.pin(ctx, v, set)
	}

	// Shrink: drop the member whose removal scores best, as long as the
	// score does not get worse.
	for {
		bestX, bestS := -1, math.Inf(-1)
		for _, x := range set {
			if contains(forced, x) {
				continue
			}
			if s := o.score(ctx, v, remove(set, x)); s > bestS {
				bestX, bestS = x, s
			}
		}
		if bestX < 0 || bestS+epsilon < cur {
			break
		}
		release()
		set = remove(set, bestX)
		cur, release = o.pin(ctx, v, set)
	}
	return set, cur
}

// growShrinkTests adds every candidate that is dependent on v given the
// current set, then removes every member that is independent of v given
// the rest. A failed test never changes the set.
func (o *optimizer) growShrinkTests(ctx context.Context, v int, forced, cands []int) []int {
	set := slices.Clone(forced)

	for changed := true; changed; {
		changed = false
		for _, x := range cands {
			if o.full(set) {
				break
			}
			if contains(set, x) {
				continue
			}
			indep, err := o.test(ctx, x, v, set)
			if err == nil && !indep {
				set = insert(set, x)
				changed = true
			}
		}
	}

	for changed := true; changed; {
		changed = false
		for _, x := range slices.Clone(set) {
			if contains(forced, x) {
				continue
			}
			rest := remove(set, x)
			indep, err := o.test(ctx, x, v, rest)
			if err == nil && indep {
				set = rest
				changed = true
			}
		}
	}
	return set
}

func (o *optimizer) full(set []int) bool {
	return o.maxParents > 0 && len(set) >= o.maxParents
}

// score returns the local score of v given set. Failed evaluations score
// -Inf and are counted.
func (o *optimizer) score(ctx context.Context, v int, set []int) float64 {
	e, err := o.cache.Get(ctx, cache.ScoreKey(v, set), o.computeScore(v, set))
	if err != nil {
		o.failures.Add(1)
		return math.Inf(-1)
	}
	return e.Value
}

// pin is score that also keeps the entry resident until release is called.
func (o *optimizer) pin(ctx context.Context, v int, set []int) (float64, func()) {
	e, release, err := o.cache.Acquire(ctx, cache.ScoreKey(v, set), o.computeScore(v, set))
	if err != nil {
		o.failures.Add(1)
		return math.Inf(-1), release
	}
	return e.Value, release
}

func (o *optimizer) computeScore(v int, set []int) cache.ComputeFunc {
	return func() (cache.Entry, error) {
		s, err := o.scorer.LocalScore(v, set)
		if err != nil {
			return cache.Entry{}, errors.Wrap(errors.ErrCodeEvaluation, err, "score %d | %v", v, set)
		}
		if math.IsNaN(s) {
			return cache.Entry{}, errors.New(errors.ErrCodeEvaluation, "score %d | %v is NaN", v, set)
		}
		return cache.Entry{Value: s}, nil
	}
}

func (o *optimizer) test(ctx context.Context, x, v int, set []int) (bool, error) {
	e, err := o.cache.Get(ctx, cache.TestKey(x, v, set), func() (cache.Entry, error) {
		indep, p, err := o.oracle.Independent(x, v, set)
		if err != nil {
			return cache.Entry{}, errors.Wrap(errors.ErrCodeEvaluation, err, "test %d _||_ %d | %v", x, v, set)
		}
		return cache.Entry{Value: p, Independent: indep}, nil
	})
	if err != nil {
		o.failures.Add(1)
		return false, err
	}
	return e.Independent, nil
}

// insert returns a new sorted slice with x added.
func insert(set []int, x int) []int {
	i, _ := slices.BinarySearch(set, x)
	out := make([]int, 0, len(set)+1)
	out = append(out, set[:i]...)
	out = append(out, x)
	return append(out, set[i:]...)
}

// remove returns a new slice without x.
func remove(set []int, x int) []int {
	out := make([]int, 0, len(set))
	for _, y := range set {
		if y != x {
			out = append(out, y)
		}
	}
	return out
}

func contains(set []int, x int) bool {
	_, ok := slices.BinarySearch(set, x)
	return ok
}
