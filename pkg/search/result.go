package search

import (
	"time"

	"github.com/matzehuels/causalorder/pkg/cache"
	"github.com/matzehuels/causalorder/pkg/knowledge"
)

// RestartResult summarizes one restart.
type RestartResult struct {
	Index int `json:"index"`
	// Score is the total score of the restart's final state. Skipped
	// restarts report zero.
	Score      float64       `json:"score"`
	Iterations int           `json:"iterations"`
	Trajectory []float64     `json:"trajectory,omitempty"` // total score after each iteration
	Elapsed    time.Duration `json:"elapsed"`
	// Completed reports that the restart reached a local optimum. False
	// means it was cancelled or never started.
	Completed bool `json:"completed"`
	Skipped   bool `json:"skipped,omitempty"`
}

// Result holds the diagnostics of a finished search.
type Result struct {
	RunID     string  `json:"run_id"`
	Order     []int   `json:"order"`
	Score     float64 `json:"score"`
	EdgeCount int     `json:"edge_count"`

	Restarts    []RestartResult `json:"restarts"`
	BestRestart int             `json:"best_restart"`

	// Failures counts collaborator evaluations that failed and were scored
	// as -Inf (or ignored, for independence tests).
	Failures int64 `json:"failures"`
	// Incomplete reports that at least one restart was cancelled before
	// reaching a local optimum.
	Incomplete bool          `json:"incomplete"`
	Elapsed    time.Duration `json:"elapsed"`
	Cache      cache.Stats   `json:"cache"`

	// Conflicts lists forbidden edges the search would otherwise have
	// chosen in the best order.
	Conflicts []knowledge.Edge `json:"conflicts,omitempty"`
}

// RestartScores returns the final score of every restart, by index.
func (r *Result) RestartScores() []float64 {
	out := make([]float64, len(r.Restarts))
	for i, rr := range r.Restarts {
		out[i] = rr.Score
	}
	return out
}

// Iterations returns the number of improving moves over all restarts.
func (r *Result) Iterations() int {
	n := 0
	for _, rr := range r.Restarts {
		n += rr.Iterations
	}
	return n
}
