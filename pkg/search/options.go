package search

import (
	"fmt"
	"runtime"
	"time"

	"github.com/matzehuels/causalorder/pkg/dag"
	"github.com/matzehuels/causalorder/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultDepth is the maximum length of a tuck sequence explored when no
	// single move improves the score.
	DefaultDepth = 3

	// DefaultUncoveredDepth allows uncovered tucks at the first DFS level only.
	DefaultUncoveredDepth = 1

	// DefaultNonSingularDepth allows non-singular tucks at the first DFS level only.
	DefaultNonSingularDepth = 1

	// DefaultNumStarts is the number of restarts.
	DefaultNumStarts = 1

	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = uint64(42)
)

// epsilon is the margin a score must beat to count as an improvement, and
// the tolerance for two scores to count as equal.
const epsilon = 1e-9

// Mode selects how the Improving phase picks a move.
type Mode int

const (
	// BestImprovement evaluates every first-level move and applies the best
	// strictly improving one. Ties go to the move found first in scan order.
	BestImprovement Mode = iota
	// FirstImprovement applies the first strictly improving move in scan order.
	FirstImprovement
)

func (m Mode) String() string {
	switch m {
	case BestImprovement:
		return "best"
	case FirstImprovement:
		return "first"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "best" or "first".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "best", "best-improvement":
		return BestImprovement, nil
	case "first", "first-improvement":
		return FirstImprovement, nil
	default:
		return 0, errors.New(errors.ErrCodeInvalidConfig, "invalid mode: %q (must be one of: best, first)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Options configures a search. Use [DefaultOptions] as a starting point; the
// zero value is not valid (NumStarts must be at least one).
type Options struct {
	// Depth bounds the length of tuck sequences. 0 restricts the
	// neighbourhood to adjacent swaps.
	Depth int `json:"depth" toml:"depth"`
	// UncoveredDepth is the deepest DFS level at which uncovered tucks are
	// tried. 0 allows only covered tucks.
	UncoveredDepth int `json:"uncovered_depth" toml:"uncovered_depth"`
	// NonSingularDepth is the deepest DFS level at which non-singular tucks
	// are tried.
	NonSingularDepth int `json:"non_singular_depth" toml:"non_singular_depth"`
	// MaxParents bounds parent-set size. 0 or negative means unbounded.
	MaxParents int `json:"max_parents,omitempty" toml:"max_parents"`

	NumStarts    int    `json:"num_starts" toml:"num_starts"`
	UseDataOrder bool   `json:"use_data_order,omitempty" toml:"use_data_order"`
	Seed         uint64 `json:"seed" toml:"seed"`

	CacheScores   bool `json:"cache_scores" toml:"cache_scores"`
	CacheCapacity int  `json:"cache_capacity,omitempty" toml:"cache_capacity"`

	// Timeout bounds wall-clock time. 0 means no limit.
	Timeout time.Duration `json:"timeout,omitempty" toml:"-"`
	Mode    Mode          `json:"mode" toml:"mode"`
	// Workers is the number of restarts run in parallel. 0 means one per CPU.
	Workers int `json:"workers,omitempty" toml:"workers"`

	// ScanOrder fixes the variable order moves are generated in. When nil
	// each iteration shuffles it with the restart's seeded generator.
	ScanOrder []int `json:"scan_order,omitempty" toml:"scan_order"`
	// InitialGraph seeds the first restart with one of its topological
	// orders, unless an explicit initial order or UseDataOrder applies.
	InitialGraph *dag.Graph `json:"-" toml:"-"`
}

// DefaultOptions returns the recommended configuration.
func DefaultOptions() Options {
	return Options{
		Depth:            DefaultDepth,
		UncoveredDepth:   DefaultUncoveredDepth,
		NonSingularDepth: DefaultNonSingularDepth,
		NumStarts:        DefaultNumStarts,
		Seed:             DefaultSeed,
		CacheScores:      true,
		Mode:             BestImprovement,
	}
}

// ValidateAndSetDefaults checks the options against a problem with n
// variables and fills in Workers.
func (o *Options) ValidateAndSetDefaults(n int) error {
	switch {
	case o.Depth < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "depth must be >= 0, got %d", o.Depth)
	case o.UncoveredDepth < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "uncovered depth must be >= 0, got %d", o.UncoveredDepth)
	case o.NonSingularDepth < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "non-singular depth must be >= 0, got %d", o.NonSingularDepth)
	case o.NumStarts < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "num starts must be >= 1, got %d", o.NumStarts)
	case o.Timeout < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "timeout must be >= 0, got %s", o.Timeout)
	case o.Workers < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "workers must be >= 0, got %d", o.Workers)
	case o.Mode != BestImprovement && o.Mode != FirstImprovement:
		return errors.New(errors.ErrCodeInvalidConfig, "invalid mode %s", o.Mode)
	}

	if o.ScanOrder != nil {
		if err := checkPermutation(o.ScanOrder, n); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "scan order")
		}
	}
	if o.InitialGraph != nil {
		if o.InitialGraph.Len() != n {
			return errors.New(errors.ErrCodeInvalidConfig, "initial graph has %d variables, want %d", o.InitialGraph.Len(), n)
		}
		if err := o.InitialGraph.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "initial graph")
		}
	}

	if o.Workers == 0 {
		o.Workers = runtime.NumCPU()
	}
	o.Workers = min(o.Workers, o.NumStarts)
	return nil
}
