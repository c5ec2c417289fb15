// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about problem loading, search progress and
// score cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// [OTelSearchHooks] and [OTelCacheHooks] forward events to OpenTelemetry
// meters registered with the global provider.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSearchHooks(observability.NewOTelSearchHooks())
//	    observability.SetCacheHooks(observability.NewOTelCacheHooks())
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Search().OnPhase(ctx, restart, observability.PhaseImproving)
//	// ... climb to a local optimum ...
//	observability.Search().OnRestartComplete(ctx, restart, score, iterations, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// Phase is a state of the per-restart search state machine.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhaseImproving    Phase = "improving"
	PhaseLocalOptimum Phase = "local_optimum"
	PhaseRestarting   Phase = "restarting"
	PhaseDone         Phase = "done"
)

// MoveKind classifies an accepted improvement for metrics.
type MoveKind string

const (
	MoveSwap MoveKind = "swap"
	MoveTuck MoveKind = "tuck"
	// MoveSequence is a chain of tucks found by depth-first search.
	MoveSequence MoveKind = "sequence"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the load/search/render pipeline.
type PipelineHooks interface {
	// Load events
	OnLoadStart(ctx context.Context, source string)
	OnLoadComplete(ctx context.Context, source string, variables int, duration time.Duration, err error)

	// Render events
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// =============================================================================
// Search Hooks
// =============================================================================

// SearchHooks receives events from the order search.
type SearchHooks interface {
	// OnSearchStart records the start of a run over n variables.
	OnSearchStart(ctx context.Context, variables, starts int)

	// OnPhase records a state transition of one restart.
	OnPhase(ctx context.Context, restart int, phase Phase)

	// OnImprovement records an accepted move or move sequence.
	OnImprovement(ctx context.Context, restart int, kind MoveKind, score float64)

	// OnRestartComplete records a restart reaching its local optimum.
	OnRestartComplete(ctx context.Context, restart int, score float64, iterations int, duration time.Duration)

	// OnSearchComplete records the end of a run.
	OnSearchComplete(ctx context.Context, score float64, failures int64, incomplete bool, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)

	// OnCacheEvict records an LRU eviction.
	OnCacheEvict(ctx context.Context, keyType string)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLoadStart(context.Context, string)                                 {}
func (NoopPipelineHooks) OnLoadComplete(context.Context, string, int, time.Duration, error)   {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                             {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error)    {}

// NoopSearchHooks is a no-op implementation of SearchHooks.
type NoopSearchHooks struct{}

func (NoopSearchHooks) OnSearchStart(context.Context, int, int)                       {}
func (NoopSearchHooks) OnPhase(context.Context, int, Phase)                           {}
func (NoopSearchHooks) OnImprovement(context.Context, int, MoveKind, float64)         {}
func (NoopSearchHooks) OnRestartComplete(context.Context, int, float64, int, time.Duration) {}
func (NoopSearchHooks) OnSearchComplete(context.Context, float64, int64, bool, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}
func (NoopCacheHooks) OnCacheEvict(context.Context, string)    {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	searchHooks   SearchHooks   = NoopSearchHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetSearchHooks registers custom search hooks.
// This should be called once at application startup before any search runs.
func SetSearchHooks(h SearchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		searchHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Search returns the registered search hooks.
func Search() SearchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return searchHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	searchHooks = NoopSearchHooks{}
	cacheHooks = NoopCacheHooks{}
}
