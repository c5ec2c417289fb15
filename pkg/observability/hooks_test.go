package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnLoadStart(ctx, "diamond.toml")
	p.OnLoadComplete(ctx, "diamond.toml", 4, time.Second, nil)
	p.OnRenderStart(ctx, []string{"svg"})
	p.OnRenderComplete(ctx, []string{"svg"}, time.Second, nil)

	// Search hooks
	s := NoopSearchHooks{}
	s.OnSearchStart(ctx, 4, 3)
	s.OnPhase(ctx, 0, PhaseImproving)
	s.OnImprovement(ctx, 0, MoveTuck, -4)
	s.OnRestartComplete(ctx, 0, -4, 2, time.Millisecond)
	s.OnSearchComplete(ctx, -4, 0, false, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "score")
	c.OnCacheMiss(ctx, "test")
	c.OnCacheSet(ctx, "score", 16)
	c.OnCacheEvict(ctx, "score")
}

func TestOTelHooksDoNotPanic(t *testing.T) {
	// Without a configured provider the global meter is a no-op.
	ctx := context.Background()

	s := NewOTelSearchHooks()
	s.OnSearchStart(ctx, 10, 4)
	s.OnImprovement(ctx, 1, MoveSequence, -12)
	s.OnRestartComplete(ctx, 1, -10, 5, time.Millisecond)
	s.OnSearchComplete(ctx, -10, 3, true, time.Second, errors.New("boom"))

	c := NewOTelCacheHooks()
	c.OnCacheHit(ctx, "score")
	c.OnCacheMiss(ctx, "score")
	c.OnCacheSet(ctx, "score", 8)
	c.OnCacheEvict(ctx, "score")
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Search().(NoopSearchHooks); !ok {
		t.Error("Search() should return NoopSearchHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	// Set custom hooks
	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customSearch := &testSearchHooks{}
	SetSearchHooks(customSearch)
	if Search() != customSearch {
		t.Error("SetSearchHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Search().(NoopSearchHooks); !ok {
		t.Error("Reset() should restore NoopSearchHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testSearchHooks{}
	SetSearchHooks(custom)

	// Setting nil should be ignored
	SetSearchHooks(nil)

	if Search() != custom {
		t.Error("SetSearchHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testPipelineHooks struct{ NoopPipelineHooks }
type testSearchHooks struct{ NoopSearchHooks }
type testCacheHooks struct{ NoopCacheHooks }
