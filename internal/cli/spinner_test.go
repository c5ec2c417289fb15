package cli

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a builder shared with the spinner goroutine.
type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func quietSpinner(ctx context.Context, msg string) *Spinner {
	s := newSpinnerWithContext(ctx, msg)
	s.w = io.Discard
	return s
}

func TestSpinnerCancellation(t *testing.T) {
	t.Run("stop", func(t *testing.T) {
		s := quietSpinner(context.Background(), "working")
		s.Start()
		time.Sleep(50 * time.Millisecond)
		s.Stop()
		s.Stop()
	})

	t.Run("cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		s := quietSpinner(ctx, "working")
		s.Start()
		cancel()
		time.Sleep(50 * time.Millisecond)
		if !s.Cancelled() {
			t.Error("spinner not cancelled with its context")
		}
		s.Stop()
	})

	t.Run("timeout", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		s := quietSpinner(ctx, "working")
		s.Start()
		time.Sleep(60 * time.Millisecond)
		if !s.Cancelled() {
			t.Error("spinner not cancelled after timeout")
		}
		s.Stop()
	})
}

func TestSpinnerSetMessage(t *testing.T) {
	var buf syncBuffer
	s := newSpinner("Searching 4 variables")
	s.w = &buf
	s.Start()
	time.Sleep(120 * time.Millisecond)
	s.SetMessage("Searching orders: 1/2 restarts")
	time.Sleep(120 * time.Millisecond)
	s.Stop()

	if got := s.Message(); got != "Searching orders: 1/2 restarts" {
		t.Errorf("Message() = %q", got)
	}
	out := buf.String()
	for _, want := range []string{"Searching 4 variables", "Searching orders: 1/2 restarts"} {
		if !strings.Contains(out, want) {
			t.Errorf("spinner never drew %q", want)
		}
	}
	if !strings.HasSuffix(out, "\r") {
		t.Error("line not cleared on stop")
	}
}

func TestSpinnerHooks(t *testing.T) {
	s := quietSpinner(context.Background(), "start")
	h := newSpinnerHooks(s, 3)
	ctx := context.Background()

	h.OnRestartComplete(ctx, 1, -12.5, 4, time.Millisecond)
	if got := s.Message(); got != "Searching orders: 1/3 restarts, best score -12.5" {
		t.Errorf("after first restart: %q", got)
	}
	h.OnRestartComplete(ctx, 0, -20, 2, time.Millisecond)
	h.OnRestartComplete(ctx, 2, -3, 6, time.Millisecond)
	if got := s.Message(); got != "Searching orders: 3/3 restarts, best score -3" {
		t.Errorf("after all restarts: %q", got)
	}
}
