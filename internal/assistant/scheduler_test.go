package assistant

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"
)

type echoResponder struct{}

func (echoResponder) Reply(ctx context.Context, prompt string) (string, error) {
	return "re: " + prompt, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type collector struct {
	mu  sync.Mutex
	got []string
	ch  chan struct{}
}

func newCollector() *collector {
	return &collector{ch: make(chan struct{}, 64)}
}

func (c *collector) deliver(text string) {
	c.mu.Lock()
	c.got = append(c.got, text)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func (c *collector) wait(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-c.ch:
		case <-deadline:
			t.Fatalf("timed out waiting for %d deliveries", n)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.got...)
}

func TestCannedReplyIsFromFixedSet(t *testing.T) {
	c := NewCannedWithRand(rand.New(rand.NewPCG(1, 2)))
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		r, err := c.Reply(context.Background(), "hello")
		if err != nil {
			t.Fatalf("Reply: %v", err)
		}
		if !IsCanned(r) {
			t.Fatalf("reply %q is not a canned reply", r)
		}
		seen[r] = true
	}
	if len(seen) != len(CannedReplies) {
		t.Fatalf("expected all %d replies to be picked over 200 draws, got %d", len(CannedReplies), len(seen))
	}
}

func TestCannedReplyHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewCanned().Reply(ctx, "x"); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestSchedulerDeliversAfterDelay(t *testing.T) {
	s := NewScheduler(echoResponder{}, 30*time.Millisecond, quietLogger())
	defer s.Close()

	c := newCollector()
	start := time.Now()
	if err := s.Schedule("a", "hello", c.deliver); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if s.Pending("a") != 1 {
		t.Fatalf("expected 1 pending reply, got %d", s.Pending("a"))
	}

	got := c.wait(t, 1)
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("reply delivered too early: %v", elapsed)
	}
	if len(got) != 1 || got[0] != "re: hello" {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}

func TestSchedulerKeepsOrderPerKey(t *testing.T) {
	s := NewScheduler(echoResponder{}, 10*time.Millisecond, quietLogger())
	defer s.Close()

	c := newCollector()
	for _, p := range []string{"1", "2", "3", "4", "5"} {
		if err := s.Schedule("a", p, c.deliver); err != nil {
			t.Fatalf("Schedule(%s): %v", p, err)
		}
	}

	got := c.wait(t, 5)
	want := []string{"re: 1", "re: 2", "re: 3", "re: 4", "re: 5"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delivery order = %v, want %v", got, want)
		}
	}
}

func TestSchedulerCancelDropsPending(t *testing.T) {
	s := NewScheduler(echoResponder{}, time.Hour, quietLogger())
	defer s.Close()

	c := newCollector()
	for i := 0; i < 3; i++ {
		if err := s.Schedule("a", "x", c.deliver); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
	}
	if err := s.Schedule("b", "y", c.deliver); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if n := s.Cancel("a"); n != 3 {
		t.Fatalf("Cancel returned %d, want 3", n)
	}
	if s.Pending("a") != 0 {
		t.Fatalf("expected no pending replies after cancel")
	}
	if s.Pending("b") != 1 {
		t.Fatalf("cancel of one key must not touch another")
	}
	if n := s.Cancel("missing"); n != 0 {
		t.Fatalf("Cancel on unknown key returned %d", n)
	}
}

func TestSchedulerQueueBound(t *testing.T) {
	s := NewScheduler(echoResponder{}, time.Hour, quietLogger())
	defer s.Close()

	var err error
	for i := 0; i < queueSize+2; i++ {
		err = s.Schedule("a", "x", func(string) {})
		if err != nil {
			break
		}
	}
	if err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestSchedulerClosed(t *testing.T) {
	s := NewScheduler(echoResponder{}, time.Hour, quietLogger())
	if err := s.Schedule("a", "x", func(string) {}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	s.Close()
	s.Close()
	if err := s.Schedule("a", "x", func(string) {}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
