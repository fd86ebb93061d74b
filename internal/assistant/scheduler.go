package assistant

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDelay is the simulated reply latency.
const DefaultDelay = time.Second

const queueSize = 64

var (
	ErrQueueFull = errors.New("assistant: reply queue full")
	ErrClosed    = errors.New("assistant: scheduler closed")
)

// DeliverFunc receives a reply once its delay has elapsed.
type DeliverFunc func(text string)

// Scheduler defers assistant replies per session key. Replies scheduled under
// one key are delivered in the order they were scheduled, each at its own due
// time. A key's pending replies can be cancelled as a unit.
type Scheduler struct {
	responder Responder
	delay     time.Duration
	log       *slog.Logger

	mu     sync.Mutex
	queues map[string]*replyQueue
	closed bool
	wg     sync.WaitGroup
}

type pendingReply struct {
	prompt  string
	due     time.Time
	deliver DeliverFunc
}

type replyQueue struct {
	ctx     context.Context
	cancel  context.CancelFunc
	jobs    chan pendingReply
	pending atomic.Int64
}

func NewScheduler(responder Responder, delay time.Duration, log *slog.Logger) *Scheduler {
	if delay < 0 {
		delay = 0
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		responder: responder,
		delay:     delay,
		log:       log,
		queues:    make(map[string]*replyQueue),
	}
}

// Delay returns the configured reply latency.
func (s *Scheduler) Delay() time.Duration {
	return s.delay
}

// Schedule queues one reply to prompt for key.
func (s *Scheduler) Schedule(key, prompt string, deliver DeliverFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	q := s.queues[key]
	if q == nil {
		ctx, cancel := context.WithCancel(context.Background())
		q = &replyQueue{
			ctx:    ctx,
			cancel: cancel,
			jobs:   make(chan pendingReply, queueSize),
		}
		s.queues[key] = q
		s.wg.Add(1)
		go s.run(key, q)
	}

	job := pendingReply{
		prompt:  prompt,
		due:     time.Now().Add(s.delay),
		deliver: deliver,
	}
	select {
	case q.jobs <- job:
		q.pending.Add(1)
		return nil
	default:
		return ErrQueueFull
	}
}

// Cancel drops every pending reply for key and returns how many were dropped.
func (s *Scheduler) Cancel(key string) int {
	s.mu.Lock()
	q := s.queues[key]
	delete(s.queues, key)
	s.mu.Unlock()

	if q == nil {
		return 0
	}
	q.cancel()
	n := int(q.pending.Load())
	if n > 0 {
		s.log.Debug("cancelled pending replies", "session", key, "count", n)
	}
	return n
}

// Pending reports how many replies for key have not been delivered yet.
func (s *Scheduler) Pending(key string) int {
	s.mu.Lock()
	q := s.queues[key]
	s.mu.Unlock()
	if q == nil {
		return 0
	}
	return int(q.pending.Load())
}

// Close cancels every queue and waits for the workers to exit.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for key, q := range s.queues {
		q.cancel()
		delete(s.queues, key)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) run(key string, q *replyQueue) {
	defer s.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if !sleepUntil(q.ctx, job.due) {
				return
			}
			text, err := s.responder.Reply(q.ctx, job.prompt)
			q.pending.Add(-1)
			if q.ctx.Err() != nil {
				return
			}
			if err != nil {
				s.log.Warn("assistant reply failed", "session", key, "error", err)
				continue
			}
			job.deliver(text)
		}
	}
}

func sleepUntil(ctx context.Context, due time.Time) bool {
	d := time.Until(due)
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
