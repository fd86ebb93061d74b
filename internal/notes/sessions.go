package notes

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an idle session keeps its controller.
const DefaultSessionTTL = 30 * time.Minute

// Sessions maps session ids to controllers. Each browser session, terminal
// or MCP client gets its own isolated notes UI.
type Sessions struct {
	replies ReplyScheduler
	ttl     time.Duration
	log     *slog.Logger
	opts    []Option

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	ctrl     *Controller
	lastSeen time.Time
}

func NewSessions(replies ReplyScheduler, ttl time.Duration, log *slog.Logger, opts ...Option) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sessions{
		replies: replies,
		ttl:     ttl,
		log:     log,
		opts:    opts,
		entries: make(map[string]*sessionEntry),
	}
}

// NewID returns a fresh random session id.
func (s *Sessions) NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like a session id issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the controller for id, creating a seeded one on first use.
func (s *Sessions) Get(id string) *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[id]
	if e == nil {
		opts := append([]Option{WithLogger(s.log)}, s.opts...)
		e = &sessionEntry{ctrl: NewController(id, s.replies, opts...)}
		s.entries[id] = e
		s.log.Debug("session started", "session", id)
	}
	e.lastSeen = time.Now()
	return e.ctrl
}

// Lookup returns the controller for id without creating one.
func (s *Sessions) Lookup(id string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[id]
	if e == nil {
		return nil, false
	}
	e.lastSeen = time.Now()
	return e.ctrl, true
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Expire closes and forgets sessions idle since before now-ttl.
func (s *Sessions) Expire(now time.Time) int {
	s.mu.Lock()
	var expired []*Controller
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) > s.ttl {
			expired = append(expired, e.ctrl)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	for _, c := range expired {
		c.Close()
		s.log.Debug("session expired", "session", c.Key())
	}
	return len(expired)
}

// Run expires idle sessions until ctx is done.
func (s *Sessions) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Expire(now); n > 0 {
				s.log.Info("expired idle sessions", "count", n)
			}
		}
	}
}

// Close closes every controller.
func (s *Sessions) Close() {
	s.mu.Lock()
	entries := s.entries
	s.entries = make(map[string]*sessionEntry)
	s.mu.Unlock()

	for _, e := range entries {
		e.ctrl.Close()
	}
}
