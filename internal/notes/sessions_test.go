package notes

import (
	"context"
	"testing"
	"time"
)

func TestSessionsIsolateControllers(t *testing.T) {
	s := NewSessions(&fakeReplies{}, time.Minute, quietLogger())
	a := s.Get(s.NewID())
	b := s.Get(s.NewID())

	a.CreateNewNote()
	if len(a.Notes()) != 4 || len(b.Notes()) != 3 {
		t.Fatalf("sessions share state: a=%d b=%d", len(a.Notes()), len(b.Notes()))
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", s.Len())
	}
}

func TestSessionsGetReturnsSameController(t *testing.T) {
	s := NewSessions(&fakeReplies{}, time.Minute, quietLogger())
	id := s.NewID()
	if s.Get(id) != s.Get(id) {
		t.Fatalf("Get should return the same controller for one id")
	}
	if _, ok := s.Lookup("nope"); ok {
		t.Fatalf("Lookup must not create sessions")
	}
}

func TestSessionsExpireClosesIdle(t *testing.T) {
	replies := &fakeReplies{}
	s := NewSessions(replies, time.Minute, quietLogger())
	id := s.NewID()
	s.Get(id)

	if n := s.Expire(time.Now()); n != 0 {
		t.Fatalf("fresh session expired")
	}
	if n := s.Expire(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("expected 1 expired session, got %d", n)
	}
	if s.Len() != 0 {
		t.Fatalf("expired session still registered")
	}
	if len(replies.cancelled) != 1 || replies.cancelled[0] != id {
		t.Fatalf("expected pending replies cancelled for %s, got %v", id, replies.cancelled)
	}
}

func TestSessionsRunStopsWithContext(t *testing.T) {
	s := NewSessions(&fakeReplies{}, time.Minute, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestSessionsClose(t *testing.T) {
	replies := &fakeReplies{}
	s := NewSessions(replies, time.Minute, quietLogger())
	s.Get(s.NewID())
	s.Get(s.NewID())
	s.Close()
	if s.Len() != 0 || len(replies.cancelled) != 2 {
		t.Fatalf("Close should close every controller: len=%d cancelled=%v", s.Len(), replies.cancelled)
	}
}

func TestValidID(t *testing.T) {
	s := NewSessions(&fakeReplies{}, time.Minute, quietLogger())
	if !ValidID(s.NewID()) {
		t.Fatalf("NewID should be valid")
	}
	for _, bad := range []string{"", "abc", "../etc"} {
		if ValidID(bad) {
			t.Fatalf("ValidID(%q) should be false", bad)
		}
	}
}
