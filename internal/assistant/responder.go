package assistant

import (
	"context"
	"math/rand/v2"
	"sync"
)

// CannedReplies is the fixed set the demo assistant answers from.
var CannedReplies = []string{
	"I've analyzed your note. Would you like me to help you improve it?",
	"I can help you organize your thoughts into actionable tasks.",
	"Would you like me to summarize this note for you?",
	"I've detected some key points in your note. Would you like me to highlight them?",
}

// Responder produces the assistant's answer to a user message.
type Responder interface {
	Reply(ctx context.Context, prompt string) (string, error)
}

// Canned picks a reply uniformly at random from a fixed list and ignores the prompt.
type Canned struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	replies []string
}

func NewCanned() *Canned {
	return NewCannedWithRand(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewCannedWithRand is NewCanned with a caller-supplied source, for reproducible picks.
func NewCannedWithRand(rnd *rand.Rand) *Canned {
	return &Canned{
		rnd:     rnd,
		replies: append([]string(nil), CannedReplies...),
	}
}

func (c *Canned) Reply(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	i := c.rnd.IntN(len(c.replies))
	c.mu.Unlock()
	return c.replies[i], nil
}

// IsCanned reports whether s is one of the fixed replies.
func IsCanned(s string) bool {
	for _, r := range CannedReplies {
		if r == s {
			return true
		}
	}
	return false
}
