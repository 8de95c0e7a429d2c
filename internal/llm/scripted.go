package llm

import (
	"context"
	"sync"
)

// Reply is one canned outcome for a Scripted provider.
type Reply struct {
	Content string
	Usage   Usage
	Err     error
}

// Scripted replays canned replies in order and records each request. Once
// the script runs out every call fails as unavailable, which lets a
// classifier chain fall through to its next member.
type Scripted struct {
	mu      sync.Mutex
	script  []Reply
	prompts []Request
}

func NewScripted(replies ...Reply) *Scripted {
	return &Scripted{script: replies}
}

func (s *Scripted) Generate(_ context.Context, req Request) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, req)
	if len(s.script) == 0 {
		return nil, &Error{Kind: KindUnavailable}
	}
	r := s.script[0]
	s.script = s.script[1:]
	if r.Err != nil {
		return nil, r.Err
	}
	return finish(req, []byte(r.Content), false, "scripted", r.Usage)
}

func (s *Scripted) ModelID() string { return "scripted" }

// Requests returns a copy of every request seen so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.prompts...)
}

func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}
