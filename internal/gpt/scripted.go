package gpt

import (
	"context"
	"sync"
)

// Scripted is the non-network Client: it returns a fixed response (or error)
// and records every prompt it receives. Used in tests and behind the
// FAKE_GENERATION flag.
type Scripted struct {
	Response string
	Err      error

	mu      sync.Mutex
	prompts []string
}

func (s *Scripted) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	if s.Response == "" {
		return "scripted response", nil
	}
	return s.Response, nil
}

// Prompts returns a copy of every prompt seen so far.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}
