package models

import (
	"context"
	"fmt"
	"sync"
)

// Scripted replays a fixed sequence of completions and records every prompt
// it saw. It honors stop sequences the way a real provider would, which
// makes it the standard double for loop tests and offline demos.
type Scripted struct {
	mu          sync.Mutex
	completions []string
	next        int
	prompts     []string

	// Err, when set, fails every call.
	Err error
}

// NewScripted builds a Scripted model from the completions in play order.
// Calls past the end of the script fail.
func NewScripted(completions ...string) *Scripted {
	return &Scripted{completions: completions}
}

// Complete implements Model.
func (s *Scripted) Complete(_ context.Context, prompt string, stop []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)
	if s.Err != nil {
		return "", s.Err
	}
	if s.next >= len(s.completions) {
		return "", fmt.Errorf("scripted model exhausted after %d completion(s)", len(s.completions))
	}
	out := s.completions[s.next]
	s.next++
	return truncateAtStop(out, stop), nil
}

// Calls reports how many times Complete ran.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// Prompts returns a snapshot of the prompts seen so far, in call order.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

var _ Model = (*Scripted)(nil)
