// Package llmtest provides a deterministic llm.Client for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/llm"
)

// Call records one request seen by Scripted.
type Call struct {
	Mode    llm.Mode
	System  string
	User    string
	Request llm.ChatRequest
}

// Scripted answers each mode from a queue, then from a per-mode default.
// A call with neither scripted answer nor default fails the call.
type Scripted struct {
	mu       sync.Mutex
	queues   map[llm.Mode][]string
	defaults map[llm.Mode]string
	errs     map[llm.Mode]error
	calls    []Call
}

// New returns an empty Scripted client.
func New() *Scripted {
	return &Scripted{
		queues:   make(map[llm.Mode][]string),
		defaults: make(map[llm.Mode]string),
		errs:     make(map[llm.Mode]error),
	}
}

// Push queues answers for mode, consumed in order.
func (s *Scripted) Push(mode llm.Mode, answers ...string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[mode] = append(s.queues[mode], answers...)
	return s
}

// Default sets the answer returned once the queue for mode is drained.
func (s *Scripted) Default(mode llm.Mode, answer string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[mode] = answer
	return s
}

// Fail makes every call in mode return err.
func (s *Scripted) Fail(mode llm.Mode, err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[mode] = err
	return s
}

// Chat implements llm.Client. Calls without a mode in ctx count as NORMAL.
func (s *Scripted) Chat(ctx context.Context, req llm.ChatRequest) (string, error) {
	mode, ok := llm.ModeFrom(ctx)
	if !ok {
		mode = llm.ModeNormal
	}

	c := Call{Mode: mode, Request: req}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			c.System = m.Content
		case "user":
			c.User = m.Content
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)

	if err := s.errs[mode]; err != nil {
		return "", err
	}
	if q := s.queues[mode]; len(q) > 0 {
		s.queues[mode] = q[1:]
		return q[0], nil
	}
	if d, ok := s.defaults[mode]; ok {
		return d, nil
	}
	return "", fmt.Errorf("llmtest: no scripted answer for mode %s (user=%q)", mode, c.User)
}

// Calls returns every recorded call in order.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsFor returns the recorded calls of one mode.
func (s *Scripted) CallsFor(mode llm.Mode) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if c.Mode == mode {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many calls were made in mode.
func (s *Scripted) Count(mode llm.Mode) int {
	return len(s.CallsFor(mode))
}
