// Package testutil provides test utilities for the llm package.
// It includes mock implementations for testing model gateway interactions.
package testutil

import (
	"context"
	"sync"

	"github.com/mosaicsci/inquiry/llm"
)

// Step is one scripted gateway turn: either a response or an error.
type Step struct {
	Response *llm.Response
	Err      error
}

// MockGateway is a thread-safe scripted gateway for testing. It returns
// configured steps in sequence and records every request it receives,
// optionally routing by role so multi-agent pipelines can be scripted
// per agent.
//
// Usage:
//
//	// Fixed sequence
//	mock := &MockGateway{
//	    Steps: []Step{
//	        {Err: llm.NewError(llm.ErrRateLimited, errors.New("429"))},
//	        {Response: &llm.Response{Content: `{"result": "ok"}`}},
//	    },
//	}
//
//	// Per-role scripting
//	mock := &MockGateway{
//	    ByRole: map[string][]Step{
//	        "planner": {{Response: &llm.Response{Content: planJSON}}},
//	        "builder": {{Err: errors.New("down")}},
//	    },
//	}
type MockGateway struct {
	mu sync.Mutex

	// Steps is the default response script, consumed in order.
	Steps []Step

	// ByRole overrides Steps for requests with a matching role. Each
	// role's script is consumed independently; its last step repeats.
	ByRole map[string][]Step

	requests  []llm.Request
	stepIndex int
	roleIndex map[string]int
}

// Complete implements the pipeline's Gateway interface.
func (m *MockGateway) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.requests = append(m.requests, req)

	if script, ok := m.ByRole[req.Role]; ok && len(script) > 0 {
		if m.roleIndex == nil {
			m.roleIndex = make(map[string]int)
		}
		idx := m.roleIndex[req.Role]
		if idx >= len(script) {
			idx = len(script) - 1
		}
		m.roleIndex[req.Role]++
		return script[idx].Response, script[idx].Err
	}

	if m.stepIndex < len(m.Steps) {
		step := m.Steps[m.stepIndex]
		m.stepIndex++
		return step.Response, step.Err
	}

	return &llm.Response{Content: "", Model: "test-model"}, nil
}

// Requests returns a copy of every request received, in order.
func (m *MockGateway) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns the number of Complete calls.
func (m *MockGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// RoleCalls returns how many requests carried the given role.
func (m *MockGateway) RoleCalls(role string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, req := range m.requests {
		if req.Role == role {
			n++
		}
	}
	return n
}

// Reset clears recorded requests and script positions.
func (m *MockGateway) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.stepIndex = 0
	m.roleIndex = nil
}
