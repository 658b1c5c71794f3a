// Package testutil provides test doubles for the llm package.
package testutil

import (
	"context"
	"sync"

	"github.com/hk-410/hakyng-bots/llm"
)

// MockLLMClient is a thread-safe llm.Completer that replays canned
// responses and records every request.
//
//	mock := &MockLLMClient{
//	    Responses: []*llm.Response{{Content: `{"ok": true}`, Model: "test-model"}},
//	}
type MockLLMClient struct {
	mu            sync.Mutex
	Responses     []*llm.Response // returned in sequence
	Err           error           // takes precedence over Responses
	requests      []llm.Request
	responseIndex int
}

var _ llm.Completer = (*MockLLMClient)(nil)

// Complete returns the next configured response, or Err if set.
func (m *MockLLMClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.Err != nil {
		return nil, m.Err
	}

	if m.responseIndex < len(m.Responses) {
		resp := m.Responses[m.responseIndex]
		m.responseIndex++
		return resp, nil
	}

	return &llm.Response{Content: "", Model: "test-model"}, nil
}

// GetCallCount returns the number of Complete calls.
func (m *MockLLMClient) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or the zero Request.
func (m *MockLLMClient) LastRequest() llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return llm.Request{}
	}
	return m.requests[len(m.requests)-1]
}
