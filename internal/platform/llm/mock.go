package llm

import (
	"context"
	"sync"
)

// Mock returns canned responses keyed by Request.Name and records every
// request. Used in development and tests.
type Mock struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []Request
}

func NewMock(responses map[string]string) *Mock {
	if responses == nil {
		responses = map[string]string{}
	}
	return &Mock{responses: responses, errs: map[string]error{}}
}

func (m *Mock) Name() string { return ProviderMock }

// Respond sets the response for name.
func (m *Mock) Respond(name, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[name] = response
}

// Fail makes requests for name fail with err.
func (m *Mock) Fail(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[name] = err
}

func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

func (m *Mock) Generate(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)

	if err, ok := m.errs[req.Name]; ok {
		return "", &Error{Provider: ProviderMock, Err: err}
	}
	resp, ok := m.responses[req.Name]
	if !ok || resp == "" {
		return "", &Error{Provider: ProviderMock, Err: ErrEmptyResponse}
	}
	return resp, nil
}
