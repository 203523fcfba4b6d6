package describe

import (
	"context"
	"sync"
	"time"
)

// MockGenerator implements Generator for unit tests and local development.
type MockGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	delay    time.Duration
	gate     chan struct{}
	requests []Request
}

// NewMockGenerator returns a generator that answers with response.
func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{response: response}
}

// SetResponse changes the text returned by later calls.
func (m *MockGenerator) SetResponse(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
}

// SetError makes later calls fail with err.
func (m *MockGenerator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDelay makes later calls wait before answering.
func (m *MockGenerator) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Hold blocks later calls until the returned release func is called.
func (m *MockGenerator) Hold() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gate = gate
	m.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Requests returns the requests received so far.
func (m *MockGenerator) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

func (m *MockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	response, err, delay, gate := m.response, m.err, m.delay, m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", &GenerationError{Model: "mock", cause: ctx.Err()}
		}
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", &GenerationError{Model: "mock", cause: ctx.Err()}
		}
	}
	if err != nil {
		return "", err
	}
	return response, nil
}

// Compile-time interface check
var _ Generator = (*MockGenerator)(nil)
