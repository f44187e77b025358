// Package llm is the boundary to the text-generation backend. The agent
// core only ever sees the Client interface; which model produces the text,
// and where it runs, is a backend concern.
package llm

import (
	"context"
	"fmt"
)

// Client generates text from a fully rendered prompt. A single Client may
// be shared read-only across many agents; each call is independent.
type Client interface {
	// Generate blocks until the full completion is available.
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)

	// GenerateStream relays tokens to onToken as they arrive, on the
	// calling goroutine, and returns the accumulated text once the stream
	// ends. A slow sink stalls the stream; there is no internal buffering.
	GenerateStream(ctx context.Context, prompt string, temperature float64, maxTokens int, onToken func(token string)) (string, error)
}

// InferenceError reports a backend generation failure. It aborts the
// current round and is surfaced to the caller unchanged.
type InferenceError struct {
	Backend string
	Err     error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s inference failed: %v", e.Backend, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// MockClient is a scripted client for tests. Each call consumes the next
// response; the last response repeats once the script runs out. Prompts
// records every prompt received, in call order.
type MockClient struct {
	Responses []string
	Err       error
	Prompts   []string

	calls int
}

func (m *MockClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if m.Err != nil {
		return "", &InferenceError{Backend: "mock", Err: m.Err}
	}
	m.Prompts = append(m.Prompts, prompt)
	if len(m.Responses) == 0 {
		return "", nil
	}
	i := m.calls
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	m.calls++
	return m.Responses[i], nil
}

func (m *MockClient) GenerateStream(ctx context.Context, prompt string, temperature float64, maxTokens int, onToken func(string)) (string, error) {
	text, err := m.Generate(ctx, prompt, temperature, maxTokens)
	if err != nil {
		return "", err
	}
	if text != "" {
		onToken(text)
	}
	return text, nil
}
