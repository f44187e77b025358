// Package contextmgr watches a conversation's estimated token usage
// against a budget and compacts old history into a summary when the
// budget fills.
package contextmgr

import (
	"context"
	"strings"

	"github.com/gialup03/luup-agent/errors"
	"github.com/gialup03/luup-agent/llm"
	"github.com/gialup03/luup-agent/session"
)

// summarizeFraction is the share of non-system messages, oldest first,
// replaced by each summarization pass.
const summarizeFraction = 0.6

// Sampling for the nested summary call: deterministic-ish and bounded.
const (
	summaryTemperature = 0.3
	summaryMaxTokens   = 256
)

const summaryInstruction = "Summarize the following conversation concisely. " +
	"Preserve facts, decisions, names, and unresolved tasks. " +
	"Reply with the summary only.\n\n"

// Budget is the context capacity threshold. Immutable after agent
// creation. A zero MaxTokens disables summarization.
type Budget struct {
	MaxTokens         int
	ThresholdFraction float64
}

// EstimateTokens cheaply approximates the token count of text as
// length/4. It is not a tokenizer; only monotonicity in input length is
// guaranteed.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Monitor estimates a store's token usage and performs summarization. It
// holds references to the store and the model but owns no data of its own.
type Monitor struct {
	store  *session.Store
	model  llm.Client
	budget Budget
}

func NewMonitor(store *session.Store, model llm.Client, budget Budget) *Monitor {
	return &Monitor{store: store, model: model, budget: budget}
}

// Usage returns the estimated token count of the whole store.
func (m *Monitor) Usage() int {
	total := 0
	for _, msg := range m.store.Messages() {
		total += EstimateTokens(msg.Content)
	}
	return total
}

// ShouldSummarize reports whether estimated usage has reached the budget
// threshold.
func (m *Monitor) ShouldSummarize() bool {
	if m.budget.MaxTokens <= 0 {
		return false
	}
	limit := float64(m.budget.MaxTokens) * m.budget.ThresholdFraction
	return float64(m.Usage()) >= limit
}

// Summarize replaces the oldest 60% of non-system messages with a single
// synthetic system message produced by a bounded, low-temperature nested
// model call. No-ops when fewer than 2 messages qualify. The rewrite is
// synchronous; generation rounds started afterwards observe the compacted
// store.
func (m *Monitor) Summarize(ctx context.Context) error {
	msgs := m.store.Messages()
	start := 0
	if len(msgs) > 0 && msgs[0].Role == session.RoleSystem {
		start = 1
	}
	n := int(float64(len(msgs)-start) * summarizeFraction)
	if n < 2 {
		return nil
	}

	var transcript strings.Builder
	for _, msg := range msgs[start : start+n] {
		transcript.WriteString(msg.Role)
		transcript.WriteString(": ")
		transcript.WriteString(msg.Content)
		transcript.WriteString("\n")
	}

	summary, err := m.model.Generate(ctx, summaryInstruction+transcript.String(), summaryTemperature, summaryMaxTokens)
	if err != nil {
		return errors.Wrapf(err, "summarization call failed")
	}
	m.store.CompactPrefix(n, strings.TrimSpace(summary))
	return nil
}
