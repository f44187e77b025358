package agent

import (
	"context"
	"strings"

	"github.com/gialup03/luup-agent/errors"
	"github.com/gialup03/luup-agent/session"
	"github.com/gialup03/luup-agent/tools"
)

// Generate runs the agent loop for one user message and blocks until the
// model produces a final answer. The input and the answer are recorded in
// history; intermediate tool rounds are recorded as they happen.
func (a *Agent) Generate(ctx context.Context, userMessage string) (string, error) {
	return a.run(ctx, userMessage, nil)
}

// GenerateStream behaves like Generate but relays tokens to onToken as
// they arrive, including tokens of rounds that later turn out to be tool
// requests. The sink is called synchronously on the calling goroutine.
func (a *Agent) GenerateStream(ctx context.Context, userMessage string, onToken func(token string)) (string, error) {
	if onToken == nil {
		return "", errors.New("GenerateStream requires a token sink")
	}
	return a.run(ctx, userMessage, onToken)
}

func (a *Agent) run(ctx context.Context, input string, onToken func(string)) (string, error) {
	// Compact history before the round, never in the middle of one.
	if a.monitor.ShouldSummarize() {
		if err := a.monitor.Summarize(ctx); err != nil {
			a.diagnose(err)
		}
	}

	// The round's input rides along as a pending turn and is committed to
	// history only after its model call succeeds, so a backend failure
	// leaves the store without partial writes for that round.
	for round := 0; round < a.cfg.MaxToolRounds; round++ {
		prompt := a.buildPrompt(input)

		var text string
		var err error
		if onToken != nil {
			text, err = a.cfg.Model.GenerateStream(ctx, prompt, a.cfg.Temperature, a.cfg.MaxTokens, onToken)
		} else {
			text, err = a.cfg.Model.Generate(ctx, prompt, a.cfg.Temperature, a.cfg.MaxTokens)
		}
		if err != nil {
			return "", err
		}

		var calls []tools.Call
		if a.toolsEnabled() {
			calls = tools.ParseCalls(text)
		}

		if len(calls) == 0 {
			if !a.cfg.DisableHistory {
				a.store.Append(session.RoleUser, input)
				a.store.Append(session.RoleAssistant, text)
			}
			return text, nil
		}

		// Execute sequentially in request order so re-injected results are
		// deterministic. Every request yields exactly one result.
		results := make([]string, 0, len(calls))
		for _, call := range calls {
			results = append(results, formatToolResult(call.Name, a.registry.Execute(ctx, call.Name, call.Parameters)))
		}
		toolResults := strings.Join(results, "\n")

		if !a.cfg.DisableHistory {
			// Commit the round: its input, the raw request trace, and the
			// results feeding the next turn.
			a.store.Append(session.RoleUser, input)
			a.store.Append(session.RoleAssistant, text)
		}
		input = toolResults
	}

	return "", errors.New("tool-call loop exceeded %d rounds without a final response", a.cfg.MaxToolRounds)
}
