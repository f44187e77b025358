package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/gialup03/luup-agent/contextmgr"
	"github.com/gialup03/luup-agent/llm"
	"github.com/gialup03/luup-agent/session"
	"github.com/gialup03/luup-agent/tools"
)

func newTestAgent(t *testing.T, model llm.Client) *Agent {
	t.Helper()
	a, err := New(Config{
		Model:           model,
		SystemPrompt:    "You are a test agent.",
		DisableBuiltins: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func registerEcho(t *testing.T, a *Agent) {
	t.Helper()
	err := a.RegisterTool(
		tools.Spec{Name: "echo", Description: "Echoes its parameters"},
		func(ctx context.Context, paramsJSON string) (string, error) {
			return paramsJSON, nil
		},
	)
	if err != nil {
		t.Fatal(err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing model")
	}
	if _, err := New(Config{Model: &llm.MockClient{}, Temperature: 3}); err == nil {
		t.Error("expected error for out-of-range temperature")
	}
	if _, err := New(Config{
		Model:  &llm.MockClient{},
		Budget: contextmgr.Budget{MaxTokens: 100, ThresholdFraction: 1.5},
	}); err == nil {
		t.Error("expected error for out-of-range threshold")
	}
}

func TestNewRegistersBuiltins(t *testing.T) {
	a, err := New(Config{Model: &llm.MockClient{}})
	if err != nil {
		t.Fatal(err)
	}
	names := map[string]bool{}
	for _, spec := range a.Registry().Specs() {
		names[spec.Name] = true
	}
	if !names["todo"] || !names["notes"] {
		t.Errorf("expected todo and notes tools, got %v", names)
	}

	bare, err := New(Config{Model: &llm.MockClient{}, DisableBuiltins: true})
	if err != nil {
		t.Fatal(err)
	}
	if bare.Registry().Len() != 0 {
		t.Errorf("DisableBuiltins should leave the registry empty, got %d", bare.Registry().Len())
	}
}

func TestGeneratePlainAnswer(t *testing.T) {
	model := &llm.MockClient{Responses: []string{"The answer is 42."}}
	a := newTestAgent(t, model)

	out, err := a.Generate(context.Background(), "What is the answer?")
	if err != nil {
		t.Fatal(err)
	}
	if out != "The answer is 42." {
		t.Errorf("unexpected answer %q", out)
	}

	msgs := a.History()
	if len(msgs) != 3 {
		t.Fatalf("expected system+user+assistant, got %v", msgs)
	}
	if msgs[1].Role != session.RoleUser || msgs[1].Content != "What is the answer?" {
		t.Errorf("user input not recorded: %v", msgs[1])
	}
	if msgs[2].Role != session.RoleAssistant || msgs[2].Content != "The answer is 42." {
		t.Errorf("answer not recorded: %v", msgs[2])
	}
}

func TestGenerateToolRound(t *testing.T) {
	model := &llm.MockClient{Responses: []string{
		`Let me check. {"name": "echo", "parameters": {"value": 7}}`,
		"The echo returned 7.",
	}}
	a := newTestAgent(t, model)
	registerEcho(t, a)

	out, err := a.Generate(context.Background(), "echo 7 please")
	if err != nil {
		t.Fatal(err)
	}
	if out != "The echo returned 7." {
		t.Errorf("unexpected answer %q", out)
	}

	msgs := a.History()
	// system, user input, assistant tool request, user tool results,
	// assistant final answer.
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %v", msgs)
	}
	if msgs[2].Role != session.RoleAssistant || !strings.Contains(msgs[2].Content, `"echo"`) {
		t.Errorf("raw tool request not recorded: %v", msgs[2])
	}
	if msgs[3].Role != session.RoleUser || !strings.Contains(msgs[3].Content, `{"value": 7}`) {
		t.Errorf("tool results not recorded as user turn: %v", msgs[3])
	}

	// The second prompt must carry the tool results back to the model.
	if len(model.Prompts) != 2 || !strings.Contains(model.Prompts[1], "[tool echo result]") {
		t.Errorf("tool results not fed back, prompts %v", model.Prompts)
	}
}

func TestGenerateBatchToolCalls(t *testing.T) {
	model := &llm.MockClient{Responses: []string{
		`{"tool_calls": [{"name": "echo", "parameters": {"a": 1}}, {"name": "echo", "parameters": {"b": 2}}]}`,
		"done",
	}}
	a := newTestAgent(t, model)
	registerEcho(t, a)

	if _, err := a.Generate(context.Background(), "run both"); err != nil {
		t.Fatal(err)
	}

	// Both results, in request order, inside one user turn.
	msgs := a.History()
	results := msgs[3].Content
	first := strings.Index(results, `{"a": 1}`)
	second := strings.Index(results, `{"b": 2}`)
	if first < 0 || second < 0 || first > second {
		t.Errorf("results missing or out of order: %q", results)
	}
}

func TestGenerateUnknownToolFedBack(t *testing.T) {
	model := &llm.MockClient{Responses: []string{
		`{"name": "missing", "parameters": {}}`,
		"recovered",
	}}
	a := newTestAgent(t, model)
	registerEcho(t, a)

	out, err := a.Generate(context.Background(), "use a tool I don't have")
	if err != nil {
		t.Fatal(err)
	}
	if out != "recovered" {
		t.Errorf("unexpected answer %q", out)
	}
	if !strings.Contains(model.Prompts[1], "Tool not found") {
		t.Errorf("error payload should reach the model, prompt %q", model.Prompts[1])
	}
}

func TestGenerateRoundLimit(t *testing.T) {
	// The model never stops asking for tools.
	model := &llm.MockClient{Responses: []string{`{"name": "echo", "parameters": {}}`}}
	a, err := New(Config{
		Model:           model,
		MaxToolRounds:   3,
		DisableBuiltins: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	registerEcho(t, a)

	if _, err := a.Generate(context.Background(), "loop forever"); err == nil {
		t.Fatal("expected round-limit error")
	}
	if len(model.Prompts) != 3 {
		t.Errorf("expected exactly 3 rounds, got %d", len(model.Prompts))
	}
}

func TestGenerateModelFailureLeavesHistoryClean(t *testing.T) {
	model := &llm.MockClient{Err: context.DeadlineExceeded}
	a := newTestAgent(t, model)

	if _, err := a.Generate(context.Background(), "hello"); err == nil {
		t.Fatal("expected inference error")
	}
	if len(a.History()) != 1 {
		t.Errorf("failed round must not write history, got %v", a.History())
	}
}

func TestPromptLayout(t *testing.T) {
	model := &llm.MockClient{Responses: []string{"ok"}}
	a := newTestAgent(t, model)
	registerEcho(t, a)

	if _, err := a.Generate(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}

	prompt := model.Prompts[0]
	sysIdx := strings.Index(prompt, "You are a test agent.")
	catIdx := strings.Index(prompt, "Available tools:")
	userIdx := strings.Index(prompt, "<|im_start|>user\nhi")
	if sysIdx < 0 || catIdx < 0 || userIdx < 0 {
		t.Fatalf("prompt missing sections:\n%s", prompt)
	}
	if !(sysIdx < catIdx && catIdx < userIdx) {
		t.Errorf("catalog must sit between system turn and conversation:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "<|im_start|>assistant\n") {
		t.Errorf("prompt must end with the assistant cue:\n%s", prompt)
	}

	var spec struct {
		Name string `json:"name"`
	}
	line := prompt[catIdx:]
	start := strings.Index(line, "{")
	end := strings.Index(line, "}")
	if err := json.Unmarshal([]byte(line[start:end+1]), &spec); err != nil || spec.Name != "echo" {
		t.Errorf("catalog entry not valid JSON: %v", err)
	}
}

func TestDisableToolsSkipsCatalogAndExtraction(t *testing.T) {
	model := &llm.MockClient{Responses: []string{`{"name": "echo", "parameters": {}}`}}
	a, err := New(Config{
		Model:        model,
		DisableTools: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	out, err := a.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"echo"`) {
		t.Errorf("tool-shaped text should pass through verbatim, got %q", out)
	}
	if strings.Contains(model.Prompts[0], "Available tools:") {
		t.Errorf("catalog must be absent:\n%s", model.Prompts[0])
	}
}

func TestDisableHistoryStateless(t *testing.T) {
	model := &llm.MockClient{Responses: []string{"first", "second"}}
	a, err := New(Config{
		Model:           model,
		SystemPrompt:    "sys",
		DisableHistory:  true,
		DisableBuiltins: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := a.Generate(context.Background(), "one"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Generate(context.Background(), "two"); err != nil {
		t.Fatal(err)
	}

	if len(a.History()) != 1 {
		t.Errorf("stateless agent must not record turns, got %v", a.History())
	}
	if strings.Contains(model.Prompts[1], "one") {
		t.Errorf("second prompt must not carry the first turn:\n%s", model.Prompts[1])
	}
}

func TestGenerateStream(t *testing.T) {
	model := &llm.MockClient{Responses: []string{"streamed answer"}}
	a := newTestAgent(t, model)

	var tokens []string
	out, err := a.GenerateStream(context.Background(), "hi", func(token string) {
		tokens = append(tokens, token)
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "streamed answer" {
		t.Errorf("unexpected answer %q", out)
	}
	if strings.Join(tokens, "") != "streamed answer" {
		t.Errorf("unexpected tokens %v", tokens)
	}

	if _, err := a.GenerateStream(context.Background(), "hi", nil); err == nil {
		t.Error("nil sink must be rejected")
	}
}

func TestSummarizationRunsBeforeRound(t *testing.T) {
	model := &llm.MockClient{Responses: []string{"summary of earlier turns", "fresh answer"}}
	a, err := New(Config{
		Model:           model,
		SystemPrompt:    "sys",
		Budget:          contextmgr.Budget{MaxTokens: 100, ThresholdFraction: 0.5},
		DisableBuiltins: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		a.AddMessage(session.RoleUser, strings.Repeat("x", 50))
	}

	out, err := a.Generate(context.Background(), "next question")
	if err != nil {
		t.Fatal(err)
	}
	if out != "fresh answer" {
		t.Errorf("unexpected answer %q", out)
	}

	var summaryMsgs int
	for _, msg := range a.History() {
		if strings.HasPrefix(msg.Content, session.SummaryPrefix) {
			summaryMsgs++
		}
	}
	if summaryMsgs != 1 {
		t.Errorf("expected one summary message, history %v", a.History())
	}
	// First model call is the nested summary, second is the round itself.
	if len(model.Prompts) != 2 {
		t.Errorf("expected 2 model calls, got %d", len(model.Prompts))
	}
}

func TestAddMessageValidation(t *testing.T) {
	a := newTestAgent(t, &llm.MockClient{})
	if err := a.AddMessage("narrator", "x"); err == nil {
		t.Error("expected error for invalid role")
	}
	if err := a.AddMessage(session.RoleUser, "x"); err != nil {
		t.Errorf("valid role rejected: %v", err)
	}
}

func TestClearHistory(t *testing.T) {
	a := newTestAgent(t, &llm.MockClient{Responses: []string{"hi"}})
	if _, err := a.Generate(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	a.ClearHistory()

	msgs := a.History()
	if len(msgs) != 1 || msgs[0].Role != session.RoleSystem {
		t.Errorf("ClearHistory should keep only the system prompt, got %v", msgs)
	}
}
