// Package agent implements the generation orchestrator: the loop that
// renders prompts from conversation history, calls the model, extracts and
// executes tool calls, and feeds results back until the model produces a
// final answer.
//
// One Agent owns one conversation. The store behind it is mutated only by
// the goroutine driving the agent's generation calls; the model client may
// be shared across many agents.
package agent

import (
	"github.com/gialup03/luup-agent/contextmgr"
	"github.com/gialup03/luup-agent/errors"
	"github.com/gialup03/luup-agent/llm"
	"github.com/gialup03/luup-agent/session"
	"github.com/gialup03/luup-agent/tools"
	"github.com/gialup03/luup-agent/tools/builtin"
)

const (
	defaultTemperature   = 0.7
	defaultMaxTokens     = 512
	defaultMaxToolRounds = 5
	defaultThreshold     = 0.75
)

// Config configures a new Agent. Model is the only required field.
type Config struct {
	Model        llm.Client
	SystemPrompt string

	// Sampling defaults for every generation round. Zero values mean
	// temperature 0.7 and 512 tokens.
	Temperature float64
	MaxTokens   int

	// MaxToolRounds bounds the tool-call/re-generation loop for one
	// external call. Defaults to 5.
	MaxToolRounds int

	// Budget enables history summarization when MaxTokens is positive.
	Budget contextmgr.Budget

	// DisableTools turns off tool catalogs and extraction entirely.
	DisableTools bool

	// DisableHistory makes the agent stateless: prompts carry only the
	// system prompt and the current input, and nothing is recorded.
	DisableHistory bool

	// DisableBuiltins skips auto-registration of the todo and notes
	// tools. They are registered in-memory by default unless a storage
	// path is given below.
	DisableBuiltins  bool
	TodoStoragePath  string
	NotesStoragePath string

	// Diagnostics, when set, observes recovered mid-pipeline conditions
	// that do not abort generation, such as a failed summarization pass.
	Diagnostics func(error)
}

// Agent drives the generation loop for one conversation.
type Agent struct {
	cfg      Config
	store    *session.Store
	registry *tools.Registry
	monitor  *contextmgr.Monitor
}

// New creates an agent. Configuration problems are reported immediately;
// nothing is mutated on failure.
func New(cfg Config) (*Agent, error) {
	if cfg.Model == nil {
		return nil, errors.New("agent config requires a model client")
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, errors.New("temperature %v out of range [0, 2]", cfg.Temperature)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = defaultMaxToolRounds
	}
	if cfg.Budget.MaxTokens > 0 && cfg.Budget.ThresholdFraction == 0 {
		cfg.Budget.ThresholdFraction = defaultThreshold
	}
	if cfg.Budget.ThresholdFraction < 0 || cfg.Budget.ThresholdFraction > 1 {
		return nil, errors.New("budget threshold fraction %v out of range (0, 1]", cfg.Budget.ThresholdFraction)
	}

	a := &Agent{
		cfg:      cfg,
		store:    session.NewStore(cfg.SystemPrompt),
		registry: tools.NewRegistry(),
	}
	a.monitor = contextmgr.NewMonitor(a.store, cfg.Model, cfg.Budget)

	if !cfg.DisableTools && !cfg.DisableBuiltins {
		if err := builtin.RegisterTodo(a.registry, cfg.TodoStoragePath); err != nil {
			return nil, err
		}
		if err := builtin.RegisterNotes(a.registry, cfg.NotesStoragePath); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// RegisterTool adds or replaces a tool available to the model.
func (a *Agent) RegisterTool(spec tools.Spec, invoke tools.Callback) error {
	return a.registry.Register(spec, invoke)
}

// Registry exposes the agent's tool registry.
func (a *Agent) Registry() *tools.Registry {
	return a.registry
}

// Monitor exposes the context monitor so callers can trigger or inspect
// summarization outside the generation loop.
func (a *Agent) Monitor() *contextmgr.Monitor {
	return a.monitor
}

// AddMessage appends a message to the conversation history without
// triggering generation.
func (a *Agent) AddMessage(role, content string) error {
	switch role {
	case session.RoleSystem, session.RoleUser, session.RoleAssistant:
	default:
		return errors.New("invalid message role %q", role)
	}
	a.store.Append(role, content)
	return nil
}

// History returns a copy of the conversation so far.
func (a *Agent) History() []session.Message {
	return a.store.Messages()
}

// HistoryJSON exports the conversation as an ordered JSON array of
// role/content objects.
func (a *Agent) HistoryJSON() (string, error) {
	return a.store.HistoryJSON()
}

// ClearHistory drops the conversation, keeping only the configured system
// prompt.
func (a *Agent) ClearHistory() {
	a.store.Clear()
}

// SaveSession persists the conversation under the given name; see
// session.Load for resuming.
func (a *Agent) SaveSession(name string) error {
	return a.store.Save(name)
}

func (a *Agent) toolsEnabled() bool {
	return !a.cfg.DisableTools && a.registry.Len() > 0
}

func (a *Agent) diagnose(err error) {
	if a.cfg.Diagnostics != nil && err != nil {
		a.cfg.Diagnostics(err)
	}
}
