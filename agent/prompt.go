package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gialup03/luup-agent/session"
)

// ChatML turn delimiters.
const (
	turnStart = "<|im_start|>"
	turnEnd   = "<|im_end|>\n"
)

// toolInstructions is the fixed block describing the textual protocol for
// requesting a tool call. It follows the tool catalog in the prompt.
const toolInstructions = `To call a tool, respond with a single JSON object:
{"name": "<tool_name>", "parameters": { ... }}
To call several tools in one turn, respond with:
{"tool_calls": [{"name": "<tool_name>", "parameters": { ... }}, ...]}
Tool results will be provided in the next turn. Respond with plain text when no tool is needed.`

// buildPrompt renders the conversation plus the round's pending input
// into a single model prompt. The tool catalog, when tools are enabled
// and registered, sits immediately after the system turn and before the
// conversation.
func (a *Agent) buildPrompt(input string) string {
	var sb strings.Builder

	if a.cfg.DisableHistory {
		if a.cfg.SystemPrompt != "" {
			writeTurn(&sb, session.RoleSystem, a.cfg.SystemPrompt)
		}
		a.writeToolCatalog(&sb)
	} else {
		msgs := a.store.Messages()
		rest := msgs
		if len(msgs) > 0 && msgs[0].Role == session.RoleSystem {
			writeTurn(&sb, session.RoleSystem, msgs[0].Content)
			rest = msgs[1:]
		}
		a.writeToolCatalog(&sb)
		for _, msg := range rest {
			writeTurn(&sb, msg.Role, msg.Content)
		}
	}

	writeTurn(&sb, session.RoleUser, input)
	sb.WriteString(turnStart)
	sb.WriteString(session.RoleAssistant)
	sb.WriteString("\n")
	return sb.String()
}

func (a *Agent) writeToolCatalog(sb *strings.Builder) {
	if !a.toolsEnabled() {
		return
	}
	var catalog strings.Builder
	catalog.WriteString("Available tools:\n")
	for _, spec := range a.registry.Specs() {
		entry, err := json.Marshal(spec)
		if err != nil {
			continue
		}
		catalog.Write(entry)
		catalog.WriteString("\n")
	}
	catalog.WriteString("\n")
	catalog.WriteString(toolInstructions)
	writeTurn(sb, session.RoleSystem, catalog.String())
}

func writeTurn(sb *strings.Builder, role, content string) {
	sb.WriteString(turnStart)
	sb.WriteString(role)
	sb.WriteString("\n")
	sb.WriteString(content)
	sb.WriteString(turnEnd)
}

// formatToolResult renders one invocation result for re-injection into
// the conversation.
func formatToolResult(name, result string) string {
	return fmt.Sprintf("[tool %s result] %s", name, result)
}
