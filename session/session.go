// Package session maintains the conversation state for an agent: an
// append-ordered log of messages that is the single source of truth for
// dialogue history. A store is exclusively owned by its agent; no locking
// is done here.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gialup03/luup-agent/errors"
)

// Message roles. At most one system message exists per store and, by
// convention, it is pinned first.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SummaryPrefix marks the synthetic system message produced by history
// summarization.
const SummaryPrefix = "[Previous conversation summary]: "

type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Store is the conversation log. It is append-only except for
// CompactPrefix, the single privileged rewrite used by summarization.
type Store struct {
	systemPrompt string
	messages     []Message
}

// NewStore creates a store, seeded with a system message when systemPrompt
// is non-empty.
func NewStore(systemPrompt string) *Store {
	s := &Store{systemPrompt: systemPrompt}
	if systemPrompt != "" {
		s.messages = append(s.messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	return s
}

// Append adds a message to the end of the log.
func (s *Store) Append(role, content string) {
	s.messages = append(s.messages, Message{Role: role, Content: content})
}

// Messages returns a copy of the log in order.
func (s *Store) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	return len(s.messages)
}

// SystemPrompt returns the prompt the store was created with.
func (s *Store) SystemPrompt() string {
	return s.systemPrompt
}

// Clear drops all messages and re-seeds the system prompt, if any.
func (s *Store) Clear() {
	s.messages = s.messages[:0]
	if s.systemPrompt != "" {
		s.messages = append(s.messages, Message{Role: RoleSystem, Content: s.systemPrompt})
	}
}

// CompactPrefix replaces the oldest n non-system messages with one
// synthetic system message carrying the summary. The pinned system message
// and every message after the replaced prefix are left untouched. Callers
// other than the context monitor have no business invoking this.
func (s *Store) CompactPrefix(n int, summary string) {
	if n <= 0 {
		return
	}
	start := 0
	if len(s.messages) > 0 && s.messages[0].Role == RoleSystem {
		start = 1
	}
	if start+n > len(s.messages) {
		n = len(s.messages) - start
	}
	if n <= 0 {
		return
	}

	rewritten := make([]Message, 0, len(s.messages)-n+1)
	rewritten = append(rewritten, s.messages[:start]...)
	rewritten = append(rewritten, Message{Role: RoleSystem, Content: SummaryPrefix + summary})
	rewritten = append(rewritten, s.messages[start+n:]...)
	s.messages = rewritten
}

// HistoryJSON exports the log as an ordered JSON array of
// {"role": ..., "content": ...} objects. This is the only durable artifact
// the core produces.
func (s *Store) HistoryJSON() (string, error) {
	data, err := json.MarshalIndent(s.messages, "", "  ")
	if err != nil {
		return "", errors.Wrapf(err, "failed to serialize history")
	}
	return string(data), nil
}

// ImportJSON replays an exported history into the store, appending each
// message in order. The existing log is kept; call Clear first to replace
// it.
func (s *Store) ImportJSON(data []byte) error {
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return errors.Wrapf(err, "could not parse history JSON")
	}
	for _, m := range msgs {
		s.Append(m.Role, m.Content)
	}
	return nil
}

// Save writes the named session to .luup/sessions/<name>.json so a
// conversation can be resumed in a later process.
func (s *Store) Save(name string) error {
	path, err := sessionPath(name)
	if err != nil {
		return err
	}
	data, err := s.HistoryJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(data), 0644)
}

// Load reads a previously saved session. The system prompt is recovered
// from the first message when it carries the system role.
func Load(name string) (*Store, error) {
	path, err := sessionPath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read session file %s", path)
	}
	s := &Store{}
	if err := s.ImportJSON(data); err != nil {
		return nil, err
	}
	if len(s.messages) > 0 && s.messages[0].Role == RoleSystem {
		s.systemPrompt = s.messages[0].Content
	}
	return s, nil
}

func sessionPath(name string) (string, error) {
	dir := filepath.Join(".luup", "sessions")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "could not create session directory")
	}
	return filepath.Join(dir, name+".json"), nil
}
