package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/gialup03/luup-agent/errors"
	"github.com/gialup03/luup-agent/tools"
)

const notesParametersSchema = `{
  "type": "object",
  "properties": {
    "operation": {
      "type": "string",
      "enum": ["add", "list", "search", "delete"],
      "description": "Operation to perform"
    },
    "content": {
      "type": "string",
      "description": "Note content (required for 'add')"
    },
    "tags": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Optional tags for 'add'"
    },
    "query": {
      "type": "string",
      "description": "Search text (required for 'search')"
    },
    "id": {
      "type": "string",
      "description": "Note ID (required for 'delete')"
    }
  },
  "required": ["operation"]
}`

type note struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
	Created string   `json:"created"`
}

type notesStore struct {
	path  string
	notes []note
}

// RegisterNotes adds the notes tool to the registry. Notes get a random
// UUID on creation; search is a case-insensitive substring match over
// content and tags.
func RegisterNotes(r *tools.Registry, storagePath string) error {
	store := &notesStore{path: storagePath}
	if storagePath != "" {
		if err := store.load(); err != nil {
			return err
		}
	}
	spec := tools.Spec{
		Name:        "notes",
		Description: "Manage notes: add, list, search, or delete notes",
		Parameters:  json.RawMessage(notesParametersSchema),
	}
	return r.Register(spec, store.handle)
}

func (s *notesStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to read notes storage %q", s.path)
	}
	var file struct {
		Notes []note `json:"notes"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return errors.Wrapf(err, "invalid notes storage %q", s.path)
	}
	s.notes = file.Notes
	return nil
}

func (s *notesStore) save() error {
	if s.path == "" {
		return nil
	}
	file := struct {
		Notes []note `json:"notes"`
	}{Notes: s.notes}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0644)
}

func (s *notesStore) handle(ctx context.Context, paramsJSON string) (string, error) {
	var params struct {
		Operation string   `json:"operation"`
		Content   string   `json:"content"`
		Tags      []string `json:"tags"`
		Query     string   `json:"query"`
		ID        string   `json:"id"`
	}
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		return "", errors.Wrapf(err, "invalid notes parameters")
	}

	switch params.Operation {
	case "add":
		if params.Content == "" {
			return toolError("Content is required"), nil
		}
		n := note{
			ID:      uuid.NewString(),
			Content: params.Content,
			Tags:    params.Tags,
			Created: timestamp(),
		}
		s.notes = append(s.notes, n)
		if err := s.save(); err != nil {
			return "", err
		}
		return marshalResult(map[string]interface{}{
			"success": true,
			"message": "Note added successfully",
			"note":    n,
		})

	case "list":
		notes := s.notes
		if notes == nil {
			notes = []note{}
		}
		return marshalResult(map[string]interface{}{"notes": notes})

	case "search":
		if params.Query == "" {
			return toolError("Query is required"), nil
		}
		query := strings.ToLower(params.Query)
		matches := []note{}
		for _, n := range s.notes {
			if noteMatches(n, query) {
				matches = append(matches, n)
			}
		}
		return marshalResult(map[string]interface{}{"notes": matches})

	case "delete":
		if params.ID == "" {
			return toolError("Note ID is required"), nil
		}
		for i := range s.notes {
			if s.notes[i].ID == params.ID {
				s.notes = append(s.notes[:i], s.notes[i+1:]...)
				if err := s.save(); err != nil {
					return "", err
				}
				return marshalResult(map[string]interface{}{
					"success": true,
					"message": "Note deleted successfully",
				})
			}
		}
		return toolError("Note not found"), nil

	default:
		return toolError("Unknown operation: " + params.Operation), nil
	}
}

func noteMatches(n note, loweredQuery string) bool {
	if strings.Contains(strings.ToLower(n.Content), loweredQuery) {
		return true
	}
	for _, tag := range n.Tags {
		if strings.Contains(strings.ToLower(tag), loweredQuery) {
			return true
		}
	}
	return false
}
