// Package builtin provides the tools the agent ships with: a todo list,
// a notes store, and guarded filesystem access. All of them speak the
// registry's JSON-in/JSON-out contract and persist to plain files so a
// session can be resumed later.
package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gialup03/luup-agent/errors"
	"github.com/gialup03/luup-agent/tools"
)

const todoParametersSchema = `{
  "type": "object",
  "properties": {
    "operation": {
      "type": "string",
      "enum": ["add", "list", "complete", "delete"],
      "description": "Operation to perform"
    },
    "title": {
      "type": "string",
      "description": "Todo title (required for 'add')"
    },
    "id": {
      "type": "number",
      "description": "Todo ID (required for 'complete' and 'delete')"
    }
  },
  "required": ["operation"]
}`

type todoItem struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Created   string `json:"created"`
	Completed string `json:"completed,omitempty"`
}

type todoStore struct {
	path   string
	todos  []todoItem
	nextID int
}

// RegisterTodo adds the todo tool to the registry. An empty storagePath
// keeps the list in memory only; otherwise it is loaded from and saved to
// the given JSON file.
func RegisterTodo(r *tools.Registry, storagePath string) error {
	store := &todoStore{path: storagePath, nextID: 1}
	if storagePath != "" {
		if err := store.load(); err != nil {
			return err
		}
	}
	spec := tools.Spec{
		Name:        "todo",
		Description: "Manage todo list: add, list, complete, or delete tasks",
		Parameters:  json.RawMessage(todoParametersSchema),
	}
	return r.Register(spec, store.handle)
}

func (s *todoStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to read todo storage %q", s.path)
	}
	var file struct {
		Todos []todoItem `json:"todos"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return errors.Wrapf(err, "invalid todo storage %q", s.path)
	}
	s.todos = file.Todos
	for _, t := range s.todos {
		if t.ID >= s.nextID {
			s.nextID = t.ID + 1
		}
	}
	return nil
}

func (s *todoStore) save() error {
	if s.path == "" {
		return nil
	}
	file := struct {
		Todos []todoItem `json:"todos"`
	}{Todos: s.todos}
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

func (s *todoStore) handle(ctx context.Context, paramsJSON string) (string, error) {
	var params struct {
		Operation string `json:"operation"`
		Title     string `json:"title"`
		ID        int    `json:"id"`
	}
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		return "", errors.Wrapf(err, "invalid todo parameters")
	}
	if params.Operation == "" {
		params.Operation = "list"
	}

	switch params.Operation {
	case "add":
		if params.Title == "" {
			return toolError("Title is required"), nil
		}
		item := todoItem{
			ID:      s.nextID,
			Title:   params.Title,
			Status:  "pending",
			Created: timestamp(),
		}
		s.nextID++
		s.todos = append(s.todos, item)
		if err := s.save(); err != nil {
			return "", err
		}
		return marshalResult(map[string]interface{}{
			"success": true,
			"message": "Todo added successfully",
			"todo":    item,
		})

	case "list":
		todos := s.todos
		if todos == nil {
			todos = []todoItem{}
		}
		return marshalResult(map[string]interface{}{"todos": todos})

	case "complete":
		if params.ID == 0 {
			return toolError("Todo ID is required"), nil
		}
		for i := range s.todos {
			if s.todos[i].ID == params.ID {
				s.todos[i].Status = "completed"
				s.todos[i].Completed = timestamp()
				if err := s.save(); err != nil {
					return "", err
				}
				return marshalResult(map[string]interface{}{
					"success": true,
					"message": "Todo marked as completed",
				})
			}
		}
		return toolError("Todo not found"), nil

	case "delete":
		if params.ID == 0 {
			return toolError("Todo ID is required"), nil
		}
		for i := range s.todos {
			if s.todos[i].ID == params.ID {
				s.todos = append(s.todos[:i], s.todos[i+1:]...)
				if err := s.save(); err != nil {
					return "", err
				}
				return marshalResult(map[string]interface{}{
					"success": true,
					"message": "Todo deleted successfully",
				})
			}
		}
		return toolError("Todo not found"), nil

	default:
		return toolError("Unknown operation: " + params.Operation), nil
	}
}

func timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

func toolError(msg string) string {
	out, _ := json.Marshal(map[string]string{"error": msg})
	return string(out)
}

func marshalResult(v interface{}) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
