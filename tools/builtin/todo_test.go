package builtin

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/gialup03/luup-agent/tools"
)

func TestTodoLifecycle(t *testing.T) {
	r := tools.NewRegistry()
	if err := RegisterTodo(r, ""); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	result := r.Execute(ctx, "todo", `{"operation": "add", "title": "write tests"}`)
	var added struct {
		Success bool `json:"success"`
		Todo    struct {
			ID     int    `json:"id"`
			Title  string `json:"title"`
			Status string `json:"status"`
		} `json:"todo"`
	}
	if err := json.Unmarshal([]byte(result), &added); err != nil {
		t.Fatalf("add result is not JSON: %v", err)
	}
	if !added.Success || added.Todo.ID != 1 || added.Todo.Status != "pending" {
		t.Fatalf("unexpected add result %s", result)
	}

	result = r.Execute(ctx, "todo", `{"operation": "complete", "id": 1}`)
	if !resultSucceeded(t, result) {
		t.Fatalf("complete failed: %s", result)
	}

	result = r.Execute(ctx, "todo", `{"operation": "list"}`)
	var listed struct {
		Todos []struct {
			Status string `json:"status"`
		} `json:"todos"`
	}
	if err := json.Unmarshal([]byte(result), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed.Todos) != 1 || listed.Todos[0].Status != "completed" {
		t.Fatalf("unexpected list %s", result)
	}

	result = r.Execute(ctx, "todo", `{"operation": "delete", "id": 1}`)
	if !resultSucceeded(t, result) {
		t.Fatalf("delete failed: %s", result)
	}
}

func TestTodoErrors(t *testing.T) {
	r := tools.NewRegistry()
	if err := RegisterTodo(r, ""); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	cases := []struct {
		params string
		want   string
	}{
		{`{"operation": "add"}`, "Title is required"},
		{`{"operation": "complete"}`, "Todo ID is required"},
		{`{"operation": "complete", "id": 99}`, "Todo not found"},
		{`{"operation": "teleport"}`, "Unknown operation: teleport"},
	}
	for _, tc := range cases {
		result := r.Execute(ctx, "todo", tc.params)
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			t.Fatalf("%s: result is not JSON: %v", tc.params, err)
		}
		if payload["error"] != tc.want {
			t.Errorf("%s: expected error %q, got %s", tc.params, tc.want, result)
		}
	}
}

func TestTodoPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.json")
	ctx := context.Background()

	r := tools.NewRegistry()
	if err := RegisterTodo(r, path); err != nil {
		t.Fatal(err)
	}
	r.Execute(ctx, "todo", `{"operation": "add", "title": "persisted"}`)

	// A fresh registry loading the same file sees the item and continues
	// the ID sequence.
	r2 := tools.NewRegistry()
	if err := RegisterTodo(r2, path); err != nil {
		t.Fatal(err)
	}
	result := r2.Execute(ctx, "todo", `{"operation": "add", "title": "second"}`)
	var added struct {
		Todo struct {
			ID int `json:"id"`
		} `json:"todo"`
	}
	if err := json.Unmarshal([]byte(result), &added); err != nil {
		t.Fatal(err)
	}
	if added.Todo.ID != 2 {
		t.Errorf("expected ID sequence to continue at 2, got %d", added.Todo.ID)
	}
}

func resultSucceeded(t *testing.T, result string) bool {
	t.Helper()
	var payload struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal([]byte(result), &payload); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	return payload.Success
}
