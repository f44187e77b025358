package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gialup03/luup-agent/errors"
	"github.com/gialup03/luup-agent/tools"
)

// FileAccess restricts what the file tools may touch. Patterns are
// doublestar globs matched against the path the model supplies.
type FileAccess struct {
	// Hidden paths are invisible to both tools.
	Hidden []string
	// ReadOnly paths can be read but not written.
	ReadOnly []string
}

const readFileSchema = `{
  "type": "object",
  "properties": {
    "path": {"type": "string", "description": "Path of the file to read"}
  },
  "required": ["path"]
}`

const writeFileSchema = `{
  "type": "object",
  "properties": {
    "path": {"type": "string", "description": "Path of the file to write"},
    "content": {"type": "string", "description": "Full new file content"}
  },
  "required": ["path", "content"]
}`

// RegisterFiles adds the read_file and write_file tools to the registry,
// guarded by the given access policy.
func RegisterFiles(r *tools.Registry, access FileAccess) error {
	ft := &fileTools{access: access}
	readSpec := tools.Spec{
		Name:        "read_file",
		Description: "Reads the entire content of a file",
		Parameters:  json.RawMessage(readFileSchema),
	}
	if err := r.Register(readSpec, ft.read); err != nil {
		return err
	}
	writeSpec := tools.Spec{
		Name:        "write_file",
		Description: "Writes content to a file, replacing it entirely",
		Parameters:  json.RawMessage(writeFileSchema),
	}
	return r.Register(writeSpec, ft.write)
}

type fileTools struct {
	access FileAccess
}

func (ft *fileTools) read(ctx context.Context, paramsJSON string) (string, error) {
	var params struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		return "", errors.Wrapf(err, "invalid read_file parameters")
	}
	if params.Path == "" {
		return "", errors.New("missing 'path' argument")
	}

	hidden, err := pathRestricted(params.Path, ft.access.Hidden)
	if err != nil {
		return "", err
	}
	if hidden {
		return "", errors.New("access denied: path %q is hidden", params.Path)
	}

	content, err := os.ReadFile(params.Path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file %q", params.Path)
	}
	return string(content), nil
}

func (ft *fileTools) write(ctx context.Context, paramsJSON string) (string, error) {
	var params struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		return "", errors.Wrapf(err, "invalid write_file parameters")
	}
	if params.Path == "" {
		return "", errors.New("missing 'path' argument")
	}

	hidden, err := pathRestricted(params.Path, ft.access.Hidden)
	if err != nil {
		return "", err
	}
	if hidden {
		return "", errors.New("access denied: path %q is hidden", params.Path)
	}
	readOnly, err := pathRestricted(params.Path, ft.access.ReadOnly)
	if err != nil {
		return "", err
	}
	if readOnly {
		return "", errors.New("access denied: path %q is read-only", params.Path)
	}

	if err := os.WriteFile(params.Path, []byte(params.Content), 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write file %q", params.Path)
	}
	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(params.Content), params.Path), nil
}

func pathRestricted(path string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			return false, errors.Wrapf(err, "invalid glob pattern %q", pattern)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}
