// Package config loads layered YAML configuration for luup-agent.
// Settings come from ~/.luup/config.yaml first, then ./.luup/config.yaml,
// with the project file taking precedence field by field.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gialup03/luup-agent/errors"
)

// FilesystemAccess restricts the file tools with doublestar glob
// patterns.
type FilesystemAccess struct {
	Hidden   []string `yaml:"hidden"`
	ReadOnly []string `yaml:"read_only"`
}

// MCPServer describes one Model Context Protocol server to launch and
// bridge into the tool registry.
type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// ContextBudget mirrors contextmgr.Budget in YAML form.
type ContextBudget struct {
	MaxTokens         int     `yaml:"max_tokens"`
	ThresholdFraction float64 `yaml:"threshold_fraction"`
}

type Config struct {
	Backend      string  `yaml:"backend"`
	Model        string  `yaml:"model"`
	BaseURL      string  `yaml:"base_url"`
	APIKey       string  `yaml:"api_key"`
	SystemPrompt string  `yaml:"system_prompt"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`

	MaxToolRounds int           `yaml:"max_tool_rounds"`
	Context       ContextBudget `yaml:"context"`

	DisableBuiltins  bool   `yaml:"disable_builtins"`
	TodoStoragePath  string `yaml:"todo_storage_path"`
	NotesStoragePath string `yaml:"notes_storage_path"`

	EnableFileTools  bool             `yaml:"enable_file_tools"`
	FilesystemAccess FilesystemAccess `yaml:"filesystem_access"`
	MCPServers       []MCPServer      `yaml:"mcp_servers"`
}

// Load reads user-level and then project-level configuration. Missing
// files are not an error; a config with defaults is returned.
func Load() (*Config, error) {
	cfg := &Config{}

	// The agent's own state directory is never exposed to the file tools.
	cfg.FilesystemAccess.Hidden = append(cfg.FilesystemAccess.Hidden, ".luup", ".luup/**")

	home, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(home, ".luup", "config.yaml")
		if _, err := os.Stat(userPath); err == nil {
			if err := loadFromFile(userPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectPath := filepath.Join(wd, ".luup", "config.yaml")
	if _, err := os.Stat(projectPath); err == nil {
		if err := loadFromFile(projectPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, so the project
	// file replaces user-level values field by field.
	return yaml.Unmarshal(data, cfg)
}
