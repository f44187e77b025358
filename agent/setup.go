package agent

import (
	"context"

	"github.com/gialup03/luup-agent/config"
	"github.com/gialup03/luup-agent/contextmgr"
	"github.com/gialup03/luup-agent/llm"
	"github.com/gialup03/luup-agent/tools/builtin"
	"github.com/gialup03/luup-agent/tools/mcp"
)

// FromConfig builds a fully wired agent from loaded configuration: the
// model client, the builtin tools, optional file tools, and any
// configured MCP servers. The returned closer shuts down MCP server
// subprocesses and must be called when the agent is no longer needed.
func FromConfig(ctx context.Context, cfg *config.Config) (*Agent, func() error, error) {
	model, err := llm.NewClient(ctx, llm.Config{
		Backend: llm.Backend(cfg.Backend),
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
	})
	if err != nil {
		return nil, nil, err
	}

	a, err := New(Config{
		Model:         model,
		SystemPrompt:  cfg.SystemPrompt,
		Temperature:   cfg.Temperature,
		MaxTokens:     cfg.MaxTokens,
		MaxToolRounds: cfg.MaxToolRounds,
		Budget: contextmgr.Budget{
			MaxTokens:         cfg.Context.MaxTokens,
			ThresholdFraction: cfg.Context.ThresholdFraction,
		},
		DisableBuiltins:  cfg.DisableBuiltins,
		TodoStoragePath:  cfg.TodoStoragePath,
		NotesStoragePath: cfg.NotesStoragePath,
	})
	if err != nil {
		return nil, nil, err
	}

	if cfg.EnableFileTools {
		access := builtin.FileAccess{
			Hidden:   cfg.FilesystemAccess.Hidden,
			ReadOnly: cfg.FilesystemAccess.ReadOnly,
		}
		if err := builtin.RegisterFiles(a.registry, access); err != nil {
			return nil, nil, err
		}
	}

	var clients []*mcp.Client
	closeAll := func() error {
		var firstErr error
		for _, c := range clients {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	for _, server := range cfg.MCPServers {
		client, err := mcp.Connect(ctx, server.Name, server.Command, server.Args)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		clients = append(clients, client)
		if err := client.RegisterAll(a.registry); err != nil {
			closeAll()
			return nil, nil, err
		}
	}

	return a, closeAll, nil
}
