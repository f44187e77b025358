// Package mcp bridges external Model Context Protocol servers into the
// tool registry. Each server runs as a subprocess speaking MCP over
// stdio; its tools are discovered at connect time and can be registered
// alongside native tools.
package mcp

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gialup03/luup-agent/errors"
	"github.com/gialup03/luup-agent/tools"
)

// Client manages the connection to a single MCP server subprocess.
type Client struct {
	name  string
	cmd   *exec.Cmd
	conn  *mcpsdk.ClientSession
	specs []tools.Spec
}

// Connect starts the MCP server subprocess, performs the handshake, and
// lists the tools it provides. The subprocess is killed on any failure.
func Connect(ctx context.Context, name, command string, args []string) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "luup-agent", Version: "v1.0.0"}, nil)
	conn, err := mcpClient.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		cmd.Process.Kill()
		return nil, errors.Wrapf(err, "failed to connect to MCP server %q", name)
	}

	c := &Client{name: name, cmd: cmd, conn: conn}

	listParams := &mcpsdk.ListToolsParams{}
	for {
		toolList, err := conn.ListTools(ctx, listParams)
		if err != nil {
			c.Close()
			return nil, errors.Wrapf(err, "failed to list tools from MCP server %q", name)
		}
		for _, t := range toolList.Tools {
			params, err := json.Marshal(t.InputSchema)
			if err != nil {
				params = json.RawMessage(`{"type":"object"}`)
			}
			c.specs = append(c.specs, tools.Spec{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			})
		}
		if toolList.NextCursor == "" {
			break
		}
		listParams.Cursor = toolList.NextCursor
	}

	return c, nil
}

// Name returns the configured server name.
func (c *Client) Name() string {
	return c.name
}

// Specs returns the tools discovered on the server, in listing order.
func (c *Client) Specs() []tools.Spec {
	out := make([]tools.Spec, len(c.specs))
	copy(out, c.specs)
	return out
}

// RegisterAll adds every discovered tool to the registry. The callbacks
// forward parameters to the server and concatenate text content from the
// response.
func (c *Client) RegisterAll(r *tools.Registry) error {
	for _, spec := range c.specs {
		toolName := spec.Name
		invoke := func(ctx context.Context, paramsJSON string) (string, error) {
			return c.call(ctx, toolName, paramsJSON)
		}
		if err := r.Register(spec, invoke); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) call(ctx context.Context, toolName, paramsJSON string) (string, error) {
	var args map[string]interface{}
	if paramsJSON != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &args); err != nil {
			return "", errors.Wrapf(err, "invalid parameters for MCP tool %q", toolName)
		}
	}
	result, err := c.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call MCP tool %q", toolName)
	}
	var out string
	for _, content := range result.Content {
		if text, ok := content.(*mcpsdk.TextContent); ok {
			out += text.Text
		}
	}
	return out, nil
}

// Close shuts down the connection and terminates the server subprocess.
func (c *Client) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		return c.cmd.Process.Kill()
	}
	return nil
}
