// Package mcp bridges MCP (Model Context Protocol) servers into the tool
// registry. Servers are configured in {CODEX_HOME}/mcp.json, connected from
// the worker process, and their tools exposed to the model under qualified
// names of the form mcp__<server>__<tool>.
//
// Everything here runs worker-side. Workflow code only ever sees the plain
// ToolSpec data returned by the list_mcp_tools activity, which keeps the
// prompt's tool catalog replay-deterministic.
package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultStartupTimeout bounds server startup and the initial tool listing.
const DefaultStartupTimeout = 10 * time.Second

// DefaultToolTimeout bounds individual tool calls.
const DefaultToolTimeout = 60 * time.Second

// ServerConfig configures one MCP server connection. A server speaks either
// stdio (Command is set, the server runs as a subprocess) or streamable HTTP
// (URL is set); setting both is invalid and stdio wins.
type ServerConfig struct {
	// Stdio transport: spawn a subprocess and speak MCP over its pipes.
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Cwd     string            `json:"cwd,omitempty"`

	// Streamable HTTP transport: connect to an already-running server.
	URL string `json:"url,omitempty"`

	// Enabled defaults to true when omitted.
	Enabled *bool `json:"enabled,omitempty"`

	// Required makes an initialization failure fatal for the whole session
	// instead of just dropping this server's tools.
	Required bool `json:"required,omitempty"`

	StartupTimeoutSec *int `json:"startup_timeout_sec,omitempty"`
	ToolTimeoutSec    *int `json:"tool_timeout_sec,omitempty"`

	// EnabledTools, when set, is an allow-list: only these tools are exposed.
	EnabledTools []string `json:"enabled_tools,omitempty"`
	// DisabledTools are never exposed.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// IsEnabled reports whether this server should be started.
func (c *ServerConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// IsStdio reports whether this config uses the stdio transport.
func (c *ServerConfig) IsStdio() bool {
	return c.Command != ""
}

// IsHTTP reports whether this config uses the streamable HTTP transport.
func (c *ServerConfig) IsHTTP() bool {
	return c.URL != ""
}

// StartupTimeout returns the configured startup timeout or the default.
func (c *ServerConfig) StartupTimeout() time.Duration {
	if c.StartupTimeoutSec != nil {
		return time.Duration(*c.StartupTimeoutSec) * time.Second
	}
	return DefaultStartupTimeout
}

// ToolTimeout returns the configured per-call timeout or the default.
func (c *ServerConfig) ToolTimeout() time.Duration {
	if c.ToolTimeoutSec != nil {
		return time.Duration(*c.ToolTimeoutSec) * time.Second
	}
	return DefaultToolTimeout
}

// ToolFilter controls which of a server's tools are exposed. A tool passes
// when it is on the allow-list (or there is no allow-list) and not on the
// deny-list.
type ToolFilter struct {
	Enabled  map[string]bool // allow-list, nil means allow all
	Disabled map[string]bool // deny-list
}

// NewToolFilter builds a ToolFilter from a server config's tool lists.
func NewToolFilter(enabledTools, disabledTools []string) ToolFilter {
	var enabled map[string]bool
	if len(enabledTools) > 0 {
		enabled = make(map[string]bool, len(enabledTools))
		for _, t := range enabledTools {
			enabled[t] = true
		}
	}

	disabled := make(map[string]bool, len(disabledTools))
	for _, t := range disabledTools {
		disabled[t] = true
	}

	return ToolFilter{Enabled: enabled, Disabled: disabled}
}

// Allows reports whether the given tool name passes the filter.
func (f *ToolFilter) Allows(toolName string) bool {
	if f.Enabled != nil && !f.Enabled[toolName] {
		return false
	}
	return !f.Disabled[toolName]
}

// serversFile is the shape of {CODEX_HOME}/mcp.json.
type serversFile struct {
	McpServers map[string]ServerConfig `json:"mcp_servers"`
}

// ConfigFileName is the MCP config file looked up under CODEX_HOME.
const ConfigFileName = "mcp.json"

// LoadServers reads the server configs from {codexHome}/mcp.json. A missing
// file is not an error; it just means no MCP servers are configured.
func LoadServers(codexHome string) (map[string]ServerConfig, error) {
	path := filepath.Join(codexHome, ConfigFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]ServerConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var file serversFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if file.McpServers == nil {
		return map[string]ServerConfig{}, nil
	}
	return file.McpServers, nil
}
