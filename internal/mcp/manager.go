package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"sync"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mfateev/codex-temporal/internal/version"
)

// managedClient pairs a live MCP client session with the config it was
// started from, so per-call timeouts survive past initialization.
type managedClient struct {
	session *gomcp.ClientSession
	config  ServerConfig
}

// ToolSpec is a plain-data tool description extracted from an MCP tool
// definition. It is what crosses the activity boundary into the workflow, so
// it must not reference SDK types.
type ToolSpec struct {
	QualifiedName string         `json:"qualified_name"`
	ServerName    string         `json:"server_name"`
	ToolName      string         `json:"tool_name"`
	Description   string         `json:"description"`
	InputSchema   map[string]any `json:"input_schema,omitempty"`
	ReadOnly      bool           `json:"read_only,omitempty"`
}

// InitResult is the outcome of connecting a set of MCP servers.
type InitResult struct {
	// ToolSpecs describes every discovered tool, ready for the model catalog.
	ToolSpecs []ToolSpec
	// Failures records servers that failed to start, server name to error.
	Failures map[string]string
}

// Manager owns the MCP client connections for one session. Sessions do not
// share connections; each gets its own Manager via the worker's Store.
type Manager struct {
	mu      sync.Mutex
	clients map[string]*managedClient // server name -> live session
	tools   map[string]ToolInfo       // qualified name -> dispatch metadata
}

// NewManager returns an empty manager with no connections.
func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]*managedClient),
		tools:   make(map[string]ToolInfo),
	}
}

// Initialize connects every enabled server in parallel, lists and filters
// each server's tools, qualifies their names, and merges them into the
// manager's catalog. A server that fails to start is recorded in Failures
// and its tools skipped, unless it is marked Required, in which case the
// whole initialization fails.
//
// Calling Initialize again with servers that are already connected replaces
// those connections' tool entries; EnsureConnected is the cheaper path when
// the connections may still be live.
func (m *Manager) Initialize(ctx context.Context, servers map[string]ServerConfig) (*InitResult, error) {
	type serverResult struct {
		name    string
		config  ServerConfig
		session *gomcp.ClientSession
		tools   []ToolInfo
		err     error
	}

	type pendingServer struct {
		name   string
		config ServerConfig
	}
	var pending []pendingServer
	for name, cfg := range servers {
		if cfg.IsEnabled() {
			pending = append(pending, pendingServer{name, cfg})
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(pending) == 0 {
		return &InitResult{ToolSpecs: specsFromTools(m.tools), Failures: map[string]string{}}, nil
	}

	results := make([]serverResult, len(pending))
	var wg sync.WaitGroup
	for i, srv := range pending {
		wg.Add(1)
		go func(idx int, serverName string, cfg ServerConfig) {
			defer wg.Done()
			result := serverResult{name: serverName, config: cfg}

			session, err := connect(ctx, serverName, cfg)
			if err != nil {
				result.err = err
				results[idx] = result
				return
			}
			result.session = session

			listCtx, cancel := context.WithTimeout(ctx, cfg.StartupTimeout())
			defer cancel()

			listed, err := session.ListTools(listCtx, nil)
			if err != nil {
				result.err = fmt.Errorf("failed to list tools for %s: %w", serverName, err)
				_ = session.Close()
				results[idx] = result
				return
			}

			filter := NewToolFilter(cfg.EnabledTools, cfg.DisabledTools)
			var infos []ToolInfo
			for _, tool := range listed.Tools {
				if filter.Allows(tool.Name) {
					infos = append(infos, ToolInfo{
						ServerName: serverName,
						ToolName:   tool.Name,
						Tool:       tool,
					})
				}
			}

			result.tools = infos
			results[idx] = result
		}(i, srv.name, srv.config)
	}
	wg.Wait()

	failures := make(map[string]string)
	var discovered []ToolInfo
	for _, r := range results {
		if r.err != nil {
			failures[r.name] = r.err.Error()
			log.Printf("mcp: server %s failed: %v", r.name, r.err)
			continue
		}
		if prev, ok := m.clients[r.name]; ok {
			_ = prev.session.Close()
		}
		m.clients[r.name] = &managedClient{session: r.session, config: r.config}
		discovered = append(discovered, r.tools...)
	}

	for name, cfg := range servers {
		if cfg.Required {
			if errMsg, failed := failures[name]; failed {
				return nil, fmt.Errorf("required MCP server %s failed to initialize: %s", name, errMsg)
			}
		}
	}

	for qualifiedName, info := range QualifyTools(discovered) {
		m.tools[qualifiedName] = info
	}

	return &InitResult{
		ToolSpecs: specsFromTools(m.tools),
		Failures:  failures,
	}, nil
}

// EnsureConnected connects any enabled servers that have no live session.
// The tool activity calls this before dispatching so that a worker restart,
// which wipes the in-process Store, does not strand a long-running workflow.
func (m *Manager) EnsureConnected(ctx context.Context, servers map[string]ServerConfig) error {
	m.mu.Lock()
	missing := make(map[string]ServerConfig)
	for name, cfg := range servers {
		if _, connected := m.clients[name]; !connected && cfg.IsEnabled() {
			missing[name] = cfg
		}
	}
	m.mu.Unlock()

	if len(missing) == 0 {
		return nil
	}
	_, err := m.Initialize(ctx, missing)
	return err
}

// connect dials one server using whichever transport its config selects.
func connect(ctx context.Context, serverName string, cfg ServerConfig) (*gomcp.ClientSession, error) {
	client := gomcp.NewClient(&gomcp.Implementation{
		Name:    version.Name,
		Version: version.Version,
	}, nil)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.StartupTimeout())
	defer cancel()

	if cfg.IsStdio() {
		cmd := exec.CommandContext(connectCtx, cfg.Command, cfg.Args...)
		if cfg.Cwd != "" {
			cmd.Dir = cfg.Cwd
		}
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}

		session, err := client.Connect(connectCtx, &gomcp.CommandTransport{Command: cmd}, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MCP server %s (stdio): %w", serverName, err)
		}
		return session, nil
	}

	if cfg.IsHTTP() {
		transport := &gomcp.StreamableClientTransport{Endpoint: cfg.URL}
		session, err := client.Connect(connectCtx, transport, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MCP server %s (HTTP): %w", serverName, err)
		}
		return session, nil
	}

	return nil, fmt.Errorf("MCP server %s has neither command nor url configured", serverName)
}

// CallTool dispatches one call to the named server with that server's
// per-call timeout applied.
func (m *Manager) CallTool(ctx context.Context, serverName, toolName string, args map[string]any) (*gomcp.CallToolResult, error) {
	m.mu.Lock()
	mc, ok := m.clients[serverName]
	m.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("MCP server %q not connected", serverName)
	}

	callCtx, cancel := context.WithTimeout(ctx, mc.config.ToolTimeout())
	defer cancel()

	result, err := mc.session.CallTool(callCtx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("MCP tool call %s/%s failed: %w", serverName, toolName, err)
	}

	return result, nil
}

// LookupTool returns the dispatch metadata for a qualified tool name.
func (m *Manager) LookupTool(qualifiedName string) (ToolInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.tools[qualifiedName]
	return info, ok
}

// Specs lists every known tool as plain spec data.
func (m *Manager) Specs() []ToolSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return specsFromTools(m.tools)
}

// Close shuts down every session and clears the catalog.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, mc := range m.clients {
		if err := mc.session.Close(); err != nil {
			log.Printf("mcp: error closing session for %s: %v", name, err)
		}
	}
	m.clients = make(map[string]*managedClient)
	m.tools = make(map[string]ToolInfo)
}

// specsFromTools converts the qualified tool map into ToolSpec entries.
// Callers hold m.mu.
func specsFromTools(toolInfos map[string]ToolInfo) []ToolSpec {
	specs := make([]ToolSpec, 0, len(toolInfos))
	for qualifiedName, info := range toolInfos {
		spec := ToolSpec{
			QualifiedName: qualifiedName,
			ServerName:    info.ServerName,
			ToolName:      info.ToolName,
		}
		if info.Tool != nil {
			spec.Description = info.Tool.Description
			spec.InputSchema = schemaMap(info.Tool.InputSchema)
			if info.Tool.Annotations != nil && info.Tool.Annotations.ReadOnlyHint {
				spec.ReadOnly = true
			}
		}
		specs = append(specs, spec)
	}
	return specs
}

// schemaMap normalizes whatever the SDK decoded the input schema into to a
// plain map, going through JSON when it is some other structured type.
func schemaMap(schema any) map[string]any {
	if schema == nil {
		return nil
	}
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
