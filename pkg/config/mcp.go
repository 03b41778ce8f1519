package config

import (
	"fmt"
	"strings"
)

// InClusterArg is appended to a local server's args when no environment
// variables resolved and in_cluster_fallback is enabled, switching the
// server to ambient in-cluster identity.
const InClusterArg = "--in-cluster"

// Endpoint is the resolved connection variant of an MCP server: either
// a local command or a remote URL, never both and never neither. The
// variant is fixed at validation time so downstream code can switch on
// it without re-checking the raw fields.
type Endpoint interface {
	isEndpoint()
}

// LocalCommand is an MCP server launched as a subprocess.
type LocalCommand struct {
	Command string
	Args    []string
	Env     map[string]string
}

func (LocalCommand) isEndpoint() {}

// RemoteURL is an MCP server reached over HTTP.
type RemoteURL struct {
	URL string
}

func (RemoteURL) isEndpoint() {}

// MCPServerConfig configures an MCP (tool) server. Exactly one of
// Command and URL must be set.
type MCPServerConfig struct {
	// Command is the path to a local MCP server executable.
	Command string `yaml:"command,omitempty" json:"command,omitempty" jsonschema:"title=Command,description=Path to MCP server executable (supports ${VAR} expansion)"`

	// Args are command-line arguments for the server process.
	Args []string `yaml:"args,omitempty" json:"args,omitempty" jsonschema:"title=Arguments,description=Command-line arguments for the MCP server"`

	// Env holds environment variables for the server process. Values
	// support ${VAR} and ${VAR:-default} expansion; entries whose value
	// expands to the empty string are dropped.
	Env map[string]string `yaml:"env,omitempty" json:"env,omitempty" jsonschema:"title=Environment,description=Environment variables for the MCP server process"`

	// URL is the HTTP endpoint of a remote MCP server, mutually
	// exclusive with Command.
	URL string `yaml:"url,omitempty" json:"url,omitempty" jsonschema:"title=URL,description=HTTP URL for a remote MCP server"`

	// Tools lists the bare tool names this server exposes, in the
	// order they should be offered to agents.
	Tools []string `yaml:"tools,omitempty" json:"tools,omitempty" jsonschema:"title=Tools,description=Tool names exposed by this MCP server"`

	// InClusterFallback appends --in-cluster to Args when no env vars
	// are set, so the server falls back to ambient identity.
	InClusterFallback bool `yaml:"in_cluster_fallback,omitempty" json:"in_cluster_fallback,omitempty" jsonschema:"title=In-Cluster Fallback,description=Use --in-cluster mode when no env vars are set"`

	endpoint Endpoint
}

// Validate enforces the command-XOR-url invariant and the URL scheme,
// and fixes the endpoint variant.
func (c *MCPServerConfig) Validate() error {
	switch {
	case c.Command == "" && c.URL == "":
		return fmt.Errorf("MCP server must have either 'command' or 'url' configured")
	case c.Command != "" && c.URL != "":
		return fmt.Errorf("MCP server cannot have both 'command' and 'url' configured")
	}

	if c.URL != "" {
		if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
			return fmt.Errorf("MCP server URL must start with http:// or https://, got %q", c.URL)
		}
		c.endpoint = RemoteURL{URL: c.URL}
		return nil
	}

	c.endpoint = LocalCommand{Command: c.Command, Args: c.Args, Env: c.Env}
	return nil
}

// Endpoint returns the resolved connection variant. It panics if the
// config was never validated; configs obtained from a Loader are always
// validated.
func (c *MCPServerConfig) Endpoint() Endpoint {
	if c.endpoint == nil {
		if err := c.Validate(); err != nil {
			panic(fmt.Sprintf("config: Endpoint() on invalid MCPServerConfig: %v", err))
		}
	}
	return c.endpoint
}

// ToolName generates the fully-qualified tool name for a tool exposed
// by an MCP server: mcp__<server_name>__<tool_name>.
func ToolName(serverName, tool string) string {
	return fmt.Sprintf("mcp__%s__%s", serverName, tool)
}

// ToolsForServer generates fully-qualified names for every tool of a
// server, preserving the declared order.
func ToolsForServer(serverName string, tools []string) []string {
	out := make([]string, 0, len(tools))
	for _, t := range tools {
		out = append(out, ToolName(serverName, t))
	}
	return out
}
