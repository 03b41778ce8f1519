package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/giantswarm/shoot/pkg/collector"
)

// Registry routes fully-qualified tool names (mcp__<server>__<tool>)
// to the toolset that serves them.
type Registry struct {
	order    []string
	toolsets map[string]*Toolset
}

// NewRegistry builds a registry from server specs. Order is preserved
// for deterministic tool listing.
func NewRegistry(specs []collector.ServerSpec) *Registry {
	r := &Registry{toolsets: make(map[string]*Toolset, len(specs))}
	for _, spec := range specs {
		r.order = append(r.order, spec.Name)
		r.toolsets[spec.Name] = NewToolset(spec)
	}
	return r
}

// Definitions returns tool definitions for exactly the allowed
// fully-qualified names, in the allowed order. Only servers hosting at
// least one allowed tool are connected.
func (r *Registry) Definitions(ctx context.Context, allowed []string) ([]ToolDefinition, error) {
	byName := make(map[string]ToolDefinition)
	for _, name := range allowed {
		server, _, err := splitToolName(name)
		if err != nil {
			continue // Task and other non-MCP names resolve elsewhere
		}
		toolset, ok := r.toolsets[server]
		if !ok {
			return nil, fmt.Errorf("tool '%s' references unknown MCP server '%s'", name, server)
		}
		if _, listed := byName[name]; listed {
			continue
		}
		tools, err := toolset.Tools(ctx)
		if err != nil {
			return nil, err
		}
		for _, def := range tools {
			byName[def.Name] = def
		}
	}

	var defs []ToolDefinition
	for _, name := range allowed {
		if def, ok := byName[name]; ok {
			defs = append(defs, def)
		}
	}
	return defs, nil
}

// Call routes a fully-qualified tool call to its server.
func (r *Registry) Call(ctx context.Context, name string, input json.RawMessage) (string, bool, error) {
	server, tool, err := splitToolName(name)
	if err != nil {
		return "", false, err
	}
	toolset, ok := r.toolsets[server]
	if !ok {
		return "", false, fmt.Errorf("tool '%s' references unknown MCP server '%s'", name, server)
	}
	return toolset.Call(ctx, tool, input)
}

// Close shuts down every toolset, collecting errors.
func (r *Registry) Close() error {
	var errs []error
	for _, name := range r.order {
		if err := r.toolsets[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing MCP server '%s': %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// splitToolName decomposes mcp__<server>__<tool>. Server names must
// not contain a double underscore.
func splitToolName(name string) (server, tool string, err error) {
	rest, ok := strings.CutPrefix(name, "mcp__")
	if !ok {
		return "", "", fmt.Errorf("'%s' is not an MCP tool name", name)
	}
	server, tool, ok = strings.Cut(rest, "__")
	if !ok || server == "" || tool == "" {
		return "", "", fmt.Errorf("malformed MCP tool name '%s'", name)
	}
	return server, tool, nil
}
