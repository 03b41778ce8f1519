package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/giantswarm/shoot/pkg/collector"
	"github.com/giantswarm/shoot/pkg/config"
	"github.com/giantswarm/shoot/pkg/observability"
)

// ToolRouter resolves and executes tools for a session. Registry is
// the production implementation; tests substitute their own.
type ToolRouter interface {
	Definitions(ctx context.Context, allowed []string) ([]ToolDefinition, error)
	Call(ctx context.Context, name string, input json.RawMessage) (string, bool, error)
}

// AgentSpec describes the agent a session runs as: its prompt, model,
// turn budget, and the exact tool names it may call.
type AgentSpec struct {
	Name         string
	SystemPrompt string
	Model        string
	MaxTurns     int
	AllowedTools []string
}

// ChunkType discriminates streamed session events.
type ChunkType string

const (
	ChunkText       ChunkType = "text"
	ChunkToolUse    ChunkType = "tool_use"
	ChunkToolResult ChunkType = "tool_result"
	ChunkError      ChunkType = "error"
	ChunkResult     ChunkType = "result"
)

// Chunk is one streamed session event. Agent names the emitting agent;
// subagent chunks surface through the parent stream with their own
// agent name.
type Chunk struct {
	Type  ChunkType `json:"type"`
	Agent string    `json:"agent,omitempty"`
	Text  string    `json:"text,omitempty"`
	Tool  string    `json:"tool,omitempty"`
	Error string    `json:"error,omitempty"`
}

// Result is the outcome of a completed session.
type Result struct {
	Text        string
	Turns       int
	ToolCalls   int
	Delegations int
	Usage       Usage
	Duration    time.Duration
}

// Session drives agent conversations against a provider. The zero
// value is not usable; construct with NewSession.
type Session struct {
	provider Provider
	tools    ToolRouter

	agents     []collector.AgentDefinition
	agentIndex map[string]collector.AgentDefinition

	subagentMaxTurns int
}

// NewSession builds a session executor. agents are the delegation
// targets available through the Task tool; subagentMaxTurns bounds
// each delegated run.
func NewSession(provider Provider, tools ToolRouter, agents []collector.AgentDefinition, subagentMaxTurns int) *Session {
	index := make(map[string]collector.AgentDefinition, len(agents))
	for _, agent := range agents {
		index[agent.Name] = agent
	}
	if subagentMaxTurns <= 0 {
		subagentMaxTurns = config.DefaultSubagentMaxTurns
	}
	return &Session{
		provider:         provider,
		tools:            tools,
		agents:           agents,
		agentIndex:       index,
		subagentMaxTurns: subagentMaxTurns,
	}
}

// Run executes a conversation to completion and returns the final
// assistant text.
func (s *Session) Run(ctx context.Context, agent AgentSpec, prompt string) (*Result, error) {
	return s.RunStream(ctx, agent, prompt, nil)
}

// RunStream executes a conversation, emitting a chunk per event. emit
// may be nil. Tool failures are reported to the model in-band and the
// conversation continues; only provider and routing failures abort.
func (s *Session) RunStream(ctx context.Context, agent AgentSpec, prompt string, emit func(Chunk)) (*Result, error) {
	start := time.Now()
	if emit == nil {
		emit = func(Chunk) {}
	}

	defs, err := s.toolDefinitions(ctx, agent)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	messages := []Message{{Role: RoleUser, Content: prompt}}

	for turn := 0; turn < agent.MaxTurns; turn++ {
		result.Turns = turn + 1

		resp, err := s.provider.Chat(ctx, agent.Model, agent.SystemPrompt, messages, defs)
		if err != nil {
			return nil, fmt.Errorf("agent '%s' turn %d: %w", agent.Name, turn+1, err)
		}
		result.Usage.Add(resp.Usage)

		if resp.Content != "" {
			emit(Chunk{Type: ChunkText, Agent: agent.Name, Text: resp.Content})
		}

		if len(resp.ToolCalls) == 0 {
			result.Text = resp.Content
			result.Duration = time.Since(start)
			return result, nil
		}

		messages = append(messages, Message{
			Role:    RoleAssistant,
			Content: resp.Content,
			ToolUse: resp.ToolCalls,
		})

		toolResults := make([]ToolResultBlock, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			emit(Chunk{Type: ChunkToolUse, Agent: agent.Name, Tool: call.Name})
			content, isError := s.executeTool(ctx, call, result, emit)
			emit(Chunk{Type: ChunkToolResult, Agent: agent.Name, Tool: call.Name})
			toolResults = append(toolResults, ToolResultBlock{
				ToolUseID: call.ID,
				Content:   content,
				IsError:   isError,
			})
		}
		messages = append(messages, Message{Role: RoleUser, ToolResult: toolResults})
	}

	return nil, fmt.Errorf("agent '%s' exceeded maximum turns (%d)", agent.Name, agent.MaxTurns)
}

// toolDefinitions assembles the definitions an agent sees: the Task
// tool when delegation targets exist and it is allowed, plus its MCP
// tools.
func (s *Session) toolDefinitions(ctx context.Context, agent AgentSpec) ([]ToolDefinition, error) {
	var defs []ToolDefinition
	for _, name := range agent.AllowedTools {
		if name == config.TaskTool {
			if len(s.agents) > 0 {
				defs = append(defs, s.taskToolDefinition())
			}
			break
		}
	}

	mcpDefs, err := s.tools.Definitions(ctx, agent.AllowedTools)
	if err != nil {
		return nil, err
	}
	return append(defs, mcpDefs...), nil
}

// executeTool runs one tool call. Failures become in-band error
// results so the model can adjust rather than the investigation dying.
func (s *Session) executeTool(ctx context.Context, call ToolUseBlock, result *Result, emit func(Chunk)) (string, bool) {
	result.ToolCalls++

	if call.Name == config.TaskTool {
		result.Delegations++
		observability.GetGlobalMetrics().RecordDelegation(ctx, subagentName(call.Input))
		content, err := s.delegate(ctx, call.Input, result, emit)
		if err != nil {
			slog.Warn("Subagent delegation failed", "error", err)
			emit(Chunk{Type: ChunkError, Error: err.Error()})
			return fmt.Sprintf("delegation failed: %v", err), true
		}
		return content, false
	}

	started := time.Now()
	content, isError, err := s.tools.Call(ctx, call.Name, call.Input)
	observability.GetGlobalMetrics().RecordToolExecution(ctx, call.Name, time.Since(started), err)
	if err != nil {
		slog.Warn("Tool call failed", "tool", call.Name, "error", err)
		return fmt.Sprintf("tool call failed: %v", err), true
	}
	return content, isError
}

// subagentName peeks the delegation target out of a Task payload.
func subagentName(input json.RawMessage) string {
	var task taskInput
	if err := json.Unmarshal(input, &task); err != nil {
		return "unknown"
	}
	return task.SubagentType
}

// taskInput is the Task tool's payload.
type taskInput struct {
	Description  string `json:"description"`
	Prompt       string `json:"prompt"`
	SubagentType string `json:"subagent_type"`
}

// delegate runs a subagent session with its own restricted tool
// surface and returns its final report text.
func (s *Session) delegate(ctx context.Context, input json.RawMessage, result *Result, emit func(Chunk)) (string, error) {
	var task taskInput
	if err := json.Unmarshal(input, &task); err != nil {
		return "", fmt.Errorf("invalid Task input: %w", err)
	}

	agent, ok := s.agentIndex[task.SubagentType]
	if !ok {
		return "", fmt.Errorf("unknown subagent '%s' (available: %s)", task.SubagentType, strings.Join(s.agentNames(), ", "))
	}

	slog.Info("Delegating to subagent", "subagent", agent.Name, "description", task.Description)

	spec := AgentSpec{
		Name:         agent.Name,
		SystemPrompt: agent.Prompt,
		Model:        agent.Model,
		MaxTurns:     s.subagentMaxTurns,
		AllowedTools: agent.Tools,
	}

	subResult, err := s.RunStream(ctx, spec, task.Prompt, emit)
	if err != nil {
		return "", err
	}
	result.Usage.Add(subResult.Usage)
	result.ToolCalls += subResult.ToolCalls
	return subResult.Text, nil
}

// taskToolDefinition declares the delegation tool, advertising each
// subagent by name and description.
func (s *Session) taskToolDefinition() ToolDefinition {
	var desc strings.Builder
	desc.WriteString("Delegate a data collection task to a specialized subagent. Available subagents:\n")
	for _, agent := range s.agents {
		fmt.Fprintf(&desc, "- %s: %s\n", agent.Name, agent.Description)
	}

	return ToolDefinition{
		Name:        config.TaskTool,
		Description: desc.String(),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"description": map[string]any{
					"type":        "string",
					"description": "Short (3-5 word) description of the task",
				},
				"prompt": map[string]any{
					"type":        "string",
					"description": "The task for the subagent to perform",
				},
				"subagent_type": map[string]any{
					"type":        "string",
					"description": "The name of the subagent to use",
					"enum":        s.agentNames(),
				},
			},
			"required": []string{"description", "prompt", "subagent_type"},
		},
	}
}

func (s *Session) agentNames() []string {
	names := make([]string, 0, len(s.agents))
	for _, agent := range s.agents {
		names = append(names, agent.Name)
	}
	return names
}
