package collector

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/giantswarm/shoot/pkg/config"
)

func testConfig(t *testing.T) (*config.ShootConfig, string) {
	t.Helper()
	baseDir := t.TempDir()

	promptsDir := filepath.Join(baseDir, "prompts")
	if err := os.MkdirAll(promptsDir, 0o755); err != nil {
		t.Fatalf("failed to create prompts dir: %v", err)
	}
	for name, content := range map[string]string{
		"wc-collector.md": "Inspect workloads in ${wc_cluster}.",
		"mc-collector.md": "Inspect the management cluster.",
		"investigator.md": "Coordinate the investigation.",
	} {
		if err := os.WriteFile(filepath.Join(promptsDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write prompt: %v", err)
		}
	}

	cfg := &config.ShootConfig{
		MCPServers: map[string]*config.MCPServerConfig{
			"kubernetes-wc": {
				Command: "/usr/local/bin/mcp-kubernetes",
				Args:    []string{"--read-only"},
				Env:     map[string]string{"KUBECONFIG": "/etc/wc-kubeconfig", "EMPTY": ""},
				Tools:   []string{"pods_list", "pods_log"},
			},
			"kubernetes-mc": {
				Command:           "/usr/local/bin/mcp-kubernetes",
				Args:              []string{"--read-only"},
				Tools:             []string{"resources_get"},
				InClusterFallback: true,
			},
			"remote-obs": {
				URL:   "https://observability.example.com/mcp",
				Tools: []string{"query_metrics"},
			},
		},
		Subagents: map[string]*config.SubagentConfig{
			"wc-collector": {
				Description:      "  Collects workload cluster state  ",
				SystemPromptFile: "prompts/wc-collector.md",
				MCPServers:       []string{"kubernetes-wc"},
				PromptVariables:  map[string]string{"wc_cluster": "gauss"},
			},
			"mc-collector": {
				Description:      "Collects management cluster state",
				SystemPromptFile: "prompts/mc-collector.md",
				MCPServers:       []string{"kubernetes-mc"},
			},
		},
		Assistants: map[string]*config.AssistantConfig{
			"investigator": {
				Description:      "Coordinates cluster diagnostics",
				SystemPromptFile: "prompts/investigator.md",
				MCPServers:       []string{"remote-obs"},
				Subagents:        []string{"wc-collector", "mc-collector"},
			},
		},
		AssistantOrder: []string{"investigator"},
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("fixture config invalid: %v", err)
	}
	return cfg, baseDir
}

func TestBuildServerSpec_FiltersEmptyEnv(t *testing.T) {
	cfg, _ := testConfig(t)

	spec := BuildServerSpec("kubernetes-wc", cfg.MCPServers["kubernetes-wc"])
	local, ok := spec.Endpoint.(config.LocalCommand)
	if !ok {
		t.Fatalf("expected LocalCommand, got %T", spec.Endpoint)
	}
	if _, present := local.Env["EMPTY"]; present {
		t.Error("empty env value must be dropped")
	}
	if local.Env["KUBECONFIG"] != "/etc/wc-kubeconfig" {
		t.Errorf("env = %v", local.Env)
	}
}

func TestBuildServerSpec_InClusterFallback(t *testing.T) {
	cfg, _ := testConfig(t)

	spec := BuildServerSpec("kubernetes-mc", cfg.MCPServers["kubernetes-mc"])
	local := spec.Endpoint.(config.LocalCommand)
	if !hasArg(local.Args, config.InClusterArg) {
		t.Errorf("expected %s appended, got %v", config.InClusterArg, local.Args)
	}

	// Applying the fallback twice must not duplicate the flag.
	again := BuildServerSpec("kubernetes-mc", cfg.MCPServers["kubernetes-mc"])
	count := 0
	for _, a := range again.Endpoint.(config.LocalCommand).Args {
		if a == config.InClusterArg {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one %s, got args %v", config.InClusterArg, again.Endpoint.(config.LocalCommand).Args)
	}
}

func TestBuildServerSpec_FallbackSkippedWhenEnvSet(t *testing.T) {
	mc := &config.MCPServerConfig{
		Command:           "/bin/mcp",
		Env:               map[string]string{"TOKEN": "abc"},
		InClusterFallback: true,
	}

	spec := BuildServerSpec("k8s", mc)
	if hasArg(spec.Endpoint.(config.LocalCommand).Args, config.InClusterArg) {
		t.Error("fallback must not apply when env vars are set")
	}
}

func TestBuildServerSpec_DoesNotMutateConfig(t *testing.T) {
	cfg, _ := testConfig(t)
	mc := cfg.MCPServers["kubernetes-mc"]

	BuildServerSpec("kubernetes-mc", mc)
	if hasArg(mc.Args, config.InClusterArg) {
		t.Errorf("config args mutated: %v", mc.Args)
	}
}

func TestBuildServerSpecs_UnionFirstSeenWins(t *testing.T) {
	cfg, _ := testConfig(t)
	// Make a subagent reference a server the assistant already uses.
	cfg.Subagents["wc-collector"].MCPServers = []string{"remote-obs", "kubernetes-wc"}

	specs, err := BuildServerSpecs(cfg, "investigator")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	want := []string{"remote-obs", "kubernetes-wc", "kubernetes-mc"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("server order = %v, want %v", names, want)
	}
}

func TestBuildServerSpecs_UnknownAssistant(t *testing.T) {
	cfg, _ := testConfig(t)
	if _, err := BuildServerSpecs(cfg, "nope"); err == nil {
		t.Error("expected error for unknown assistant")
	}
}

func TestToolsForSubagent_RestrictedToOwnServers(t *testing.T) {
	cfg, _ := testConfig(t)

	wcTools, err := ToolsForSubagent(cfg, "wc-collector")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"mcp__kubernetes-wc__pods_list", "mcp__kubernetes-wc__pods_log"}
	if strings.Join(wcTools, ",") != strings.Join(want, ",") {
		t.Errorf("wc tools = %v, want %v", wcTools, want)
	}

	mcTools, err := ToolsForSubagent(cfg, "mc-collector")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The collectors' tool surfaces must not overlap.
	for _, wc := range wcTools {
		for _, mc := range mcTools {
			if wc == mc {
				t.Errorf("tool %s visible to both collectors", wc)
			}
		}
	}
}

func TestToolsForSubagent_ExplicitOverrideIsWholeSurface(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.Subagents["wc-collector"].AllowedTools = []string{"mcp__kubernetes-wc__pods_list"}

	tools, err := ToolsForSubagent(cfg, "wc-collector")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"mcp__kubernetes-wc__pods_list"}
	if strings.Join(tools, ",") != strings.Join(want, ",") {
		t.Errorf("restricted tools = %v, want exactly %v", tools, want)
	}
}

func TestToolsForAssistant_DirectServersOnly(t *testing.T) {
	cfg, _ := testConfig(t)

	tools, err := ToolsForAssistant(cfg, "investigator")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tools) != 1 || tools[0] != "mcp__remote-obs__query_metrics" {
		t.Errorf("assistant tools = %v", tools)
	}
	for _, tool := range tools {
		if strings.Contains(tool, "kubernetes-wc") || strings.Contains(tool, "kubernetes-mc") {
			t.Errorf("subagent server tool leaked to assistant: %s", tool)
		}
	}
}

func TestBuildAgentDefinitions(t *testing.T) {
	cfg, baseDir := testConfig(t)

	defs, err := BuildAgentDefinitions(cfg, "investigator", baseDir, map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}

	wc := defs[0]
	if wc.Name != "wc-collector" {
		t.Errorf("first definition = %s, want wc-collector (declared order)", wc.Name)
	}
	if wc.Description != "Collects workload cluster state" {
		t.Errorf("description not trimmed: %q", wc.Description)
	}
	if wc.Prompt != "Inspect workloads in gauss." {
		t.Errorf("prompt variables not substituted: %q", wc.Prompt)
	}
	if wc.Model != config.DefaultCollectorModel {
		t.Errorf("model = %s, want collector default", wc.Model)
	}
	if len(wc.Tools) != 2 || !strings.HasPrefix(wc.Tools[0], "mcp__kubernetes-wc__") {
		t.Errorf("tools = %v", wc.Tools)
	}
}

func TestBuildAgentDefinitions_MissingPromptFile(t *testing.T) {
	cfg, baseDir := testConfig(t)
	cfg.Subagents["wc-collector"].SystemPromptFile = "prompts/absent.md"

	_, err := BuildAgentDefinitions(cfg, "investigator", baseDir, map[string]string{})
	if err == nil {
		t.Fatal("expected error for missing prompt file")
	}
	if !strings.Contains(err.Error(), "wc-collector") {
		t.Errorf("expected subagent named in error, got %v", err)
	}
}

func hasArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}
