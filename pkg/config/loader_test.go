package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testConfigYAML = `
version: "1.0"

defaults:
  models:
    orchestrator: ${ORCHESTRATOR_MODEL:-claude-sonnet-4-5-20250929}

response_schemas:
  diagnostic_report:
    file: schemas/diagnostic_report.json
    description: Structured diagnostic findings
    format: json

mcp_servers:
  kubernetes-wc:
    command: /usr/local/bin/mcp-kubernetes
    args: ["--read-only"]
    env:
      KUBECONFIG: ${KUBECONFIG:-/etc/kubeconfig}
    tools: [pods_list, pods_log]

subagents:
  wc-collector:
    description: Collects workload cluster state
    system_prompt_file: prompts/wc-collector.md
    mcp_servers: [kubernetes-wc]

assistants:
  investigator:
    description: Coordinates cluster diagnostics
    system_prompt_file: prompts/investigator.md
    subagents: [wc-collector]
    response_schema: diagnostic_report
`

// writeTestConfig materializes a config file plus every file it
// references under a temp dir.
func writeTestConfig(t *testing.T, configYAML string) string {
	t.Helper()
	tmpDir := t.TempDir()

	for _, rel := range []string{
		"schemas/diagnostic_report.json",
		"prompts/wc-collector.md",
		"prompts/investigator.md",
	} {
		path := filepath.Join(tmpDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte("placeholder"), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}

	configFile := filepath.Join(tmpDir, "shoot.yaml")
	if err := os.WriteFile(configFile, []byte(configYAML), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configFile
}

func TestLoad_ValidConfig(t *testing.T) {
	configFile := writeTestConfig(t, testConfigYAML)

	cfg, err := Load(configFile, LoadOptions{Env: map[string]string{}})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Version != "1.0" {
		t.Errorf("version = %s, want 1.0", cfg.Version)
	}
	if cfg.Defaults.Models.Orchestrator != "claude-sonnet-4-5-20250929" {
		t.Errorf("orchestrator model = %s", cfg.Defaults.Models.Orchestrator)
	}
	if got := cfg.MCPServers["kubernetes-wc"].Env["KUBECONFIG"]; got != "/etc/kubeconfig" {
		t.Errorf("env default not applied, got %s", got)
	}
	if len(cfg.AssistantOrder) != 1 || cfg.AssistantOrder[0] != "investigator" {
		t.Errorf("assistant order = %v", cfg.AssistantOrder)
	}
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	configFile := writeTestConfig(t, testConfigYAML)

	cfg, err := Load(configFile, LoadOptions{Env: map[string]string{
		"ORCHESTRATOR_MODEL": "claude-opus-4",
	}})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Defaults.Models.Orchestrator != "claude-opus-4" {
		t.Errorf("orchestrator model = %s, want claude-opus-4", cfg.Defaults.Models.Orchestrator)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), LoadOptions{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !IsConfigError(err) {
		t.Errorf("expected ConfigError, got %T", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "bad.yaml")
	os.WriteFile(configFile, []byte("assistants: [unclosed"), 0o644)

	if _, err := Load(configFile, LoadOptions{}); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_NullDocumentIsEmptyConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "empty.yaml")
	os.WriteFile(configFile, []byte("# comments only\n"), 0o644)

	cfg, err := Load(configFile, LoadOptions{})
	if err != nil {
		t.Fatalf("null document should load as empty config, got %v", err)
	}
	if len(cfg.Assistants) != 0 {
		t.Errorf("expected no assistants, got %d", len(cfg.Assistants))
	}
}

func TestLoad_NonMappingDocument(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "list.yaml")
	os.WriteFile(configFile, []byte("- just\n- a\n- list\n"), 0o644)

	if _, err := Load(configFile, LoadOptions{}); err == nil {
		t.Fatal("expected error for non-mapping document")
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	configFile := writeTestConfig(t, testConfigYAML+"\nunknown_section: {}\n")

	_, err := Load(configFile, LoadOptions{})
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "unknown_section") {
		t.Errorf("expected unknown field named in error, got %v", err)
	}
}

func TestLoad_StrictReportsAllUnexpandedVars(t *testing.T) {
	yaml := strings.ReplaceAll(testConfigYAML,
		"command: /usr/local/bin/mcp-kubernetes",
		"command: ${MCP_BIN}")
	yaml = strings.ReplaceAll(yaml,
		"KUBECONFIG: ${KUBECONFIG:-/etc/kubeconfig}",
		"KUBECONFIG: ${KUBECONFIG}")
	configFile := writeTestConfig(t, yaml)

	_, err := Load(configFile, LoadOptions{Env: map[string]string{}, Strict: true})
	if err == nil {
		t.Fatal("expected strict mode to reject unexpanded variables")
	}
	msg := err.Error()
	if !strings.Contains(msg, "${MCP_BIN}") || !strings.Contains(msg, "${KUBECONFIG}") {
		t.Errorf("expected every unexpanded variable reported, got %v", err)
	}
	if !strings.Contains(msg, "mcp_servers.kubernetes-wc.command") {
		t.Errorf("expected dotted path in report, got %v", err)
	}
}

func TestLoad_NonStrictLeavesUnexpandedVars(t *testing.T) {
	yaml := strings.ReplaceAll(testConfigYAML,
		"KUBECONFIG: ${KUBECONFIG:-/etc/kubeconfig}",
		"KUBECONFIG: ${KUBECONFIG}")
	configFile := writeTestConfig(t, yaml)

	cfg, err := Load(configFile, LoadOptions{Env: map[string]string{}})
	if err != nil {
		t.Fatalf("non-strict load should succeed, got %v", err)
	}
	if got := cfg.MCPServers["kubernetes-wc"].Env["KUBECONFIG"]; got != "${KUBECONFIG}" {
		t.Errorf("expected pattern preserved, got %s", got)
	}
}

func TestLoad_DanglingReference(t *testing.T) {
	yaml := strings.ReplaceAll(testConfigYAML,
		"subagents: [wc-collector]",
		"subagents: [wc-collector, ghost]")
	configFile := writeTestConfig(t, yaml)

	_, err := Load(configFile, LoadOptions{})
	if err == nil {
		t.Fatal("expected error for dangling subagent reference")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("expected dangling name in error, got %v", err)
	}
}

func TestLoad_MissingReferencedFile(t *testing.T) {
	configFile := writeTestConfig(t, testConfigYAML)
	os.Remove(filepath.Join(filepath.Dir(configFile), "prompts", "investigator.md"))

	_, err := Load(configFile, LoadOptions{})
	if err == nil {
		t.Fatal("expected error for missing prompt file")
	}
	if !strings.Contains(err.Error(), "investigator.md") {
		t.Errorf("expected missing file named in error, got %v", err)
	}
}

func TestLoad_AssistantOrderFollowsDocument(t *testing.T) {
	yaml := testConfigYAML + `
  zz-secondary:
    description: Declared after investigator
    system_prompt_file: prompts/investigator.md
  aa-tertiary:
    description: Sorts first alphabetically
    system_prompt_file: prompts/investigator.md
`
	configFile := writeTestConfig(t, yaml)

	cfg, err := Load(configFile, LoadOptions{})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	want := []string{"investigator", "zz-secondary", "aa-tertiary"}
	if len(cfg.AssistantOrder) != len(want) {
		t.Fatalf("assistant order = %v, want %v", cfg.AssistantOrder, want)
	}
	for i := range want {
		if cfg.AssistantOrder[i] != want[i] {
			t.Fatalf("assistant order = %v, want %v", cfg.AssistantOrder, want)
		}
	}

	name, err := cfg.DefaultAssistant()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "investigator" {
		t.Errorf("default assistant = %s, want investigator", name)
	}
}
