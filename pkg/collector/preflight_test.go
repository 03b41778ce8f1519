package collector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/giantswarm/shoot/pkg/config"
)

func preflightSettings(t *testing.T) *config.Settings {
	t.Helper()
	tmpDir := t.TempDir()

	kubeconfig := filepath.Join(tmpDir, "kubeconfig")
	if err := os.WriteFile(kubeconfig, []byte("apiVersion: v1"), 0o600); err != nil {
		t.Fatalf("failed to write kubeconfig: %v", err)
	}
	binary := filepath.Join(tmpDir, "mcp-kubernetes")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("failed to write binary: %v", err)
	}

	return &config.Settings{
		AnthropicAPIKey:   "sk-ant-test-key",
		Kubeconfig:        kubeconfig,
		MCKubeconfig:      kubeconfig,
		MCPKubernetesPath: binary,
	}
}

func TestRunPreflightChecks_AllValid(t *testing.T) {
	results := RunPreflightChecks(context.Background(), preflightSettings(t))

	for _, name := range []string{"wc_config", "mc_config", "anthropic_api", "mcp_binary"} {
		res, ok := results[name]
		if !ok {
			t.Fatalf("missing check %s", name)
		}
		if !res.Valid {
			t.Errorf("check %s failed: %s", name, res.Error)
		}
	}
	if !results.AllValid() {
		t.Error("expected all checks valid")
	}
}

func TestRunPreflightChecks_MissingKubeconfig(t *testing.T) {
	settings := preflightSettings(t)
	settings.Kubeconfig = ""

	results := RunPreflightChecks(context.Background(), settings)
	if results["wc_config"].Valid {
		t.Error("expected wc_config check to fail")
	}
	if !strings.Contains(results["wc_config"].Error, "KUBECONFIG") {
		t.Errorf("error = %s", results["wc_config"].Error)
	}
	if results.AllValid() {
		t.Error("expected AllValid false")
	}
}

func TestRunPreflightChecks_BadAPIKey(t *testing.T) {
	settings := preflightSettings(t)
	settings.AnthropicAPIKey = "not-an-anthropic-key"

	results := RunPreflightChecks(context.Background(), settings)
	if results["anthropic_api"].Valid {
		t.Error("expected anthropic_api check to fail on malformed key")
	}

	settings.AnthropicAPIKey = ""
	results = RunPreflightChecks(context.Background(), settings)
	if results["anthropic_api"].Valid {
		t.Error("expected anthropic_api check to fail on missing key")
	}
}

func TestRunPreflightChecks_MCFallsBackWithWarning(t *testing.T) {
	settings := preflightSettings(t)
	settings.MCKubeconfig = ""

	results := RunPreflightChecks(context.Background(), settings)
	res := results["mc_config"]
	// Without MC_KUBECONFIG and outside a cluster the check degrades to
	// a warning rather than a failure.
	if !res.Valid {
		t.Errorf("expected mc_config valid with warning, got %v", res)
	}
	if res.Error == "" {
		t.Error("expected warning message")
	}
}

func TestRunPreflightChecks_NonExecutableBinary(t *testing.T) {
	settings := preflightSettings(t)
	if err := os.Chmod(settings.MCPKubernetesPath, 0o644); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}

	results := RunPreflightChecks(context.Background(), settings)
	if results["mcp_binary"].Valid {
		t.Error("expected mcp_binary check to fail for non-executable file")
	}
}
