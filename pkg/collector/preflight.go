package collector

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/shoot/pkg/config"
)

// serviceAccountTokenPath is where Kubernetes mounts the in-cluster
// service account token.
const serviceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// CheckResult is the outcome of a single preflight check.
type CheckResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error"`
}

// PreflightResults maps check name to outcome. Check names are stable:
// wc_config, mc_config, anthropic_api, mcp_binary.
type PreflightResults map[string]CheckResult

// AllValid reports whether every check passed.
func (r PreflightResults) AllValid() bool {
	for _, res := range r {
		if !res.Valid {
			return false
		}
	}
	return true
}

// RunPreflightChecks validates the process environment before serving
// investigations: cluster credentials, API key, and the MCP binary.
// Checks run concurrently; each failure is reported in its result
// rather than aborting the run.
func RunPreflightChecks(ctx context.Context, settings *config.Settings) PreflightResults {
	results := make(PreflightResults, 4)
	var mu sync.Mutex

	record := func(name string, valid bool, errMsg string) {
		mu.Lock()
		results[name] = CheckResult{Valid: valid, Error: errMsg}
		mu.Unlock()
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		valid, msg := checkWorkloadCluster(settings)
		record("wc_config", valid, msg)
		return nil
	})
	g.Go(func() error {
		valid, msg := checkManagementCluster(settings)
		record("mc_config", valid, msg)
		return nil
	})
	g.Go(func() error {
		valid, msg := checkAnthropicAPIKey(settings)
		record("anthropic_api", valid, msg)
		return nil
	})
	g.Go(func() error {
		valid, msg := checkMCPBinary(settings)
		record("mcp_binary", valid, msg)
		return nil
	})
	_ = g.Wait()

	return results
}

// checkWorkloadCluster verifies KUBECONFIG is set and the file exists.
func checkWorkloadCluster(settings *config.Settings) (bool, string) {
	if settings.Kubeconfig == "" {
		return false, "KUBECONFIG environment variable not set"
	}
	if !isFile(settings.Kubeconfig) {
		return false, fmt.Sprintf("KUBECONFIG file not found: %s", settings.Kubeconfig)
	}
	return true, ""
}

// checkManagementCluster verifies MC access: an explicit kubeconfig
// when configured, otherwise the in-cluster service account token.
// Missing both is reported but not fatal; local development often has
// neither.
func checkManagementCluster(settings *config.Settings) (bool, string) {
	if settings.MCKubeconfig != "" {
		if !isFile(settings.MCKubeconfig) {
			return false, fmt.Sprintf("MC_KUBECONFIG file not found: %s", settings.MCKubeconfig)
		}
		return true, ""
	}

	if isFile(serviceAccountTokenPath) {
		return true, ""
	}
	return true, "Not running in-cluster (service account token not found), MC_KUBECONFIG not set"
}

// checkAnthropicAPIKey verifies the key is present and looks like an
// Anthropic key.
func checkAnthropicAPIKey(settings *config.Settings) (bool, string) {
	if settings.AnthropicAPIKey == "" {
		return false, "ANTHROPIC_API_KEY environment variable not set"
	}
	if !strings.HasPrefix(settings.AnthropicAPIKey, "sk-ant-") {
		return false, "ANTHROPIC_API_KEY does not appear to be a valid Anthropic API key"
	}
	return true, ""
}

// checkMCPBinary verifies the mcp-kubernetes binary exists and is
// executable.
func checkMCPBinary(settings *config.Settings) (bool, string) {
	info, err := os.Stat(settings.MCPKubernetesPath)
	if err != nil || info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return false, fmt.Sprintf("MCP kubernetes binary not found or not executable: %s", settings.MCPKubernetesPath)
	}
	return true, ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
