package config

import (
	"fmt"
	"os"
	"strconv"
)

// Settings holds process-level configuration read from the
// environment. Per-assistant behavior lives in ShootConfig; Settings
// covers what the process needs before any configuration file is
// loaded: credentials, cluster access, telemetry and server wiring.
type Settings struct {
	// Anthropic API
	AnthropicAPIKey  string // ANTHROPIC_API_KEY
	CoordinatorModel string // ANTHROPIC_COORDINATOR_MODEL
	CollectorModel   string // ANTHROPIC_COLLECTOR_MODEL

	// Kubernetes
	Kubeconfig        string // KUBECONFIG: workload cluster kubeconfig
	MCKubeconfig      string // MC_KUBECONFIG: management cluster kubeconfig, in-cluster auth when empty
	MCPKubernetesPath string // MCP_KUBERNETES_PATH: mcp-kubernetes binary
	WCCluster         string // WC_CLUSTER: workload cluster name for prompt substitution
	OrgNamespace      string // ORG_NS: organization namespace for prompt substitution

	// Investigation defaults
	TimeoutSeconds int // SHOOT_TIMEOUT_SECONDS
	MaxTurns       int // SHOOT_MAX_TURNS

	// HTTP server
	Port int // SHOOT_PORT

	// OpenTelemetry
	OTLPEndpoint string // OTEL_EXPORTER_OTLP_ENDPOINT
	ServiceName  string // OTEL_SERVICE_NAME

	// Development
	Debug bool // DEBUG

	// Configuration file
	ConfigPath string // SHOOT_CONFIG
}

// LoadSettings reads Settings from the environment, applying defaults
// and validating ranges. Call LoadDotEnv first if .env support is
// wanted.
func LoadSettings() (*Settings, error) {
	s := &Settings{
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		CoordinatorModel:  envOr("ANTHROPIC_COORDINATOR_MODEL", DefaultOrchestratorModel),
		CollectorModel:    envOr("ANTHROPIC_COLLECTOR_MODEL", DefaultCollectorModel),
		Kubeconfig:        os.Getenv("KUBECONFIG"),
		MCKubeconfig:      os.Getenv("MC_KUBECONFIG"),
		MCPKubernetesPath: envOr("MCP_KUBERNETES_PATH", "/usr/local/bin/mcp-kubernetes"),
		WCCluster:         envOr("WC_CLUSTER", "workload cluster"),
		OrgNamespace:      envOr("ORG_NS", "organization namespace"),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:       envOr("OTEL_SERVICE_NAME", "shoot"),
		ConfigPath:        os.Getenv(EnvConfigPath),
	}

	var err error
	if s.TimeoutSeconds, err = envInt("SHOOT_TIMEOUT_SECONDS", DefaultInvestigationTimeout, 30, 600); err != nil {
		return nil, err
	}
	if s.MaxTurns, err = envInt("SHOOT_MAX_TURNS", DefaultInvestigationMaxTurns, 5, 50); err != nil {
		return nil, err
	}
	if s.Port, err = envInt("SHOOT_PORT", 8080, 1, 65535); err != nil {
		return nil, err
	}
	if s.Debug, err = envBool("DEBUG", false); err != nil {
		return nil, err
	}

	return s, nil
}

// PromptVariables returns the settings-derived template variables every
// prompt may reference.
func (s *Settings) PromptVariables() map[string]string {
	return map[string]string{
		"wc_cluster": s.WCCluster,
		"org_ns":     s.OrgNamespace,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback, min, max int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", key, v, err)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("%s must be between %d and %d, got %d", key, min, max, n)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s '%s': %w", key, v, err)
	}
	return b, nil
}
