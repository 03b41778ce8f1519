package config

import (
	"fmt"
	"os"
)

// LoadPrompt reads a system prompt file and applies two substitution
// passes: environment expansion (${VAR} / ${VAR:-default}) followed by
// template variable substitution over the configured prompt variables.
// Template variable values are themselves env-expanded before
// substitution. Unknown placeholders are left untouched.
func LoadPrompt(path string, env map[string]string, variables map[string]string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file '%s': %w", path, err)
	}

	text := ExpandEnvVar(string(data), env)

	if len(variables) > 0 {
		expanded := make(map[string]string, len(variables))
		for k, v := range variables {
			expanded[k] = ExpandEnvVar(v, env)
		}
		text = SubstituteVariables(text, expanded)
	}

	return text, nil
}

// MergeVariables overlays request-time variables onto configured
// prompt variables, honoring an allow-list. Only keys present in
// allowed may be overridden; everything else in overrides is silently
// dropped. The base map is not mutated.
func MergeVariables(base map[string]string, overrides map[string]string, allowed []string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	if len(overrides) == 0 || len(allowed) == 0 {
		return merged
	}

	allowSet := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		allowSet[k] = struct{}{}
	}
	for k, v := range overrides {
		if _, ok := allowSet[k]; ok {
			merged[k] = v
		}
	}
	return merged
}
