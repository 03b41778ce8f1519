package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR} and ${VAR:-default}.
// Group 1 is the variable name, group 2 the optional default (which may
// be empty, as in ${VAR:-}).
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// bareVarPattern matches ${VAR} with no default form. Used by the
// unexpanded-variable detection pass: patterns carrying a default are
// always resolvable and are never reported.
var bareVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ProcessEnv returns the process environment as a map, suitable for
// passing to ExpandEnvVar and friends.
func ProcessEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// ExpandEnvVar expands ${VAR} and ${VAR:-default} patterns in a string.
//
// If VAR is present in env (even as an empty string) its value is
// substituted and any default is ignored. If VAR is absent and a
// default is given, the default is substituted. A bare ${VAR} with no
// default and no env entry is left untouched; strict-mode detection
// (FindUnexpandedVars) reports those later.
func ExpandEnvVar(value string, env map[string]string) string {
	if env == nil {
		env = ProcessEnv()
	}

	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		name := parts[1]

		if v, ok := env[name]; ok {
			return v
		}
		// Distinguish "no default" from "empty default" by checking for
		// the :- marker in the original pattern.
		if strings.HasPrefix(match, "${"+name+":-") {
			return parts[2]
		}
		return match
	})
}

// ExpandValue recursively expands environment variables in a parsed
// YAML/JSON structure. Maps keep their keys, sequences keep their
// order, and non-string leaves pass through unchanged.
func ExpandValue(obj any, env map[string]string) any {
	switch v := obj.(type) {
	case string:
		return ExpandEnvVar(v, env)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = ExpandValue(item, env)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = ExpandValue(item, env)
		}
		return out
	default:
		return obj
	}
}

// FindUnexpandedVars scans an already-expanded structure and returns
// one message per remaining ${VAR} pattern that has no default form,
// annotated with a dotted/bracketed path for diagnostics.
func FindUnexpandedVars(obj any, path string) []string {
	var errs []string

	switch v := obj.(type) {
	case string:
		for _, m := range bareVarPattern.FindAllStringSubmatch(v, -1) {
			errs = append(errs, fmt.Sprintf("unexpanded environment variable ${%s} at %s", m[1], path))
		}
	case map[string]any:
		for _, k := range sortedKeys(v) {
			p := k
			if path != "" {
				p = path + "." + k
			}
			errs = append(errs, FindUnexpandedVars(v[k], p)...)
		}
	case []any:
		for i, item := range v {
			errs = append(errs, FindUnexpandedVars(item, fmt.Sprintf("%s[%d]", path, i))...)
		}
	}

	return errs
}

// SubstituteVariables substitutes ${name} template variables in text.
// Unknown names are left untouched rather than treated as errors, so a
// prompt can carry literal ${...} examples without breaking loading.
func SubstituteVariables(text string, variables map[string]string) string {
	if len(variables) == 0 {
		return text
	}
	return envVarPattern.ReplaceAllStringFunc(text, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if v, ok := variables[parts[1]]; ok {
			return v
		}
		return match
	})
}
