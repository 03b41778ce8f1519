package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ConfigError is returned for every load-time configuration failure:
// missing file, invalid YAML, schema violations, dangling references,
// missing referenced files, and strict-mode unexpanded variables.
// Problems aggregates every violation found in one pass.
type ConfigError struct {
	Path     string
	Message  string
	Problems []string
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	if len(e.Problems) > 0 {
		msg += ":\n  " + strings.Join(e.Problems, "\n  ")
	}
	return msg
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// LoadOptions controls a single Load call.
type LoadOptions struct {
	// Env overrides the process environment for ${VAR} expansion.
	Env map[string]string

	// Strict makes any remaining ${VAR} without a default a load error.
	Strict bool
}

// Load reads, expands, decodes and validates a shoot configuration
// file. The pipeline is:
//
//  1. parse YAML (a document that parses to null is an empty mapping)
//  2. expand ${VAR} / ${VAR:-default} over every string leaf
//  3. strict mode: report every remaining default-less ${VAR}
//  4. strict-decode into the schema (unknown fields are errors)
//  5. validate per-section invariants and cross-references
//  6. validate that referenced files exist relative to the config dir
//
// Every failure is a *ConfigError carrying all violations found.
func Load(path string, opts LoadOptions) (*ShootConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Message: fmt.Sprintf("configuration file not found or unreadable: %v", err)}
	}

	raw, err := parseMapping(data)
	if err != nil {
		return nil, &ConfigError{Path: path, Message: err.Error()}
	}

	if opts.Env == nil {
		opts.Env = ProcessEnv()
	}
	expanded, _ := ExpandValue(raw, opts.Env).(map[string]any)
	if expanded == nil {
		expanded = map[string]any{}
	}

	if opts.Strict {
		if unexpanded := FindUnexpandedVars(expanded, ""); len(unexpanded) > 0 {
			return nil, &ConfigError{Path: path, Message: "configuration has unexpanded variables", Problems: unexpanded}
		}
	}

	cfg := &ShootConfig{}
	if err := decodeConfig(expanded, cfg); err != nil {
		return nil, &ConfigError{Path: path, Message: fmt.Sprintf("configuration validation failed: %v", err)}
	}
	cfg.AssistantOrder = assistantOrder(data)

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Path: path, Message: fmt.Sprintf("configuration validation failed: %v", err)}
	}

	if refErrs := cfg.ValidateReferences(); len(refErrs) > 0 {
		return nil, &ConfigError{Path: path, Message: "configuration has invalid references", Problems: refErrs}
	}

	baseDir := filepath.Dir(path)
	if fileErrs := cfg.ValidateFiles(baseDir); len(fileErrs) > 0 {
		return nil, &ConfigError{Path: path, Message: "configuration references missing files", Problems: fileErrs}
	}

	return cfg, nil
}

// parseMapping parses YAML into a string-keyed map. A null document is
// treated as an empty mapping; anything else non-mapping is an error.
func parseMapping(data []byte) (map[string]any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML: %v", err)
	}
	if raw == nil {
		return map[string]any{}, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("configuration file must contain a YAML mapping")
	}
	return m, nil
}

// decodeConfig strictly decodes an expanded map into the schema.
// Unknown fields are errors so typos surface at load time instead of
// silently configuring nothing.
func decodeConfig(input map[string]any, out *ShootConfig) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "yaml",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return err
	}
	return nil
}

// assistantOrder extracts the assistants section's key order from the
// raw YAML document. Go maps do not preserve insertion order, and the
// "first available assistant" default must be deterministic.
func assistantOrder(data []byte) []string {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "assistants" {
			continue
		}
		section := root.Content[i+1]
		if section.Kind != yaml.MappingNode {
			return nil
		}
		names := make([]string, 0, len(section.Content)/2)
		for j := 0; j+1 < len(section.Content); j += 2 {
			names = append(names, section.Content[j].Value)
		}
		return names
	}
	return nil
}
