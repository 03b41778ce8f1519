// Package formatter shapes investigation results for clients: it
// parses agent text into structured data, validates it against the
// configured JSON Schema, and renders it as JSON or human-readable
// markdown.
package formatter

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/giantswarm/shoot/pkg/config"
)

// SchemaForAssistant loads the JSON Schema configured for an
// assistant's response. Both results are nil when the assistant has no
// response schema; the schema config alone is returned when the schema
// file cannot be loaded.
func SchemaForAssistant(cfg *config.ShootConfig, assistantName, baseDir string) (map[string]any, *config.ResponseSchemaConfig) {
	assistant, err := cfg.GetAssistant(assistantName)
	if err != nil || assistant.ResponseSchema == "" {
		return nil, nil
	}

	schemaConfig := cfg.GetResponseSchema(assistant.ResponseSchema)
	if schemaConfig == nil {
		return nil, nil
	}

	schema, err := LoadJSONSchema(config.ResolvePath(baseDir, schemaConfig.File))
	if err != nil {
		return nil, schemaConfig
	}
	return schema, schemaConfig
}

// LoadJSONSchema reads and parses a JSON Schema file.
func LoadJSONSchema(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file '%s': %w", path, err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("invalid JSON schema '%s': %w", path, err)
	}
	return schema, nil
}

// Format renders data per the schema config's format. Without a schema
// config the human rendering is used.
func Format(data map[string]any, schemaConfig *config.ResponseSchemaConfig, schema map[string]any) string {
	if schemaConfig != nil && schemaConfig.Format == config.FormatJSON {
		return FormatJSON(data)
	}
	return FormatHuman(data, schema)
}

// FormatJSON renders data as indented JSON.
func FormatJSON(data map[string]any) string {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(out)
}

// FormatHuman renders data as markdown: bold field titles, bullets for
// arrays, sub-bullets for nested objects. Field order follows the
// schema's required list, then remaining fields alphabetically.
func FormatHuman(data map[string]any, schema map[string]any) string {
	var lines []string
	for _, field := range fieldOrder(data, schema) {
		value := data[field]
		display := titleCase(field)

		switch v := value.(type) {
		case []any:
			lines = append(lines, fmt.Sprintf("**%s**:", display))
			for _, item := range v {
				if obj, ok := item.(map[string]any); ok {
					encoded, _ := json.Marshal(obj)
					lines = append(lines, fmt.Sprintf("  - %s", encoded))
				} else {
					lines = append(lines, fmt.Sprintf("  - %v", item))
				}
			}
		case map[string]any:
			lines = append(lines, fmt.Sprintf("**%s**:", display))
			for _, subKey := range sortedFieldNames(v) {
				lines = append(lines, fmt.Sprintf("  - %s: %v", titleCase(subKey), v[subKey]))
			}
		default:
			lines = append(lines, fmt.Sprintf("**%s**: %v", display, value))
		}
		lines = append(lines, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ContentType returns the HTTP content type matching the schema
// config's format.
func ContentType(schemaConfig *config.ResponseSchemaConfig) string {
	if schemaConfig != nil && schemaConfig.Format == config.FormatJSON {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// fieldOrder yields data's keys: schema-required fields first in their
// declared order, the rest sorted.
func fieldOrder(data map[string]any, schema map[string]any) []string {
	var order []string
	seen := make(map[string]struct{})
	for _, field := range requiredFields(schema) {
		if _, ok := data[field]; ok {
			order = append(order, field)
			seen[field] = struct{}{}
		}
	}
	rest := make([]string, 0, len(data))
	for field := range data {
		if _, ok := seen[field]; !ok {
			rest = append(rest, field)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func sortedFieldNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// requiredFields tolerates both decoded-JSON ([]any) and in-code
// ([]string) schema shapes.
func requiredFields(schema map[string]any) []string {
	if schema == nil {
		return nil
	}
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		var fields []string
		for _, r := range req {
			if s, ok := r.(string); ok {
				fields = append(fields, s)
			}
		}
		return fields
	}
	return nil
}

// titleCase renders snake_case field names for humans.
func titleCase(field string) string {
	words := strings.Split(field, "_")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}
