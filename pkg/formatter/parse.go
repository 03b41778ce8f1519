package formatter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	jsonFencePattern = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")
	fieldHeaderLine  = regexp.MustCompile(`(?i)^\s*(?:-\s*)?\*\*([a-z0-9_]+)\*\*:\s*(.*)$`)
	bulletLine       = regexp.MustCompile("^\\s*-\\s*`?(.*?)`?\\s*$")
)

// ParseStructured extracts structured data from agent text. It tries,
// in order: a fenced ```json block, the whole text as JSON, and a
// markdown rendering matching the schema's fields. Malformed JSON in
// the first two tiers is run through jsonrepair before giving up.
func ParseStructured(text string, schema map[string]any) (map[string]any, error) {
	if m := jsonFencePattern.FindStringSubmatch(text); m != nil {
		if data, err := decodeObject(m[1]); err == nil {
			return data, nil
		}
	}

	if data, err := decodeObject(text); err == nil {
		return data, nil
	}

	if data := parseMarkdownBySchema(text, schema); data != nil {
		return data, nil
	}
	return nil, fmt.Errorf("response contains no parseable structured data")
}

// decodeObject parses s as a JSON object, repairing it first when the
// strict parse fails.
func decodeObject(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	var data map[string]any
	if err := json.Unmarshal([]byte(s), &data); err == nil {
		return data, nil
	}
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, fmt.Errorf("not valid JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &data); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}
	return data, nil
}

// parseMarkdownBySchema scans markdown for the schema's fields
// rendered as **field**: headers. Array-typed fields collect the
// bullet lines that follow; scalar fields take the inline value.
// Returns nil unless every required field was found with content.
func parseMarkdownBySchema(text string, schema map[string]any) map[string]any {
	required := requiredFields(schema)
	if len(required) == 0 {
		return nil
	}
	properties, _ := schema["properties"].(map[string]any)

	data := make(map[string]any)
	var current string
	var items []any

	flush := func() {
		if current != "" && isArrayField(properties, current) {
			if len(items) > 0 {
				data[current] = items
			}
		}
		current = ""
		items = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if m := fieldHeaderLine.FindStringSubmatch(line); m != nil {
			flush()
			field := strings.ToLower(m[1])
			if !isSchemaField(properties, required, field) {
				continue
			}
			if isArrayField(properties, field) {
				current = field
				continue
			}
			if value := strings.Trim(strings.TrimSpace(m[2]), "`"); value != "" {
				data[field] = value
			}
			continue
		}
		if current == "" {
			continue
		}
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			if item := strings.TrimSpace(m[1]); item != "" {
				items = append(items, item)
			}
		} else if strings.TrimSpace(line) != "" {
			flush()
		}
	}
	flush()

	for _, field := range required {
		if _, ok := data[field]; !ok {
			return nil
		}
	}
	return data
}

func isSchemaField(properties map[string]any, required []string, field string) bool {
	if _, ok := properties[field]; ok {
		return true
	}
	for _, r := range required {
		if r == field {
			return true
		}
	}
	return false
}

func isArrayField(properties map[string]any, field string) bool {
	prop, ok := properties[field].(map[string]any)
	if !ok {
		return false
	}
	return prop["type"] == "array"
}
