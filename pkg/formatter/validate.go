package formatter

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validate checks data against the JSON Schema and returns whether it
// conforms plus the list of violations. A nil schema always validates.
// Schemas the compiler rejects fall back to a structural check of
// required fields and property types.
func Validate(data map[string]any, schema map[string]any) (bool, []string) {
	if schema == nil {
		return true, nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", toAny(schema)); err != nil {
		return basicValidate(data, schema)
	}
	sch, err := compiler.Compile("schema.json")
	if err != nil {
		return basicValidate(data, schema)
	}

	if err := sch.Validate(toAny(data)); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return false, leafMessages(ve)
		}
		return false, []string{err.Error()}
	}
	return true, nil
}

// leafMessages flattens a validation error tree into its most specific
// messages.
func leafMessages(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		return []string{ve.Error()}
	}
	var msgs []string
	for _, cause := range ve.Causes {
		msgs = append(msgs, leafMessages(cause)...)
	}
	return msgs
}

// basicValidate covers required fields and primitive property types
// without a compiled schema.
func basicValidate(data map[string]any, schema map[string]any) (bool, []string) {
	var errs []string
	for _, field := range requiredFields(schema) {
		if _, ok := data[field]; !ok {
			errs = append(errs, fmt.Sprintf("missing required field: %s", field))
		}
	}
	if properties, ok := schema["properties"].(map[string]any); ok {
		for field, rawProp := range properties {
			value, present := data[field]
			prop, isMap := rawProp.(map[string]any)
			if !present || !isMap {
				continue
			}
			expected, _ := prop["type"].(string)
			if expected != "" && !matchesType(value, expected) {
				errs = append(errs, fmt.Sprintf("field '%s' has wrong type (expected %s)", field, expected))
			}
		}
	}
	return len(errs) == 0, errs
}

func matchesType(value any, schemaType string) bool {
	switch schemaType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, int:
			return true
		}
		return false
	case "integer":
		switch v := value.(type) {
		case int:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "null":
		return value == nil
	}
	return true
}

// toAny deep-copies a decoded-JSON value so in-code schemas holding
// []string slices validate the same as file-loaded ones.
func toAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = toAny(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = toAny(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case int:
		return float64(t)
	default:
		return v
	}
}

// ValidationSummary joins violations for logs.
func ValidationSummary(errs []string) string {
	return strings.Join(errs, "; ")
}
