package formatter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/shoot/pkg/config"
)

func reportSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"failure_signal": map[string]any{"type": "string"},
			"summary": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"likely_cause": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []any{"failure_signal", "summary", "likely_cause"},
		"additionalProperties": false,
	}
}

func reportData() map[string]any {
	return map[string]any{
		"failure_signal": "CrashLoopBackOff in kube-system",
		"summary":        []any{"coredns pod restarting", "readiness probe failing"},
		"likely_cause":   []any{"bad corefile"},
	}
}

func TestFormatJSON(t *testing.T) {
	out := FormatJSON(map[string]any{"failure_signal": "oom"})
	assert.JSONEq(t, `{"failure_signal": "oom"}`, out)
	assert.Contains(t, out, "\n", "output should be indented")
}

func TestFormatHumanOrdersRequiredFirst(t *testing.T) {
	data := reportData()
	data["extra_note"] = "unscheduled observation"

	out := FormatHuman(data, reportSchema())

	sig := indexOf(t, out, "**Failure Signal**: CrashLoopBackOff in kube-system")
	sum := indexOf(t, out, "**Summary**:")
	cause := indexOf(t, out, "**Likely Cause**:")
	extra := indexOf(t, out, "**Extra Note**: unscheduled observation")
	assert.Less(t, sig, sum)
	assert.Less(t, sum, cause)
	assert.Less(t, cause, extra)
	assert.Contains(t, out, "  - coredns pod restarting")
}

func TestFormatHumanNestedObject(t *testing.T) {
	out := FormatHuman(map[string]any{
		"context": map[string]any{"cluster": "gauss", "namespace": "kube-system"},
	}, nil)
	assert.Contains(t, out, "**Context**:")
	assert.Contains(t, out, "  - Cluster: gauss")
	assert.Contains(t, out, "  - Namespace: kube-system")
}

func TestFormatFollowsSchemaConfig(t *testing.T) {
	data := map[string]any{"failure_signal": "oom"}
	jsonOut := Format(data, &config.ResponseSchemaConfig{Format: config.FormatJSON}, nil)
	assert.JSONEq(t, `{"failure_signal": "oom"}`, jsonOut)

	humanOut := Format(data, &config.ResponseSchemaConfig{Format: config.FormatHuman}, nil)
	assert.Contains(t, humanOut, "**Failure Signal**: oom")
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", ContentType(&config.ResponseSchemaConfig{Format: config.FormatJSON}))
	assert.Equal(t, "text/plain; charset=utf-8", ContentType(&config.ResponseSchemaConfig{Format: config.FormatHuman}))
	assert.Equal(t, "text/plain; charset=utf-8", ContentType(nil))
}

func TestParseStructuredJSONFence(t *testing.T) {
	text := "Here is the report:\n```json\n{\"failure_signal\": \"oom\", \"summary\": [\"a\"], \"likely_cause\": [\"b\"]}\n```\nDone."
	data, err := ParseStructured(text, reportSchema())
	require.NoError(t, err)
	assert.Equal(t, "oom", data["failure_signal"])
}

func TestParseStructuredWholeTextJSON(t *testing.T) {
	data, err := ParseStructured(`{"failure_signal": "oom", "summary": ["a"], "likely_cause": ["b"]}`, reportSchema())
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, data["summary"])
}

func TestParseStructuredRepairsMalformedJSON(t *testing.T) {
	// Trailing comma and single quotes, the usual model output damage.
	text := "```json\n{'failure_signal': 'oom', 'summary': ['a'], 'likely_cause': ['b'],}\n```"
	data, err := ParseStructured(text, reportSchema())
	require.NoError(t, err)
	assert.Equal(t, "oom", data["failure_signal"])
}

func TestParseStructuredMarkdownFallback(t *testing.T) {
	text := `**failure_signal**: CrashLoopBackOff in kube-system

**summary**:
- coredns pod restarting
- ` + "`readiness probe failing`" + `

**likely_cause**:
- bad corefile
`
	data, err := ParseStructured(text, reportSchema())
	require.NoError(t, err)
	assert.Equal(t, "CrashLoopBackOff in kube-system", data["failure_signal"])
	assert.Equal(t, []any{"coredns pod restarting", "readiness probe failing"}, data["summary"])
	assert.Equal(t, []any{"bad corefile"}, data["likely_cause"])
}

func TestParseStructuredMarkdownMissingRequiredField(t *testing.T) {
	text := "**summary**:\n- something happened\n"
	_, err := ParseStructured(text, reportSchema())
	assert.Error(t, err)
}

func TestParseStructuredProseFails(t *testing.T) {
	_, err := ParseStructured("The cluster looks healthy to me.", reportSchema())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	ok, errs := Validate(reportData(), reportSchema())
	assert.True(t, ok, "unexpected violations: %v", errs)

	missing := reportData()
	delete(missing, "likely_cause")
	ok, errs = Validate(missing, reportSchema())
	assert.False(t, ok)
	assert.NotEmpty(t, errs)

	wrongType := reportData()
	wrongType["summary"] = "not a list"
	ok, _ = Validate(wrongType, reportSchema())
	assert.False(t, ok)
}

func TestValidateNilSchema(t *testing.T) {
	ok, errs := Validate(map[string]any{"anything": true}, nil)
	assert.True(t, ok)
	assert.Empty(t, errs)
}

func TestBasicValidate(t *testing.T) {
	ok, errs := basicValidate(map[string]any{"failure_signal": 42}, reportSchema())
	assert.False(t, ok)
	assert.Contains(t, errs, "missing required field: summary")
	assert.Contains(t, errs, "field 'failure_signal' has wrong type (expected string)")
}

func TestSchemaForAssistant(t *testing.T) {
	dir := t.TempDir()
	schemaJSON := `{"type": "object", "properties": {"failure_signal": {"type": "string"}}, "required": ["failure_signal"]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.json"), []byte(schemaJSON), 0o644))

	cfg := &config.ShootConfig{
		Assistants: map[string]*config.AssistantConfig{
			"investigator": {SystemPromptFile: "p.md", ResponseSchema: "report"},
			"chatty":       {SystemPromptFile: "p.md"},
		},
		ResponseSchemas: map[string]*config.ResponseSchemaConfig{
			"report": {File: "report.json", Format: config.FormatJSON},
		},
	}

	schema, schemaConfig := SchemaForAssistant(cfg, "investigator", dir)
	require.NotNil(t, schemaConfig)
	require.NotNil(t, schema)
	assert.Equal(t, config.FormatJSON, schemaConfig.Format)
	assert.Equal(t, []any{"failure_signal"}, schema["required"])

	schema, schemaConfig = SchemaForAssistant(cfg, "chatty", dir)
	assert.Nil(t, schema)
	assert.Nil(t, schemaConfig)

	// Schema file missing: config is still returned so callers can
	// report the format even without validation.
	cfg.ResponseSchemas["report"].File = "missing.json"
	schema, schemaConfig = SchemaForAssistant(cfg, "investigator", dir)
	assert.Nil(t, schema)
	assert.NotNil(t, schemaConfig)
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	idx := strings.Index(haystack, needle)
	require.GreaterOrEqual(t, idx, 0, "missing %q in output:\n%s", needle, haystack)
	return idx
}
