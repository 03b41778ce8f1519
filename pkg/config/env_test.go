package config

import (
	"strings"
	"testing"
)

func TestExpandEnvVar_Basic(t *testing.T) {
	env := map[string]string{"CLUSTER": "prod-eu-1"}

	got := ExpandEnvVar("cluster ${CLUSTER} selected", env)
	if got != "cluster prod-eu-1 selected" {
		t.Errorf("expected expansion, got %q", got)
	}
}

func TestExpandEnvVar_Default(t *testing.T) {
	env := map[string]string{}

	if got := ExpandEnvVar("${REGION:-eu-west-1}", env); got != "eu-west-1" {
		t.Errorf("expected default, got %q", got)
	}
	if got := ExpandEnvVar("${REGION:-}", env); got != "" {
		t.Errorf("expected empty default, got %q", got)
	}
}

func TestExpandEnvVar_EmptyValueBeatsDefault(t *testing.T) {
	// An env var set to empty string wins over the default.
	env := map[string]string{"REGION": ""}

	if got := ExpandEnvVar("${REGION:-eu-west-1}", env); got != "" {
		t.Errorf("expected empty env value to win over default, got %q", got)
	}
}

func TestExpandEnvVar_UnsetNoDefaultLeftUntouched(t *testing.T) {
	env := map[string]string{}

	if got := ExpandEnvVar("${MISSING}", env); got != "${MISSING}" {
		t.Errorf("expected pattern preserved, got %q", got)
	}
}

func TestExpandEnvVar_MultiplePatterns(t *testing.T) {
	env := map[string]string{"A": "1", "B": "2"}

	if got := ExpandEnvVar("${A}-${B}-${C:-3}", env); got != "1-2-3" {
		t.Errorf("expected all patterns expanded, got %q", got)
	}
}

func TestExpandValue_Nested(t *testing.T) {
	env := map[string]string{"TOKEN": "secret"}
	obj := map[string]any{
		"mcp_servers": map[string]any{
			"k8s": map[string]any{
				"env": map[string]any{"AUTH": "${TOKEN}"},
				"args": []any{
					"--token", "${TOKEN}",
				},
				"port": 8080,
			},
		},
	}

	got := ExpandValue(obj, env).(map[string]any)
	k8s := got["mcp_servers"].(map[string]any)["k8s"].(map[string]any)
	if k8s["env"].(map[string]any)["AUTH"] != "secret" {
		t.Error("expected nested map value expanded")
	}
	if k8s["args"].([]any)[1] != "secret" {
		t.Error("expected sequence element expanded")
	}
	if k8s["port"] != 8080 {
		t.Error("expected non-string leaf untouched")
	}
}

func TestFindUnexpandedVars_ReportsAllWithPaths(t *testing.T) {
	obj := map[string]any{
		"outer": map[string]any{
			"inner": "${FOO}",
		},
		"items": []any{"${BAR}"},
		"ok":    "${WITH:-default}",
	}

	errs := FindUnexpandedVars(obj, "")
	if len(errs) != 2 {
		t.Fatalf("expected 2 violations, got %d: %v", len(errs), errs)
	}

	joined := strings.Join(errs, "\n")
	if !strings.Contains(joined, "${BAR} at items[0]") {
		t.Errorf("expected sequence path, got %v", errs)
	}
	if !strings.Contains(joined, "${FOO} at outer.inner") {
		t.Errorf("expected dotted path, got %v", errs)
	}
}

func TestFindUnexpandedVars_DefaultFormNeverReported(t *testing.T) {
	errs := FindUnexpandedVars(map[string]any{"v": "${X:-fallback}"}, "")
	if len(errs) != 0 {
		t.Errorf("patterns with defaults are always resolvable, got %v", errs)
	}
}

func TestSubstituteVariables(t *testing.T) {
	got := SubstituteVariables("cluster ${wc_cluster} in ${org_ns}", map[string]string{
		"wc_cluster": "gauss",
	})
	if got != "cluster gauss in ${org_ns}" {
		t.Errorf("unknown variables must be preserved, got %q", got)
	}
}
