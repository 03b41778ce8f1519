// Package coordinator runs investigations: it assembles an assistant's
// prompt, subagents, and MCP servers from configuration, drives the
// runtime session, and shapes the outcome into a diagnostic report.
package coordinator

import (
	"fmt"
	"regexp"
	"strings"
)

// DiagnosticReport bounds, mirrored in Schema.
const (
	maxFailureSignalLen = 500
	maxSummaryItems     = 5
	maxLikelyCauseItems = 3
	maxNextStepItems    = 6
)

// DiagnosticReport is the structured outcome of an investigation.
type DiagnosticReport struct {
	FailureSignal        string   `json:"failure_signal"`
	Summary              []string `json:"summary"`
	LikelyCause          []string `json:"likely_cause"`
	RecommendedNextSteps []string `json:"recommended_next_steps"`
}

// Validate enforces the report bounds.
func (r *DiagnosticReport) Validate() error {
	if r.FailureSignal == "" {
		return fmt.Errorf("failure_signal must not be empty")
	}
	if len(r.FailureSignal) > maxFailureSignalLen {
		return fmt.Errorf("failure_signal exceeds %d characters", maxFailureSignalLen)
	}
	if err := validateBullets("summary", r.Summary, maxSummaryItems); err != nil {
		return err
	}
	if err := validateBullets("likely_cause", r.LikelyCause, maxLikelyCauseItems); err != nil {
		return err
	}
	return validateBullets("recommended_next_steps", r.RecommendedNextSteps, maxNextStepItems)
}

func validateBullets(field string, items []string, max int) error {
	if len(items) == 0 {
		return fmt.Errorf("%s must have at least 1 item", field)
	}
	if len(items) > max {
		return fmt.Errorf("%s must have at most %d items, got %d", field, max, len(items))
	}
	return nil
}

// Schema is the diagnostic report's JSON Schema, served to clients and
// used to validate structured output.
var Schema = map[string]any{
	"$schema":     "http://json-schema.org/draft-07/schema#",
	"title":       "DiagnosticReport",
	"description": "Structured diagnostic report from the Shoot coordinator agent",
	"type":        "object",
	"properties": map[string]any{
		"failure_signal": map[string]any{
			"type":        "string",
			"description": "The original failure description from the user",
			"minLength":   1,
			"maxLength":   maxFailureSignalLen,
		},
		"summary": map[string]any{
			"type":        "array",
			"description": "1-3 bullets describing the key findings",
			"items":       map[string]any{"type": "string"},
			"minItems":    1,
			"maxItems":    maxSummaryItems,
		},
		"likely_cause": map[string]any{
			"type":        "array",
			"description": "1-2 bullets with the most likely root cause(s)",
			"items":       map[string]any{"type": "string"},
			"minItems":    1,
			"maxItems":    maxLikelyCauseItems,
		},
		"recommended_next_steps": map[string]any{
			"type":        "array",
			"description": "1-4 bullets with concrete, actionable steps",
			"items":       map[string]any{"type": "string"},
			"minItems":    1,
			"maxItems":    maxNextStepItems,
		},
	},
	"required":             []string{"failure_signal", "summary", "likely_cause", "recommended_next_steps"},
	"additionalProperties": false,
}

var (
	// headerPattern matches "**field**:" section headers with an
	// optional leading bullet and optional inline value.
	headerPattern = regexp.MustCompile(`(?i)^\s*(?:-\s*)?\*\*([a-z_]+)\*\*:\s*(.*)$`)

	// bulletPattern matches one "- item" line, with optional backticks.
	bulletPattern = regexp.MustCompile("^\\s*-\\s*`?([^`]*)`?\\s*$")
)

// ParseMarkdownReport parses the coordinator prompt's markdown report
// grammar (**field**: headers with "- " bullets) into a structured
// report. It fails closed: a report missing any required section, or
// violating the bounds, yields an error rather than a partial report.
func ParseMarkdownReport(text string) (*DiagnosticReport, error) {
	report := &DiagnosticReport{}
	sections := map[string]*[]string{
		"summary":                &report.Summary,
		"likely_cause":           &report.LikelyCause,
		"recommended_next_steps": &report.RecommendedNextSteps,
	}

	var current *[]string
	for _, line := range strings.Split(text, "\n") {
		if m := headerPattern.FindStringSubmatch(line); m != nil {
			field := strings.ToLower(m[1])
			if field == "failure_signal" {
				report.FailureSignal = strings.TrimSpace(strings.Trim(strings.TrimSpace(m[2]), "`"))
				current = nil
				continue
			}
			if target, ok := sections[field]; ok {
				current = target
				continue
			}
			current = nil
			continue
		}
		if current == nil {
			continue
		}
		if m := bulletPattern.FindStringSubmatch(line); m != nil {
			if item := strings.TrimSpace(m[1]); item != "" {
				*current = append(*current, item)
			}
		}
	}

	if report.FailureSignal == "" {
		return nil, fmt.Errorf("markdown report missing failure_signal")
	}
	for field, target := range sections {
		if len(*target) == 0 {
			return nil, fmt.Errorf("markdown report missing %s section", field)
		}
	}

	if err := report.Validate(); err != nil {
		return nil, fmt.Errorf("markdown report invalid: %w", err)
	}
	return report, nil
}
