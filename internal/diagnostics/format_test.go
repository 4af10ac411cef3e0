package diagnostics_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sentrygo/internal/diagnostics"
	"github.com/standardbeagle/sentrygo/internal/rules"
)

func sampleViolations() []rules.Violation {
	return []rules.Violation{
		{
			RuleID:   "dead_code.unreachable",
			Category: "dead-code",
			Severity: rules.SeverityError,
			Location: rules.Location{File: "a.swift", Line: 3, Column: 1},
			Message:  "unused function 'foo'",
			SuggestedFixes: []string{"remove the function"},
			StructuredEdits: []rules.Edit{
				{Kind: rules.EditRemove, Confidence: rules.ConfidenceHigh, NewText: ""},
			},
		},
	}
}

func TestWriteHumanRendersOneBlockPerViolation(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, diagnostics.WriteHuman(&buf, sampleViolations()))
	out := buf.String()
	require.Contains(t, out, "ERROR [dead_code.unreachable]")
	require.Contains(t, out, "unused function 'foo'")
	require.Contains(t, out, "a.swift:3:1")
	require.Contains(t, out, "remove the function")
}

func TestWriteJSONProducesPrettyPrintedDocument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, diagnostics.WriteJSON(&buf, sampleViolations()))
	require.True(t, strings.Contains(buf.String(), "\n  "), "pretty-printed JSON should be indented")

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Equal(t, "violations_found", doc["status"])
	summary := doc["summary"].(map[string]any)
	require.Equal(t, float64(1), summary["error"])
}

func TestWriteAgentJSONProducesCompactSingleLineDocument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, diagnostics.WriteAgentJSON(&buf, sampleViolations()))
	require.False(t, strings.Contains(strings.TrimRight(buf.String(), "\n"), "\n"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	violations := doc["violations"].([]any)
	require.Len(t, violations, 1)
	v := violations[0].(map[string]any)
	require.Equal(t, "E", v["sev"])
	require.Equal(t, "dead_code.unreachable", v["id"])
}

func TestWriteEmptyViolationsReportsOkStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, diagnostics.WriteJSON(&buf, nil))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Equal(t, "ok", doc["status"])
}

func TestWriteDispatchesToHumanByDefault(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, diagnostics.Write(&buf, diagnostics.Format("unknown"), sampleViolations()))
	require.Contains(t, buf.String(), "ERROR [dead_code.unreachable]")
}
