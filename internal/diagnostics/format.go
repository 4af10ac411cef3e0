package diagnostics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/standardbeagle/sentrygo/internal/rules"
)

// Format selects one of spec §6's three output renderings.
type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
	FormatAgent Format = "agent"
)

// WriteHuman renders spec §6's one-block-per-violation human format.
func WriteHuman(w io.Writer, violations []rules.Violation) error {
	bw := bufio.NewWriter(w)
	for _, v := range violations {
		fmt.Fprintf(bw, "%s [%s]\n", strings.ToUpper(string(v.Severity)), v.RuleID)
		fmt.Fprintf(bw, "  %s\n", v.Message)
		fmt.Fprintf(bw, "  File: %s:%d:%d\n", v.Location.File, v.Location.Line, v.Location.Column)
		if len(v.SuggestedFixes) > 0 {
			fmt.Fprintln(bw, "  Suggested fixes:")
			for _, fix := range v.SuggestedFixes {
				fmt.Fprintf(bw, "    - %s\n", fix)
			}
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// jsonEdit is one element of a jsonFix's edits array.
type jsonEdit struct {
	Range jsonRange `json:"range"`
	Text  string    `json:"text"`
}

type jsonRange struct {
	SL int `json:"sl"`
	SC int `json:"sc"`
	EL int `json:"el"`
	EC int `json:"ec"`
}

type jsonFix struct {
	Desc  string     `json:"desc"`
	Edits []jsonEdit `json:"edits"`
}

type jsonViolation struct {
	ID      string    `json:"id"`
	Sev     string    `json:"sev"`
	File    string    `json:"file"`
	Line    int       `json:"line"`
	Col     int        `json:"col"`
	Message string    `json:"msg"`
	Context []string  `json:"ctx,omitempty"`
	Fix     *jsonFix  `json:"fix,omitempty"`
}

type jsonDocument struct {
	Version    string          `json:"version"`
	Status     string          `json:"status"`
	Summary    Summary         `json:"summary"`
	Violations []jsonViolation `json:"violations"`
}

var severityLetter = map[rules.Severity]string{
	rules.SeverityError:      "E",
	rules.SeverityWarning:    "W",
	rules.SeveritySuggestion: "S",
}

func buildDocument(violations []rules.Violation) jsonDocument {
	doc := jsonDocument{
		Version: "1.0",
		Status:  "ok",
		Summary: summarize(violations),
	}
	if len(violations) > 0 {
		doc.Status = "violations_found"
	}
	for _, v := range violations {
		jv := jsonViolation{
			ID:      v.RuleID,
			Sev:     severityLetter[v.Severity],
			File:    v.Location.File,
			Line:    v.Location.Line,
			Col:     v.Location.Column,
			Message: v.Message,
		}
		if len(v.StructuredEdits) > 0 {
			fix := &jsonFix{}
			if len(v.SuggestedFixes) > 0 {
				fix.Desc = v.SuggestedFixes[0]
			}
			for _, e := range v.StructuredEdits {
				fix.Edits = append(fix.Edits, jsonEdit{
					Range: jsonRange{SL: v.Location.Line, SC: 0, EL: v.Location.Line, EC: 0},
					Text:  e.NewText,
				})
			}
			jv.Fix = fix
		}
		doc.Violations = append(doc.Violations, jv)
	}
	return doc
}

// WriteJSON renders the full machine document (spec §6).
func WriteJSON(w io.Writer, violations []rules.Violation) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buildDocument(violations))
}

// WriteAgentJSON renders the same document compactly (one line), the
// "compact agent JSON" variant of spec §6, intended for machine
// consumers that don't need pretty-printing.
func WriteAgentJSON(w io.Writer, violations []rules.Violation) error {
	return json.NewEncoder(w).Encode(buildDocument(violations))
}

// Write dispatches to the requested format.
func Write(w io.Writer, format Format, violations []rules.Violation) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, violations)
	case FormatAgent:
		return WriteAgentJSON(w, violations)
	default:
		return WriteHuman(w, violations)
	}
}
