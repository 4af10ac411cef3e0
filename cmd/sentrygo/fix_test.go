package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sentrygo/internal/rules"
)

func writeTestFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestApplyFixesRewritesHighConfidenceEdit(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.swift", "let a = maybeValue!")

	violations := []rules.Violation{
		{
			Location: rules.Location{File: "a.swift"},
			StructuredEdits: []rules.Edit{
				{Range: rules.ByteRange{Start: 8, End: 19}, Kind: rules.EditReplace, Confidence: rules.ConfidenceHigh, NewText: "maybeValue ?? 0"},
			},
		},
	}

	require.NoError(t, applyFixes(root, violations, rules.ConfidenceHigh, false))

	got, err := os.ReadFile(filepath.Join(root, "a.swift"))
	require.NoError(t, err)
	require.Equal(t, "let a = maybeValue ?? 0", string(got))
}

func TestApplyFixesSkipsEditsBelowMinConfidence(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.swift", "let a = maybeValue!")

	violations := []rules.Violation{
		{
			Location: rules.Location{File: "a.swift"},
			StructuredEdits: []rules.Edit{
				{Range: rules.ByteRange{Start: 8, End: 20}, Kind: rules.EditReplace, Confidence: rules.ConfidenceLow, NewText: "maybeValue ?? 0"},
			},
		},
	}

	require.NoError(t, applyFixes(root, violations, rules.ConfidenceHigh, false))

	got, err := os.ReadFile(filepath.Join(root, "a.swift"))
	require.NoError(t, err)
	require.Equal(t, "let a = maybeValue!", string(got), "a low-confidence edit must not be applied when only high-confidence edits are requested")
}

func TestApplyFixesDryRunLeavesFileUnchanged(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.swift", "let a = maybeValue!")

	violations := []rules.Violation{
		{
			Location: rules.Location{File: "a.swift"},
			StructuredEdits: []rules.Edit{
				{Range: rules.ByteRange{Start: 8, End: 19}, Kind: rules.EditReplace, Confidence: rules.ConfidenceHigh, NewText: "maybeValue ?? 0"},
			},
		},
	}

	require.NoError(t, applyFixes(root, violations, rules.ConfidenceHigh, true))

	got, err := os.ReadFile(filepath.Join(root, "a.swift"))
	require.NoError(t, err)
	require.Equal(t, "let a = maybeValue!", string(got))
}

func TestApplyFixesLeavesFileUntouchedOnOverlappingEdits(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.swift", "let a = maybeValue!")

	violations := []rules.Violation{
		{
			Location: rules.Location{File: "a.swift"},
			StructuredEdits: []rules.Edit{
				{Range: rules.ByteRange{Start: 8, End: 20}, Kind: rules.EditReplace, Confidence: rules.ConfidenceHigh, NewText: "x"},
			},
		},
		{
			Location: rules.Location{File: "a.swift"},
			StructuredEdits: []rules.Edit{
				{Range: rules.ByteRange{Start: 10, End: 15}, Kind: rules.EditReplace, Confidence: rules.ConfidenceHigh, NewText: "y"},
			},
		},
	}

	require.NoError(t, applyFixes(root, violations, rules.ConfidenceHigh, false))

	got, err := os.ReadFile(filepath.Join(root, "a.swift"))
	require.NoError(t, err)
	require.Equal(t, "let a = maybeValue!", string(got), "overlapping edits from different rules must be rejected and leave the file untouched")
}

func TestApplyFixesAppliesMultipleNonOverlappingEditsInOneFile(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.swift", "let a = x!\nlet b = y!\n")

	violations := []rules.Violation{
		{
			Location: rules.Location{File: "a.swift"},
			StructuredEdits: []rules.Edit{
				{Range: rules.ByteRange{Start: 8, End: 10}, Kind: rules.EditReplace, Confidence: rules.ConfidenceHigh, NewText: "x ?? 0"},
			},
		},
		{
			Location: rules.Location{File: "a.swift"},
			StructuredEdits: []rules.Edit{
				{Range: rules.ByteRange{Start: 19, End: 21}, Kind: rules.EditReplace, Confidence: rules.ConfidenceHigh, NewText: "y ?? 0"},
			},
		},
	}

	require.NoError(t, applyFixes(root, violations, rules.ConfidenceHigh, false))

	got, err := os.ReadFile(filepath.Join(root, "a.swift"))
	require.NoError(t, err)
	require.Equal(t, "let a = x ?? 0\nlet b = y ?? 0\n", string(got))
}

func TestFirstOverlapDetectsOverlappingSortedEdits(t *testing.T) {
	edits := []rules.Edit{
		{Range: rules.ByteRange{Start: 0, End: 10}},
		{Range: rules.ByteRange{Start: 5, End: 15}},
	}
	require.NotNil(t, firstOverlap(edits))
}

func TestFirstOverlapReturnsNilForAdjacentNonOverlappingEdits(t *testing.T) {
	edits := []rules.Edit{
		{Range: rules.ByteRange{Start: 0, End: 10}},
		{Range: rules.ByteRange{Start: 10, End: 20}},
	}
	require.Nil(t, firstOverlap(edits))
}
