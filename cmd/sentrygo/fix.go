package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/standardbeagle/sentrygo/internal/rules"
)

// applyFixes implements spec §7's auto-fix policy: only edits at or
// above minConfidence are applied; edits within one file are applied in
// reverse byte-range order so earlier offsets stay valid; overlapping
// edits from different rules are rejected as a conflict and leave the
// file untouched.
func applyFixes(root string, violations []rules.Violation, minConfidence rules.Confidence, dryRun bool) error {
	rank := map[rules.Confidence]int{rules.ConfidenceLow: 0, rules.ConfidenceMedium: 1, rules.ConfidenceHigh: 2}

	byFile := map[string][]rules.Edit{}
	for _, v := range violations {
		for _, e := range v.StructuredEdits {
			if rank[e.Confidence] < rank[minConfidence] {
				continue
			}
			byFile[v.Location.File] = append(byFile[v.Location.File], e)
		}
	}

	for relPath, edits := range byFile {
		sort.Slice(edits, func(i, j int) bool { return edits[i].Range.Start < edits[j].Range.Start })
		if conflict := firstOverlap(edits); conflict != nil {
			fmt.Printf("conflict: %s has overlapping edits at byte %d-%d; left untouched\n",
				relPath, conflict.Range.Start, conflict.Range.End)
			continue
		}

		absPath := filepath.Join(root, relPath)
		data, err := os.ReadFile(absPath)
		if err != nil {
			return err
		}

		for i := len(edits) - 1; i >= 0; i-- {
			e := edits[i]
			data = append(data[:e.Range.Start:e.Range.Start], append([]byte(e.NewText), data[e.Range.End:]...)...)
		}

		if dryRun {
			fmt.Printf("would rewrite %s (%d edit(s))\n", relPath, len(edits))
			continue
		}
		if err := os.WriteFile(absPath, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("fixed %s (%d edit(s))\n", relPath, len(edits))
	}
	return nil
}

func firstOverlap(sorted []rules.Edit) *rules.Edit {
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Range.Start < sorted[i-1].Range.End {
			return &sorted[i]
		}
	}
	return nil
}
