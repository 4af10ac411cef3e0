package settings_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sentrygo/internal/settings"
)

func TestLoadKDLParsesTopLevelFields(t *testing.T) {
	src := `
profile "strict"
include "src/**/*.swift"
exclude "**/generated/**"
baseline "baseline.json"
max_jobs 4

rules {
	dead-code {
		severity "error"
		rule "dead_code.unreachable" {
			severity "warning"
		}
	}
}

advanced {
	threshold "max-cycle-length" 10
	conditional "**/tests/**" {
		rule "dead_code.unreachable" {
			severity "suggestion"
		}
	}
}
`
	doc, err := settings.LoadKDL(src)
	require.NoError(t, err)
	require.Equal(t, "strict", doc.Profile)
	require.Equal(t, []string{"src/**/*.swift"}, doc.Include)
	require.Equal(t, []string{"**/generated/**"}, doc.Exclude)
	require.Equal(t, "baseline.json", doc.Baseline)
	require.Equal(t, 4, doc.MaxJobs)

	deadCode, ok := doc.Rules["dead-code"]
	require.True(t, ok)
	require.Equal(t, "error", deadCode.Severity)

	ruleOverride, ok := deadCode.Rules["dead_code.unreachable"]
	require.True(t, ok)
	require.Equal(t, "warning", ruleOverride.Severity)

	require.Len(t, doc.Advanced.Conditional, 1)
	require.Equal(t, "**/tests/**", doc.Advanced.Conditional[0].PathPattern)
}

func TestLoadKDLRejectsMalformedDocument(t *testing.T) {
	_, err := settings.LoadKDL(`rules { dead-code { `)
	require.Error(t, err)
}
