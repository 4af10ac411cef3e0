package incache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sentrygo/internal/incache"
	"github.com/standardbeagle/sentrygo/internal/rules"
	"github.com/standardbeagle/sentrygo/internal/symbols"
)

func sampleKey() incache.Key {
	return incache.Key{
		ToolVersion:   "1.0.0",
		FileDigest:    1111,
		RuleSetDigest: incache.RuleSetDigest([]string{"dead_code.unreachable", "correctness.force_unwrap"}),
		ConfigDigest:  incache.ConfigDigest([]byte(`{"profile":"default"}`)),
	}
}

func TestPutThenGetRoundTripsInMemory(t *testing.T) {
	c := incache.Open("")
	key := sampleKey()
	syms := &symbols.Table{}
	violations := []rules.Violation{{RuleID: "correctness.force_unwrap"}}

	require.NoError(t, c.Put(key, "a.swift", syms, nil, violations))

	entry, ok := c.Get(key)
	require.True(t, ok)
	require.Equal(t, "a.swift", entry.RelPath)
	require.Len(t, entry.Violations, 1)
}

func TestGetMissesOnUnknownKey(t *testing.T) {
	c := incache.Open("")
	_, ok := c.Get(sampleKey())
	require.False(t, ok)
}

func TestPutPersistsToDiskAndSurvivesNewCacheInstance(t *testing.T) {
	dir := t.TempDir()
	key := sampleKey()

	c1 := incache.Open(dir)
	require.NoError(t, c1.Put(key, "a.swift", &symbols.Table{}, nil, nil))

	c2 := incache.Open(dir)
	entry, ok := c2.Get(key)
	require.True(t, ok, "a fresh Cache over the same dir should find the on-disk entry")
	require.Equal(t, "a.swift", entry.RelPath)
}

func TestDifferentKeyFieldsProduceDifferentDigests(t *testing.T) {
	dir := t.TempDir()
	c := incache.Open(dir)

	base := sampleKey()
	require.NoError(t, c.Put(base, "a.swift", &symbols.Table{}, nil, nil))

	changed := base
	changed.FileDigest++
	_, ok := c.Get(changed)
	require.False(t, ok, "changing any key field must invalidate the entry (spec's any-field-changes invalidation rule)")
}

func TestRuleSetDigestChangesWhenRuleSetChanges(t *testing.T) {
	a := incache.RuleSetDigest([]string{"rule.a", "rule.b"})
	b := incache.RuleSetDigest([]string{"rule.a", "rule.c"})
	require.NotEqual(t, a, b)

	stable := incache.RuleSetDigest([]string{"rule.a", "rule.b"})
	require.Equal(t, a, stable)
}

func TestConfigDigestDeterministicForSameBytes(t *testing.T) {
	a := incache.ConfigDigest([]byte(`{"a":1}`))
	b := incache.ConfigDigest([]byte(`{"a":1}`))
	require.Equal(t, a, b)

	c := incache.ConfigDigest([]byte(`{"a":2}`))
	require.NotEqual(t, a, c)
}

func TestPutWithEmptyDirSkipsDiskPersistence(t *testing.T) {
	c := incache.Open("")
	key := sampleKey()
	require.NoError(t, c.Put(key, "a.swift", &symbols.Table{}, nil, nil))

	// A second Cache instance shares no in-memory state and has no dir
	// to fall back to, so it must miss.
	other := incache.Open("")
	_, ok := other.Get(key)
	require.False(t, ok)
}
