// Package incache implements the Incremental Cache (spec §4.9): keyed
// on (tool_version, file_content_digest, rule_set_digest, config_digest),
// it persists per-file symbols, references, and violations so unchanged
// files skip re-analysis. Cross-file results are never cached, since
// they depend on the whole Global Reference Graph (spec §4.9's explicit
// scope note).
package incache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/sentrygo/internal/failures"
	"github.com/standardbeagle/sentrygo/internal/refs"
	"github.com/standardbeagle/sentrygo/internal/rules"
	"github.com/standardbeagle/sentrygo/internal/symbols"
)

// Key identifies one cache entry's invalidation inputs. Any change to
// any field invalidates the entry (spec §4.9).
type Key struct {
	ToolVersion   string
	FileDigest    uint64
	RuleSetDigest uint64
	ConfigDigest  uint64
}

// digest combines the four inputs into the content-addressed key used
// to name the on-disk entry.
func (k Key) digest() uint64 {
	h := xxhash.New()
	fmt.Fprintf(h, "%s|%016x|%016x|%016x", k.ToolVersion, k.FileDigest, k.RuleSetDigest, k.ConfigDigest)
	return h.Sum64()
}

// Entry is the cached file-local analysis result for one file.
type Entry struct {
	KeyDigest  uint64            `json:"key_digest"`
	RelPath    string            `json:"rel_path"`
	Symbols    *symbols.Table    `json:"symbols"`
	References []refs.Reference  `json:"references"`
	Violations []rules.Violation `json:"violations"`
}

// Cache is a two-tier (in-memory + on-disk) content-addressed store.
// The on-disk layout is dir/<xx>/<digest-hex>.json, sharded by the
// first byte of the digest to keep directories small.
type Cache struct {
	mu  sync.RWMutex
	dir string
	mem map[uint64]*Entry
}

// Open returns a Cache rooted at dir. dir is created lazily on first
// Put; a missing dir is not an error (Get simply misses).
func Open(dir string) *Cache {
	return &Cache{dir: dir, mem: make(map[uint64]*Entry)}
}

func (c *Cache) path(digest uint64) string {
	hex := fmt.Sprintf("%016x", digest)
	return filepath.Join(c.dir, hex[:2], hex+".json")
}

// Get looks up the cached entry for key, trying the in-memory tier
// first and falling back to disk. Returns (nil, false) on any miss or
// integrity mismatch (key digest recorded in the entry disagrees with
// the recomputed one, meaning a hash collision or corrupt file).
func (c *Cache) Get(key Key) (*Entry, bool) {
	digest := key.digest()

	c.mu.RLock()
	if e, ok := c.mem[digest]; ok {
		c.mu.RUnlock()
		return e, true
	}
	c.mu.RUnlock()

	data, err := os.ReadFile(c.path(digest))
	if err != nil {
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if e.KeyDigest != digest {
		return nil, false
	}

	c.mu.Lock()
	c.mem[digest] = &e
	c.mu.Unlock()
	return &e, true
}

// Put stores entry under key in both tiers. The on-disk write is
// best-effort: a failure to persist degrades to memory-only caching for
// this run rather than failing analysis (cache writes are never on the
// critical path for correctness, only for speed).
func (c *Cache) Put(key Key, relPath string, syms *symbols.Table, references []refs.Reference, violations []rules.Violation) error {
	digest := key.digest()
	e := &Entry{KeyDigest: digest, RelPath: relPath, Symbols: syms, References: references, Violations: violations}

	c.mu.Lock()
	c.mem[digest] = e
	c.mu.Unlock()

	if c.dir == "" {
		return nil
	}
	p := c.path(digest)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return failures.NewFilesystemError("mkdir", filepath.Dir(p), err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return failures.NewFilesystemError("marshal", p, err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return failures.NewFilesystemError("write", tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return failures.NewFilesystemError("rename", p, err)
	}
	return nil
}

// RuleSetDigest combines a sorted list of enabled rule ids into one
// digest, so adding/removing/reordering enabled rules invalidates every
// cached entry.
func RuleSetDigest(ruleIDs []string) uint64 {
	h := xxhash.New()
	for _, id := range ruleIDs {
		h.WriteString(id)
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// ConfigDigest hashes the serialized effective configuration; callers
// typically pass a canonical JSON encoding of the resolved document.
func ConfigDigest(canonical []byte) uint64 {
	return xxhash.Sum64(canonical)
}
