// Package source implements the Source Store (spec §4.1): it discovers
// candidate files, applies include/exclude glob policy, reads bytes,
// computes content digests, and hands back File Records holding the
// parsed tree and a line map.
package source

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/sentrygo/internal/diagnose"
	"github.com/standardbeagle/sentrygo/internal/failures"
	"github.com/standardbeagle/sentrygo/internal/langsyntax"
)

// Record is spec.md §3's File Record (F).
type Record struct {
	AbsPath string
	RelPath string
	Module  string
	Source  []byte
	Digest  uint64
	Tree    *langsyntax.Tree
}

// Store owns loaded files, their trees, line maps, and content hashes.
type Store struct {
	mu      sync.RWMutex
	root    string
	records map[string]*Record // keyed by RelPath
	strict  bool
}

// New constructs an empty Store rooted at root. When strict is true,
// any unreadable file aborts Load with a FilesystemError instead of
// being skipped with a warning.
func New(root string, strict bool) *Store {
	return &Store{root: root, records: make(map[string]*Record), strict: strict}
}

// Load walks root discovering files that pass the include/exclude glob
// policy (spec §4.1: exclude wins first, else include-if-no-include-
// patterns, else include-if-matched), reads and parses each, and
// returns the resulting Records in sorted relative-path order.
func (s *Store) Load(include, exclude []string) ([]*Record, error) {
	var matches []string
	walkErr := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if s.strict {
				return failures.NewFilesystemError("walk", path, err)
			}
			diagnose.LogIndex("skip unreadable path %s: %v", path, err)
			return nil
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		if !matchesPolicy(filepath.ToSlash(rel), include, exclude) {
			return nil
		}
		matches = append(matches, path)
		return nil
	})
	if walkErr != nil {
		if fsErr, ok := walkErr.(*failures.FilesystemError); ok {
			return nil, fsErr
		}
		return nil, failures.NewFilesystemError("walk", s.root, walkErr)
	}
	sort.Strings(matches)

	var out []*Record
	for _, path := range matches {
		rec, err := s.loadOne(path)
		if err != nil {
			if s.strict {
				return nil, err
			}
			diagnose.LogIndex("skip unreadable file %s: %v", path, err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) loadOne(absPath string) (*Record, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, failures.NewFilesystemError("read", absPath, err)
	}
	rel, err := filepath.Rel(s.root, absPath)
	if err != nil {
		rel = absPath
	}
	rel = filepath.ToSlash(rel)

	tree := langsyntax.Parse(data)
	rec := &Record{
		AbsPath: absPath,
		RelPath: rel,
		Source:  data,
		Digest:  xxhash.Sum64(data),
		Tree:    tree,
	}

	s.mu.Lock()
	s.records[rel] = rec
	s.mu.Unlock()
	diagnose.LogIndex("loaded %s (%d bytes, digest=%x)", rel, len(data), rec.Digest)
	return rec, nil
}

// Invalidate drops a record; callers are responsible for also
// invalidating dependent cache entries and graph state.
func (s *Store) Invalidate(relPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, relPath)
}

// Get returns a previously loaded record by relative path.
func (s *Store) Get(relPath string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[relPath]
	return r, ok
}

// All returns every currently loaded record, sorted by relative path.
func (s *Store) All() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out
}

// matchesPolicy implements spec §4.1's precedence: exclude first, then
// include-if-no-include-patterns, then include-if-matched. `**` spans
// any number of path segments and `*` spans one segment, which is
// exactly doublestar.Match's semantics.
func matchesPolicy(relPath string, include, exclude []string) bool {
	for _, pattern := range exclude {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pattern := range include {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}
