package rules

import (
	"sort"
	"sync"

	"github.com/standardbeagle/sentrygo/internal/graph"
	"github.com/standardbeagle/sentrygo/internal/refs"
	"github.com/standardbeagle/sentrygo/internal/settings"
	"github.com/standardbeagle/sentrygo/internal/source"
	"github.com/standardbeagle/sentrygo/internal/symbols"
)

// FileContext bundles one file's collected facts for rule consumption.
type FileContext struct {
	Record     *source.Record
	Symbols    *symbols.Table
	References []refs.Reference
}

// Context is what every rule invocation receives: effective
// configuration, the project root, the post-build graph for cross-file
// rules, and a policy helper (spec §4.6).
type Context struct {
	Config      *settings.Resolved
	ProjectRoot string
	Graph       *graph.Graph
	Cancelled   func() bool
}

// ShouldRun reports whether ruleID is enabled for file under the
// effective configuration.
func (c *Context) ShouldRun(ruleID, file string) bool {
	return c.Config.IsEnabled(ruleID, file)
}

// FileLocalRule analyzes one file in isolation.
type FileLocalRule interface {
	ID() string
	Name() string
	Category() string
	DefaultSeverity() Severity
	EnabledByDefault() bool
	Analyze(fc *FileContext, ctx *Context) ([]Violation, error)
}

// CrossFileRule analyzes the whole program via the built graph.
type CrossFileRule interface {
	ID() string
	Name() string
	Category() string
	DefaultSeverity() Severity
	EnabledByDefault() bool
	AnalyzeAll(files []*FileContext, g *graph.Graph, ctx *Context) ([]Violation, error)
}

// Doc is the documentation record returned by the engine's `explain`
// verb (spec §6).
type Doc struct {
	ID               string
	Name             string
	Category         string
	DefaultSeverity  Severity
	EnabledByDefault bool
	CrossFile        bool
	Description      string
}

// Registry is the catalog of rules, spec §4.6.
type Registry struct {
	mu          sync.RWMutex
	fileLocal   map[string]FileLocalRule
	crossFile   map[string]CrossFileRule
	descriptions map[string]string
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		fileLocal:    make(map[string]FileLocalRule),
		crossFile:    make(map[string]CrossFileRule),
		descriptions: make(map[string]string),
	}
}

// RegisterFileLocal adds a file-local rule to the catalog.
func (r *Registry) RegisterFileLocal(rule FileLocalRule, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fileLocal[rule.ID()] = rule
	r.descriptions[rule.ID()] = description
}

// RegisterCrossFile adds a cross-file rule to the catalog.
func (r *Registry) RegisterCrossFile(rule CrossFileRule, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.crossFile[rule.ID()] = rule
	r.descriptions[rule.ID()] = description
}

// FileLocalRules returns the registered file-local rules sorted by id,
// for deterministic scheduling order.
func (r *Registry) FileLocalRules() []FileLocalRule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FileLocalRule, 0, len(r.fileLocal))
	for _, rule := range r.fileLocal {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// CrossFileRules returns the registered cross-file rules sorted by id.
func (r *Registry) CrossFileRules() []CrossFileRule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CrossFileRule, 0, len(r.crossFile))
	for _, rule := range r.crossFile {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// RuleIDs returns every registered rule id, sorted.
func (r *Registry) RuleIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.fileLocal)+len(r.crossFile))
	for id := range r.fileLocal {
		out = append(out, id)
	}
	for id := range r.crossFile {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Explain returns the documentation record for ruleID, per the `explain`
// CLI verb.
func (r *Registry) Explain(ruleID string) (Doc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rule, ok := r.fileLocal[ruleID]; ok {
		return Doc{ID: rule.ID(), Name: rule.Name(), Category: rule.Category(), DefaultSeverity: rule.DefaultSeverity(),
			EnabledByDefault: rule.EnabledByDefault(), CrossFile: false, Description: r.descriptions[ruleID]}, true
	}
	if rule, ok := r.crossFile[ruleID]; ok {
		return Doc{ID: rule.ID(), Name: rule.Name(), Category: rule.Category(), DefaultSeverity: rule.DefaultSeverity(),
			EnabledByDefault: rule.EnabledByDefault(), CrossFile: true, Description: r.descriptions[ruleID]}, true
	}
	return Doc{}, false
}
