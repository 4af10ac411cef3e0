package rules

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/sentrygo/internal/diagnose"
	"github.com/standardbeagle/sentrygo/internal/failures"
)

// DefaultPerFileTimeout is spec §4.6's default per-file rule timeout.
const DefaultPerFileTimeout = 60 * time.Second

// Result is the dispatcher's output: the accumulated violations and
// whether the run was cut short by cancellation.
type Result struct {
	Violations []Violation
	Partial    bool
}

// Dispatcher schedules file-local rules in parallel (bounded by MaxJobs)
// and then cross-file rules sequentially, per spec §4.6.
type Dispatcher struct {
	Registry       *Registry
	MaxJobs        int
	PerFileTimeout time.Duration
}

// NewDispatcher constructs a Dispatcher with the given worker bound.
func NewDispatcher(reg *Registry, maxJobs int) *Dispatcher {
	if maxJobs <= 0 {
		maxJobs = 1
	}
	return &Dispatcher{Registry: reg, MaxJobs: maxJobs, PerFileTimeout: DefaultPerFileTimeout}
}

// Run executes the full file-local + cross-file dispatch against files,
// honoring ctx.Cancelled as a cooperative cancellation signal checked
// between files.
func (d *Dispatcher) Run(ctx context.Context, files []*FileContext, ruleCtx *Context) (Result, error) {
	fileRules := d.Registry.FileLocalRules()

	sorted := make([]*FileContext, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Record.RelPath < sorted[j].Record.RelPath })

	perFile := make([][]Violation, len(sorted))
	sem := make(chan struct{}, d.MaxJobs)
	g, gctx := errgroup.WithContext(ctx)

	var partial bool
	for i, fc := range sorted {
		i, fc := i, fc
		if ruleCtx.Cancelled != nil && ruleCtx.Cancelled() {
			partial = true
			break
		}
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			vs, err := d.runFileLocal(gctx, fc, fileRules, ruleCtx)
			if err != nil {
				return err
			}
			perFile[i] = vs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var all []Violation
	for _, vs := range perFile {
		all = append(all, vs...)
	}

	// Cross-file rules run sequentially after the file-local barrier.
	for _, rule := range d.Registry.CrossFileRules() {
		if ruleCtx.Cancelled != nil && ruleCtx.Cancelled() {
			partial = true
			break
		}
		vs, err := d.runCrossFile(rule, sorted, ruleCtx)
		if err != nil {
			all = append(all, syntheticError(rule.ID(), "", err))
			continue
		}
		all = append(all, vs...)
	}

	return Result{Violations: all, Partial: partial}, nil
}

// runFileLocal runs every applicable file-local rule against one file,
// in parallel across rules bounded by the same MaxJobs budget, merging
// outputs in rule-id order (stable) as spec §4.6 requires.
func (d *Dispatcher) runFileLocal(ctx context.Context, fc *FileContext, fileRules []FileLocalRule, ruleCtx *Context) ([]Violation, error) {
	fileCtx, cancel := context.WithTimeout(ctx, d.PerFileTimeout)
	defer cancel()

	type ruleResult struct {
		ruleID     string
		violations []Violation
	}
	results := make([]ruleResult, len(fileRules))
	g, _ := errgroup.WithContext(fileCtx)
	sem := make(chan struct{}, d.MaxJobs)

	for i, rule := range fileRules {
		i, rule := i, rule
		if !ruleCtx.ShouldRun(rule.ID(), fc.Record.RelPath) {
			continue
		}
		sem <- struct{}{}
		g.Go(func() (err error) {
			defer func() { <-sem }()
			defer func() {
				if rec := recover(); rec != nil {
					err2 := fmt.Errorf("panic: %v", rec)
					diagnose.LogRule("rule %s panicked on %s: %v", rule.ID(), fc.Record.RelPath, rec)
					results[i] = ruleResult{ruleID: rule.ID(), violations: []Violation{syntheticError(rule.ID(), fc.Record.RelPath, err2)}}
				}
			}()
			vs, rerr := rule.Analyze(fc, ruleCtx)
			if rerr != nil {
				diagnose.LogRule("rule %s failed on %s: %v", rule.ID(), fc.Record.RelPath, rerr)
				wrapped := failures.NewRuleRuntimeError(rule.ID(), fc.Record.RelPath, rerr)
				results[i] = ruleResult{ruleID: rule.ID(), violations: []Violation{syntheticError(rule.ID(), fc.Record.RelPath, wrapped)}}
				return nil
			}
			results[i] = ruleResult{ruleID: rule.ID(), violations: vs}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
	case <-fileCtx.Done():
		diagnose.LogRule("file %s timed out after %s", fc.Record.RelPath, d.PerFileTimeout)
		return []Violation{timeoutViolation(fc.Record.RelPath)}, nil
	}

	sort.Slice(results, func(i, j int) bool { return results[i].ruleID < results[j].ruleID })
	var out []Violation
	for _, r := range results {
		out = append(out, r.violations...)
	}
	return out, nil
}

func (d *Dispatcher) runCrossFile(rule CrossFileRule, files []*FileContext, ruleCtx *Context) ([]Violation, error) {
	return rule.AnalyzeAll(files, ruleCtx.Graph, ruleCtx)
}

func syntheticError(ruleID, file string, err error) Violation {
	return Violation{
		RuleID:   "rule.internal_error",
		Category: "internal",
		Severity: SeverityError,
		Location: Location{File: file},
		Message:  fmt.Sprintf("rule %s failed: %v", ruleID, err),
		Context:  map[string]string{"rule_id": ruleID},
	}
}

func timeoutViolation(file string) Violation {
	return Violation{
		RuleID:   "rule.timeout",
		Category: "internal",
		Severity: SeverityWarning,
		Location: Location{File: file},
		Message:  fmt.Sprintf("analysis of %s exceeded the per-file timeout", file),
	}
}
