package settings

import "github.com/bmatcuk/doublestar/v4"

// Resolved is the effective configuration for every (rule, file) pair,
// produced on demand by Resolve. It keeps the raw precedence inputs
// rather than flattening them eagerly, since the conditional stage is
// inherently per-file.
type Resolved struct {
	profile     Profile
	doc         *Document
	categoryOf  func(ruleID string) string
	defaultSev  string
}

// Resolve builds a Resolved view over profile + doc. categoryOf maps a
// rule id to its category (normally supplied by the Rule Registry);
// when nil, category-level overrides are skipped.
func Resolve(profile Profile, doc *Document, categoryOf func(ruleID string) string) *Resolved {
	if doc == nil {
		doc = NewDocument()
	}
	if categoryOf == nil {
		categoryOf = func(string) string { return "" }
	}
	return &Resolved{profile: profile, doc: doc, categoryOf: categoryOf, defaultSev: "warning"}
}

// effective walks the five-stage precedence chain for one (rule, file)
// pair, lowest to highest, last non-null wins (spec §4.10).
func (r *Resolved) effective(ruleID, file string) RuleOverride {
	category := r.categoryOf(ruleID)

	out := RuleOverride{}
	if cd, ok := r.profile.CategoryDefaults[category]; ok {
		out = cd.merge(out)
	}
	if rd, ok := r.profile.RuleDefaults[ruleID]; ok {
		out = rd.merge(out)
	}
	if cat, ok := r.doc.Rules[category]; ok {
		out = cat.RuleOverride.merge(out)
	}
	if cat, ok := r.doc.Rules[category]; ok {
		if ro, ok := cat.Rules[ruleID]; ok {
			out = ro.merge(out)
		}
	}
	if ro, ok := r.doc.Advanced.Rules[ruleID]; ok {
		out = ro.merge(out)
	}
	for _, cond := range r.doc.Advanced.Conditional {
		if ok, _ := doublestar.Match(cond.PathPattern, file); !ok {
			continue
		}
		if ro, ok := cond.Rules[ruleID]; ok {
			out = ro.merge(out)
		}
	}
	return out
}

// IsEnabledWithDefault reports whether ruleID should run against file, defaulting
// to enabledByDefault when no stage in the chain set Enabled.
func (r *Resolved) IsEnabledWithDefault(ruleID, file string, enabledByDefault bool) bool {
	eff := r.effective(ruleID, file)
	if eff.Enabled != nil {
		return *eff.Enabled
	}
	return enabledByDefault
}

// IsEnabled is the Context.ShouldRun convenience used when the caller
// doesn't have the rule's own default handy (defaults to true).
func (r *Resolved) IsEnabled(ruleID, file string) bool {
	return r.IsEnabledWithDefault(ruleID, file, true)
}

// Severity resolves the effective severity string for (ruleID, file),
// falling back to defaultSeverity when nothing in the chain set one.
func (r *Resolved) Severity(ruleID, file, defaultSeverity string) string {
	eff := r.effective(ruleID, file)
	if eff.Severity != "" {
		return eff.Severity
	}
	if defaultSeverity != "" {
		return defaultSeverity
	}
	return r.defaultSev
}

// Param fetches a typed parameter value for (ruleID, file), returning
// def when absent at every stage of the chain.
func (r *Resolved) Param(ruleID, file, name string, def Param) Param {
	eff := r.effective(ruleID, file)
	if v, ok := eff.Params[name]; ok {
		return v
	}
	return def
}

// MaxJobs returns the configured worker-pool bound, or def when unset.
func (r *Resolved) MaxJobs(def int) int {
	if r.doc.MaxJobs > 0 {
		return r.doc.MaxJobs
	}
	return def
}

// Include/Exclude expose the document's file-selection globs.
func (r *Resolved) Include() []string { return r.doc.Include }
func (r *Resolved) Exclude() []string { return r.doc.Exclude }

// BaselinePath returns the configured baseline file path, if any.
func (r *Resolved) BaselinePath() string { return r.doc.Baseline }

// Document returns the underlying parsed document, e.g. for round-trip
// writing (R1).
func (r *Resolved) Document() *Document { return r.doc }

// Profile returns the profile this Resolved was built from.
func (r *Resolved) Profile() Profile { return r.profile }
