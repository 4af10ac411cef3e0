package settings

// Profile is the preset bundle spec §1 treats as an external
// collaborator: only its shape is owned here, not the preset bodies
// themselves (those belong to the out-of-scope CLI/profile-definition
// layer). CategoryOf maps a rule id to the category the profile's
// CategoryDefaults are keyed by.
type Profile struct {
	Name             string
	CategoryDefaults map[string]RuleOverride
	RuleDefaults     map[string]RuleOverride
	CategoryOf       map[string]string
}

// DefaultProfile is a permissive built-in fallback used when no profile
// is declared: every rule enabled at its own default severity, deferred
// entirely to the rule's own DefaultSeverity/EnabledByDefault.
func DefaultProfile() Profile {
	return Profile{
		Name:             "default",
		CategoryDefaults: map[string]RuleOverride{},
		RuleDefaults:     map[string]RuleOverride{},
		CategoryOf:       map[string]string{},
	}
}

// StrictProfile raises the correctness and dead-code categories' default
// severity to error and sets the style category to warning; it is
// otherwise identical to DefaultProfile. The CLI selects it when the
// configuration document's profile is "strict".
func StrictProfile() Profile {
	return Profile{
		Name: "strict",
		CategoryDefaults: map[string]RuleOverride{
			"correctness": {Severity: "error"},
			"dead-code":   {Severity: "error"},
			"style":       {Severity: "warning"},
		},
		RuleDefaults: map[string]RuleOverride{},
		CategoryOf:   map[string]string{},
	}
}
