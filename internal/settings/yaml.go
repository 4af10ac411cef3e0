package settings

import (
	"gopkg.in/yaml.v3"

	"github.com/standardbeagle/sentrygo/internal/failures"
)

// yamlParam mirrors Param in a form yaml.v3 can marshal without exposing
// the Kind tag to users hand-editing the file; the tag is inferred back
// from which field round-tripped non-zero.
type yamlParam struct {
	String *string  `yaml:"string,omitempty"`
	Int    *int64   `yaml:"int,omitempty"`
	Float  *float64 `yaml:"float,omitempty"`
	Bool   *bool    `yaml:"bool,omitempty"`
	List   []string `yaml:"list,omitempty"`
}

func toYAMLParam(p Param) yamlParam {
	switch p.Kind {
	case ParamInt:
		return yamlParam{Int: &p.Int}
	case ParamFloat:
		return yamlParam{Float: &p.Float}
	case ParamBool:
		return yamlParam{Bool: &p.Bool}
	case ParamStringList:
		return yamlParam{List: p.StrList}
	default:
		return yamlParam{String: &p.Str}
	}
}

func (y yamlParam) toParam() Param {
	switch {
	case y.Int != nil:
		return IntParam(*y.Int)
	case y.Float != nil:
		return FloatParam(*y.Float)
	case y.Bool != nil:
		return BoolParam(*y.Bool)
	case y.List != nil:
		return StringListParam(y.List)
	case y.String != nil:
		return StringParam(*y.String)
	default:
		return StringParam("")
	}
}

type yamlRuleOverride struct {
	Enabled  *bool                `yaml:"enabled,omitempty"`
	Severity string               `yaml:"severity,omitempty"`
	Params   map[string]yamlParam `yaml:"params,omitempty"`
}

func toYAMLRuleOverride(r RuleOverride) yamlRuleOverride {
	out := yamlRuleOverride{Enabled: r.Enabled, Severity: r.Severity}
	if len(r.Params) > 0 {
		out.Params = make(map[string]yamlParam, len(r.Params))
		for k, v := range r.Params {
			out.Params[k] = toYAMLParam(v)
		}
	}
	return out
}

func (y yamlRuleOverride) toRuleOverride() RuleOverride {
	out := RuleOverride{Enabled: y.Enabled, Severity: y.Severity}
	if len(y.Params) > 0 {
		out.Params = make(map[string]Param, len(y.Params))
		for k, v := range y.Params {
			out.Params[k] = v.toParam()
		}
	}
	return out
}

type yamlCategorySettings struct {
	Enabled  *bool                       `yaml:"enabled,omitempty"`
	Severity string                      `yaml:"severity,omitempty"`
	Rules    map[string]yamlRuleOverride `yaml:"rules,omitempty"`
}

type yamlConditional struct {
	Path  string                      `yaml:"path"`
	Rules map[string]yamlRuleOverride `yaml:"rules,omitempty"`
}

type yamlAdvanced struct {
	Thresholds  map[string]yamlParam        `yaml:"thresholds,omitempty"`
	Rules       map[string]yamlRuleOverride `yaml:"rules,omitempty"`
	Conditional []yamlConditional           `yaml:"conditional,omitempty"`
}

// yamlDocument is the alternate on-disk representation of Document (spec
// §6: "YAML... as an alternate format"). Field names are stable across
// versions to keep R1's load -> write -> reload round trip semantically
// equivalent.
type yamlDocument struct {
	Profile  string                          `yaml:"profile,omitempty"`
	Rules    map[string]yamlCategorySettings `yaml:"rules,omitempty"`
	Include  []string                        `yaml:"include,omitempty"`
	Exclude  []string                        `yaml:"exclude,omitempty"`
	Baseline string                          `yaml:"baseline,omitempty"`
	MaxJobs  int                             `yaml:"max_jobs,omitempty"`
	Advanced yamlAdvanced                    `yaml:"advanced,omitempty"`
}

func toYAMLDocument(d *Document) yamlDocument {
	out := yamlDocument{
		Profile:  d.Profile,
		Include:  d.Include,
		Exclude:  d.Exclude,
		Baseline: d.Baseline,
		MaxJobs:  d.MaxJobs,
	}
	if len(d.Rules) > 0 {
		out.Rules = make(map[string]yamlCategorySettings, len(d.Rules))
		for cat, cs := range d.Rules {
			yc := yamlCategorySettings{Enabled: cs.Enabled, Severity: cs.Severity}
			if len(cs.Rules) > 0 {
				yc.Rules = make(map[string]yamlRuleOverride, len(cs.Rules))
				for id, ro := range cs.Rules {
					yc.Rules[id] = toYAMLRuleOverride(ro)
				}
			}
			out.Rules[cat] = yc
		}
	}
	if len(d.Advanced.Thresholds) > 0 {
		out.Advanced.Thresholds = make(map[string]yamlParam, len(d.Advanced.Thresholds))
		for k, v := range d.Advanced.Thresholds {
			out.Advanced.Thresholds[k] = toYAMLParam(v)
		}
	}
	if len(d.Advanced.Rules) > 0 {
		out.Advanced.Rules = make(map[string]yamlRuleOverride, len(d.Advanced.Rules))
		for id, ro := range d.Advanced.Rules {
			out.Advanced.Rules[id] = toYAMLRuleOverride(ro)
		}
	}
	for _, cond := range d.Advanced.Conditional {
		yc := yamlConditional{Path: cond.PathPattern, Rules: make(map[string]yamlRuleOverride, len(cond.Rules))}
		for id, ro := range cond.Rules {
			yc.Rules[id] = toYAMLRuleOverride(ro)
		}
		out.Advanced.Conditional = append(out.Advanced.Conditional, yc)
	}
	return out
}

func (y yamlDocument) toDocument() *Document {
	d := NewDocument()
	d.Profile = y.Profile
	d.Include = y.Include
	d.Exclude = y.Exclude
	d.Baseline = y.Baseline
	d.MaxJobs = y.MaxJobs
	for cat, yc := range y.Rules {
		cs := CategorySettings{RuleOverride: RuleOverride{Enabled: yc.Enabled, Severity: yc.Severity}, Rules: make(map[string]RuleOverride)}
		for id, ro := range yc.Rules {
			cs.Rules[id] = ro.toRuleOverride()
		}
		d.Rules[cat] = cs
	}
	if len(y.Advanced.Thresholds) > 0 {
		d.Advanced.Thresholds = make(map[string]Param, len(y.Advanced.Thresholds))
		for k, v := range y.Advanced.Thresholds {
			d.Advanced.Thresholds[k] = v.toParam()
		}
	}
	if len(y.Advanced.Rules) > 0 {
		d.Advanced.Rules = make(map[string]RuleOverride, len(y.Advanced.Rules))
		for id, ro := range y.Advanced.Rules {
			d.Advanced.Rules[id] = ro.toRuleOverride()
		}
	}
	for _, yc := range y.Advanced.Conditional {
		cond := ConditionalOverride{PathPattern: yc.Path, Rules: make(map[string]RuleOverride, len(yc.Rules))}
		for id, ro := range yc.Rules {
			cond.Rules[id] = ro.toRuleOverride()
		}
		d.Advanced.Conditional = append(d.Advanced.Conditional, cond)
	}
	return d
}

// LoadYAML parses the YAML alternate configuration format.
func LoadYAML(content []byte) (*Document, error) {
	var y yamlDocument
	if err := yaml.Unmarshal(content, &y); err != nil {
		return nil, failures.NewConfigurationError("yaml", "", err)
	}
	return y.toDocument(), nil
}

// WriteYAML serializes a Document back to YAML, satisfying R1's
// load -> write -> reload round trip.
func WriteYAML(d *Document) ([]byte, error) {
	out, err := yaml.Marshal(toYAMLDocument(d))
	if err != nil {
		return nil, failures.NewConfigurationError("yaml", "", err)
	}
	return out, nil
}
