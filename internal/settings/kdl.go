package settings

import (
	"fmt"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/sentrygo/internal/failures"
)

// LoadKDL parses the canonical KDL configuration format (spec §6: "the
// canonical is a hierarchical text format").
func LoadKDL(content string) (*Document, error) {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, failures.NewConfigurationError("kdl", "", err)
	}

	cfg := NewDocument()
	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "profile":
			if s, ok := firstStringArg(n); ok {
				cfg.Profile = s
			}
		case "include":
			cfg.Include = append(cfg.Include, collectStringArgs(n)...)
		case "exclude":
			cfg.Exclude = append(cfg.Exclude, collectStringArgs(n)...)
		case "baseline":
			if s, ok := firstStringArg(n); ok {
				cfg.Baseline = s
			}
		case "max_jobs":
			if v, ok := firstIntArg(n); ok {
				cfg.MaxJobs = v
			}
		case "rules":
			for _, categoryNode := range n.Children {
				category := nodeName(categoryNode)
				cfg.Rules[category] = parseCategoryNode(categoryNode)
			}
		case "advanced":
			cfg.Advanced = parseAdvancedNode(n)
		}
	}
	return cfg, nil
}

func parseCategoryNode(n *document.Node) CategorySettings {
	cat := CategorySettings{Rules: make(map[string]RuleOverride)}
	for _, cn := range n.Children {
		name := nodeName(cn)
		switch name {
		case "enabled":
			if b, ok := firstBoolArg(cn); ok {
				cat.Enabled = &b
			}
		case "severity":
			if s, ok := firstStringArg(cn); ok {
				cat.Severity = s
			}
		case "rule":
			if id, ok := firstStringArg(cn); ok {
				cat.Rules[id] = parseRuleOverrideNode(cn)
			}
		}
	}
	return cat
}

func parseRuleOverrideNode(n *document.Node) RuleOverride {
	ro := RuleOverride{Params: make(map[string]Param)}
	for _, cn := range n.Children {
		name := nodeName(cn)
		switch name {
		case "enabled":
			if b, ok := firstBoolArg(cn); ok {
				ro.Enabled = &b
			}
		case "severity":
			if s, ok := firstStringArg(cn); ok {
				ro.Severity = s
			}
		case "param":
			if key, ok := firstStringArg(cn); ok && len(cn.Arguments) > 1 {
				ro.Params[key] = paramFromArgValue(cn.Arguments[1].Value)
			}
		}
	}
	return ro
}

func parseAdvancedNode(n *document.Node) AdvancedSettings {
	adv := AdvancedSettings{Thresholds: make(map[string]Param), Rules: make(map[string]RuleOverride)}
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "threshold":
			if key, ok := firstStringArg(cn); ok && len(cn.Arguments) > 1 {
				adv.Thresholds[key] = paramFromArgValue(cn.Arguments[1].Value)
			}
		case "rule":
			if id, ok := firstStringArg(cn); ok {
				adv.Rules[id] = parseRuleOverrideNode(cn)
			}
		case "conditional":
			if pattern, ok := firstStringArg(cn); ok {
				cond := ConditionalOverride{PathPattern: pattern, Rules: make(map[string]RuleOverride)}
				for _, rn := range cn.Children {
					if nodeName(rn) == "rule" {
						if id, ok := firstStringArg(rn); ok {
							cond.Rules[id] = parseRuleOverrideNode(rn)
						}
					}
				}
				adv.Conditional = append(adv.Conditional, cond)
			}
		}
	}
	return adv
}

func paramFromArgValue(v interface{}) Param {
	switch val := v.(type) {
	case int64:
		return IntParam(val)
	case float64:
		return FloatParam(val)
	case bool:
		return BoolParam(val)
	case string:
		return StringParam(val)
	default:
		return StringParam(fmt.Sprintf("%v", val))
	}
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
