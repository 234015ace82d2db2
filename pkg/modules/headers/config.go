package headers

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yonasBSD/pingora-utils/pkg/module"
)

// MatchRule matches requests by host and path. The string form is
// "host/path", "host" (all paths of the host) or "/path" (all hosts); a
// trailing "/*" turns the path into a prefix match.
type MatchRule struct {
	host   string
	path   string
	prefix bool
}

// ParseMatchRule parses the string form of a match rule.
func ParseMatchRule(value string) MatchRule {
	var host string
	if !strings.HasPrefix(value, "/") {
		var rest string
		var found bool
		host, rest, found = strings.Cut(value, "/")
		if found {
			value = "/" + rest
		} else {
			value = ""
		}
	}

	path, prefix := strings.CutSuffix(value, "/*")
	if path == "" && prefix || path == "/" {
		path = "/"
	} else {
		path = "/" + strings.Trim(path, "/")
	}

	if value == "" {
		// A bare host covers all of its paths.
		path, prefix = "/", true
		if host == "" {
			// The empty rule matches the root path of any host only.
			prefix = false
		}
	}
	return MatchRule{host: host, path: path, prefix: prefix}
}

// Matches checks the rule against a request's host and path.
func (m MatchRule) Matches(host, path string) bool {
	if m.host != "" && !strings.EqualFold(m.host, host) {
		return false
	}
	if path == "" {
		path = "/"
	}
	if !m.prefix {
		return path == m.path
	}
	if m.path == "/" {
		return true
	}
	return path == m.path || path == m.path+"/" || strings.HasPrefix(path, m.path+"/")
}

// specificity orders match rules: rules naming a host are closer matches
// than host-less ones, longer paths beat shorter ones, and an exact path
// beats a prefix of the same length.
func (m MatchRule) specificity() int {
	s := len(m.path) * 2
	if !m.prefix {
		s++
	}
	if m.host != "" {
		s += 1 << 16
	}
	return s
}

// UnmarshalYAML parses the rule from its string form.
func (m *MatchRule) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	*m = ParseMatchRule(s)
	return nil
}

// MatchRuleList accepts either a single match rule or a list of them.
type MatchRuleList []MatchRule

// UnmarshalYAML decodes one rule or a sequence of rules.
func (l *MatchRuleList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var rules []MatchRule
		if err := node.Decode(&rules); err != nil {
			return err
		}
		*l = rules
		return nil
	}
	var rule MatchRule
	if err := node.Decode(&rule); err != nil {
		return err
	}
	*l = MatchRuleList{rule}
	return nil
}

// fallbackRule is what an absent include list means: every request, with
// the lowest possible closeness.
var fallbackRule = MatchRule{path: "/", prefix: true}

// Rule attaches headers to requests selected by its match rules.
type Rule struct {
	// Include selects the requests the headers apply to. An absent list
	// selects every request.
	Include MatchRuleList `yaml:"include"`

	// Exclude removes requests from the selection again.
	Exclude MatchRuleList `yaml:"exclude"`

	// Headers maps header names to the values to set.
	Headers map[string]string `yaml:"headers"`
}

// match reports whether the rule applies to a request and how closely its
// best include entry matches. The rule applies when that entry is a closer
// match than any matching exclude entry; on a tie the exclusion wins.
func (r *Rule) match(host, path string) (closeness int, ok bool) {
	excluded := -1
	for _, rule := range r.Exclude {
		if s := rule.specificity(); s > excluded && rule.Matches(host, path) {
			excluded = s
		}
	}

	best := -1
	if len(r.Include) == 0 {
		best = fallbackRule.specificity()
	} else {
		for _, rule := range r.Include {
			if s := rule.specificity(); s > best && rule.Matches(host, path) {
				best = s
			}
		}
	}
	if best < 0 || best <= excluded {
		return 0, false
	}
	return best, true
}

// RuleList accepts either a single rule or a list of rules in YAML.
type RuleList []Rule

// UnmarshalYAML decodes one rule or a sequence of rules.
func (l *RuleList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var rules []Rule
		if err := node.Decode(&rules); err != nil {
			return err
		}
		*l = rules
		return nil
	}
	var rule Rule
	if err := node.Decode(&rule); err != nil {
		return err
	}
	*l = RuleList{rule}
	return nil
}

// Conf is the headers module's configuration fragment.
type Conf struct {
	// CustomHeaders is the list of header rules.
	CustomHeaders module.Opt[RuleList] `yaml:"custom_headers"`
}

// Keys implements module.Fragment.
func (c *Conf) Keys() []string {
	return []string{"custom_headers"}
}

// Merge implements module.Fragment. A rule list set by the override
// replaces the base list wholesale.
func (c *Conf) Merge(override module.Fragment) error {
	o, err := module.SameShape[*Conf](override)
	if err != nil {
		return err
	}
	c.CustomHeaders.Merge(o.CustomHeaders)
	return nil
}
