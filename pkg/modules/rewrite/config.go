package rewrite

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yonasBSD/pingora-utils/pkg/module"
)

// RewriteType says what happens when a rule matches.
type RewriteType string

const (
	// TypeInternal changes the URI for the rest of the pipeline only.
	TypeInternal RewriteType = "internal"
	// TypeRedirect answers with a 307 Temporary Redirect.
	TypeRedirect RewriteType = "redirect"
	// TypePermanent answers with a 308 Permanent Redirect.
	TypePermanent RewriteType = "permanent"
)

// UnmarshalYAML validates the rewrite type.
func (t *RewriteType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch RewriteType(s) {
	case TypeInternal, TypeRedirect, TypePermanent:
		*t = RewriteType(s)
		return nil
	default:
		return fmt.Errorf("invalid rewrite type %q, expected internal, redirect or permanent (line %d)",
			s, node.Line)
	}
}

// RegexMatch is a regular expression restriction, negated by a leading "!".
type RegexMatch struct {
	regex  *regexp.Regexp
	negate bool
}

// ParseRegexMatch compiles a restriction like `\.png$` or `!\.png$`.
func ParseRegexMatch(value string) (*RegexMatch, error) {
	pattern, negate := strings.CutPrefix(value, "!")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &RegexMatch{regex: re, negate: negate}, nil
}

// Matches checks whether value satisfies the restriction.
func (m *RegexMatch) Matches(value string) bool {
	result := m.regex.MatchString(value)
	if m.negate {
		return !result
	}
	return result
}

// UnmarshalYAML decodes the restriction from its string form.
func (m *RegexMatch) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseRegexMatch(s)
	if err != nil {
		return fmt.Errorf("invalid regular expression %q (line %d): %w", s, node.Line, err)
	}
	*m = *parsed
	return nil
}

const (
	variablePrefix = "${"
	variableSuffix = "}"
)

// interpolationPart is either a literal or the name of a variable.
type interpolationPart struct {
	literal  string
	variable string
}

// Interpolation is a parsed string with ${variable} placeholders, like the
// to field of a rewrite rule.
type Interpolation struct {
	parts []interpolationPart
}

// ParseInterpolation splits value into literals and variable references.
// Variable names are alphanumeric plus underscore; anything else is kept as
// literal text, including unterminated "${".
func ParseInterpolation(value string) Interpolation {
	var parts []interpolationPart
	for value != "" {
		searchStart := 0
		for {
			start := indexAt(value, variablePrefix, searchStart)
			end := -1
			if start >= 0 {
				end = indexAt(value, variableSuffix, start)
			}

			if start >= 0 && end >= 0 {
				name := value[start+len(variablePrefix) : end]
				if isVariableName(name) {
					if start > 0 {
						parts = append(parts, interpolationPart{literal: value[:start]})
					}
					parts = append(parts, interpolationPart{variable: name})
					value = value[end+len(variableSuffix):]
					break
				}
				// Not a valid variable name, look for another variable
				// start further ahead.
				searchStart = start + len(variablePrefix)
			} else {
				parts = append(parts, interpolationPart{literal: value})
				value = ""
				break
			}
		}
	}
	return Interpolation{parts: parts}
}

func indexAt(s, pattern string, start int) int {
	idx := strings.Index(s[start:], pattern)
	if idx < 0 {
		return -1
	}
	return idx + start
}

func isVariableName(name string) bool {
	for _, c := range name {
		if c != '_' && (c < '0' || c > '9') && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

// Interpolate resolves variables through lookup. Variables the lookup does
// not know stay in the output verbatim, placeholder syntax included.
func (i Interpolation) Interpolate(lookup func(name string) (string, bool)) string {
	var b strings.Builder
	for _, part := range i.parts {
		if part.variable == "" {
			b.WriteString(part.literal)
			continue
		}
		if value, ok := lookup(part.variable); ok {
			b.WriteString(value)
		} else {
			b.WriteString(variablePrefix)
			b.WriteString(part.variable)
			b.WriteString(variableSuffix)
		}
	}
	return b.String()
}

// UnmarshalYAML parses the interpolation from its string form.
func (i *Interpolation) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	*i = ParseInterpolation(s)
	return nil
}

// isZero reports an Interpolation that was never provided.
func (i Interpolation) isZero() bool {
	return i.parts == nil
}

// PathMatcher matches an exact path, or a path prefix when the pattern
// ends in "/*".
type PathMatcher struct {
	path   string
	prefix bool
}

// ParsePathMatcher normalizes a pattern like "/dir/*" or "/file.txt".
func ParsePathMatcher(value string) PathMatcher {
	value, prefix := strings.CutSuffix(value, "/*")
	if value == "" || value == "/" {
		// "/*" and "/" both cover the root.
		value = "/"
	} else {
		value = "/" + strings.Trim(value, "/")
	}
	return PathMatcher{path: value, prefix: prefix}
}

// Match checks path against the pattern. For prefix patterns the returned
// tail is the part matched by "*".
func (m PathMatcher) Match(path string) (tail string, ok bool) {
	if path == "" {
		path = "/"
	}
	if !m.prefix {
		return "", path == m.path
	}
	if m.path == "/" {
		return strings.TrimPrefix(path, "/"), true
	}
	if path == m.path || path == m.path+"/" {
		return "", true
	}
	if rest, found := strings.CutPrefix(path, m.path+"/"); found {
		return rest, true
	}
	return "", false
}

// Prefix reports whether the pattern is a prefix match.
func (m PathMatcher) Prefix() bool {
	return m.prefix
}

// specificity orders matchers: longer paths are closer matches, and exact
// matches are closer than prefix matches for the same path.
func (m PathMatcher) specificity() int {
	s := len(m.path) * 2
	if !m.prefix {
		s++
	}
	return s
}

// UnmarshalYAML parses the matcher from its string form.
func (m *PathMatcher) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	*m = ParsePathMatcher(s)
	return nil
}

// isZero reports a PathMatcher that was never provided.
func (m PathMatcher) isZero() bool {
	return m.path == "" && !m.prefix
}

// Rule is one rewrite rule.
type Rule struct {
	// From is the path or path prefix to rewrite. Default: "/*".
	From PathMatcher `yaml:"from"`

	// FromRegex further restricts matching paths.
	FromRegex *RegexMatch `yaml:"from_regex"`

	// QueryRegex restricts matches to particular query strings.
	QueryRegex *RegexMatch `yaml:"query_regex"`

	// To is the new URI, with variable interpolation. Default: "/".
	To Interpolation `yaml:"to"`

	// Type is internal, redirect or permanent. Default: internal.
	Type RewriteType `yaml:"type"`
}

// normalize fills in rule defaults.
func (r *Rule) normalize() {
	if r.From.isZero() {
		r.From = ParsePathMatcher("/*")
	}
	if r.To.isZero() {
		r.To = ParseInterpolation("/")
	}
	if r.Type == "" {
		r.Type = TypeInternal
	}
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

// Conf is the rewrite module's configuration fragment.
type Conf struct {
	// Rules is the list of rewrite rules.
	Rules module.Opt[RuleList] `yaml:"rewrite_rules"`
}

// Keys implements module.Fragment.
func (c *Conf) Keys() []string {
	return []string{"rewrite_rules"}
}

// Merge implements module.Fragment. A rule list set by the override
// replaces the base list wholesale; rules are not spliced together.
func (c *Conf) Merge(override module.Fragment) error {
	o, err := module.SameShape[*Conf](override)
	if err != nil {
		return err
	}
	c.Rules.Merge(o.Rules)
	return nil
}
