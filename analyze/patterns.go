package analyze

import (
	"os"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/parplan/parplan/errors"
	"github.com/parplan/parplan/plan"
)

// Rule is one pattern-detector rule: when a task whose category matches
// Dependent coexists with a task whose category matches DependsOn, suggest an
// edge from the former to the latter. Category patterns are globs, so a rule
// can target a single category ("testing"), a family ("doc*"), or everything
// ("*").
type Rule struct {
	// Dependent is the glob matched against the waiting task's category.
	Dependent string `yaml:"dependent"`

	// DependsOn is the glob matched against the prerequisite task's category.
	DependsOn string `yaml:"depends_on"`

	// Type is the dependency type suggested edges carry. Empty means hard.
	Type plan.DependencyType `yaml:"type,omitempty"`

	// Confidence is the rule's score, in [0, 1].
	Confidence float64 `yaml:"confidence"`

	dependentGlob glob.Glob
	dependsOnGlob glob.Glob
}

// Registry holds compiled pattern rules in declaration order. Later rules
// override earlier ones when both match a pair, so file-loaded rules take
// precedence over the built-ins.
type Registry struct {
	rules []Rule
}

// DefaultRegistry returns a registry preloaded with the common workflow
// rules: testing follows implementation, implementation follows analysis,
// documentation follows implementation, deployment follows testing, and
// refactoring follows analysis.
func DefaultRegistry() *Registry {
	r := &Registry{}
	for _, rule := range []Rule{
		{Dependent: "testing", DependsOn: "implementation", Type: plan.DependencyHard, Confidence: 0.85},
		{Dependent: "implementation", DependsOn: "analysis", Type: plan.DependencyHard, Confidence: 0.80},
		{Dependent: "documentation", DependsOn: "implementation", Type: plan.DependencyHard, Confidence: 0.75},
		{Dependent: "deployment", DependsOn: "testing", Type: plan.DependencyHard, Confidence: 0.85},
		{Dependent: "refactoring", DependsOn: "analysis", Type: plan.DependencyHard, Confidence: 0.72},
	} {
		// Built-in patterns are literal category names and always compile.
		_ = r.Add(rule)
	}
	return r
}

// Add compiles and appends one rule. Invalid globs or an out-of-range
// confidence return a *errors.ValidationError.
func (r *Registry) Add(rule Rule) error {
	if rule.Confidence < 0 || rule.Confidence > 1 {
		return errors.NewValidationError("pattern rule confidence must be in [0, 1]").
			WithField("confidence").WithValue(rule.Confidence)
	}
	if rule.Type == "" {
		rule.Type = plan.DependencyHard
	}
	if !rule.Type.IsValid() {
		return errors.NewValidationError("pattern rule has an unknown dependency type").
			WithField("type").WithValue(string(rule.Type))
	}

	var err error
	if rule.dependentGlob, err = glob.Compile(rule.Dependent); err != nil {
		return errors.NewValidationError("pattern rule dependent glob does not compile").
			WithField("dependent").WithValue(rule.Dependent).WithCause(err)
	}
	if rule.dependsOnGlob, err = glob.Compile(rule.DependsOn); err != nil {
		return errors.NewValidationError("pattern rule depends_on glob does not compile").
			WithField("depends_on").WithValue(rule.DependsOn).WithCause(err)
	}

	r.rules = append(r.rules, rule)
	return nil
}

// Match returns the last rule matching the pair's categories, if any.
func (r *Registry) Match(dependent, prerequisite plan.Task) (Rule, bool) {
	for i := len(r.rules) - 1; i >= 0; i-- {
		rule := r.rules[i]
		if rule.dependentGlob.Match(dependent.Category.String()) &&
			rule.dependsOnGlob.Match(prerequisite.Category.String()) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Rules returns a copy of the registry's rules.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// ruleFile is the YAML shape of a pattern rules file.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFile appends the rules from a YAML file to the registry. The file has
// a single top-level "rules" list; each entry names dependent and depends_on
// category globs, a confidence, and an optional type.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read pattern rules file")
	}
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return errors.Wrap(err, "failed to parse pattern rules file")
	}
	for i, rule := range file.Rules {
		if err := r.Add(rule); err != nil {
			return errors.Wrapf(err, "pattern rule %d is invalid", i)
		}
	}
	return nil
}
