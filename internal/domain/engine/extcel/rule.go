package extcel

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"

	"github.com/mcpkit-go/policyguard/internal/domain/engine"
	"github.com/mcpkit-go/policyguard/internal/domain/policy"
)

// Rule wraps one compiled CEL expression as a registry Extension. An
// embedder registers a Rule under its ID via
// engine.Registry.RegisterExtension and calls Allowed explicitly wherever
// it wants the extension consulted — never from inside decision.Engine's
// synchronous queries.
type Rule struct {
	id        string
	evaluator *Evaluator
	program   cel.Program
}

// NewRule compiles expression under a fresh CEL environment and names the
// result id (the ID() the registry keys extensions by).
func NewRule(id, expression string) (*Rule, error) {
	ev, err := New()
	if err != nil {
		return nil, err
	}
	prg, err := ev.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("extcel: rule %q: %w", id, err)
	}
	return &Rule{id: id, evaluator: ev, program: prg}, nil
}

// ID satisfies engine.Extension.
func (r *Rule) ID() string { return r.id }

// Allowed evaluates the wrapped expression against ctx.
func (r *Rule) Allowed(ctx EvalContext) (bool, error) {
	return r.evaluator.Evaluate(r.program, ctx)
}

var _ engine.Extension = (*Rule)(nil)

// document is the schema for a Policy.Extensions["cel"] blob: a named list
// of independently evaluated rules.
type document struct {
	Rules []struct {
		ID         string `yaml:"id"`
		Expression string `yaml:"expression"`
	} `yaml:"rules"`
}

// ParseExtensionDocument decodes a Policy.Extensions["cel"] raw document
// into a set of compiled Rules, one per entry. A malformed or
// failing-to-compile rule fails the whole document — partial extension
// sets are not installed, matching C2's atomic-compile discipline.
func ParseExtensionDocument(raw policy.RawDocument) ([]*Rule, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("extcel: parse extension document: %w", err)
	}
	rules := make([]*Rule, 0, len(doc.Rules))
	for _, r := range doc.Rules {
		rule, err := NewRule(r.ID, r.Expression)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
