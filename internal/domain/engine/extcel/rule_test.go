package extcel

import (
	"testing"

	"github.com/mcpkit-go/policyguard/internal/domain/policy"
)

func TestRuleAllowed(t *testing.T) {
	rule, err := NewRule("tool-prefix", `tool_name.startsWith("safe_")`)
	if err != nil {
		t.Fatalf("NewRule: %v", err)
	}
	if rule.ID() != "tool-prefix" {
		t.Errorf("ID() = %q, want tool-prefix", rule.ID())
	}

	allowed, err := rule.Allowed(EvalContext{ToolName: "safe_read"})
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if !allowed {
		t.Error("expected safe_read to satisfy the prefix expression")
	}

	denied, err := rule.Allowed(EvalContext{ToolName: "exec"})
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if denied {
		t.Error("expected exec to fail the prefix expression")
	}
}

func TestRuleUsesSharedGlob(t *testing.T) {
	rule, err := NewRule("host-glob", `glob("*.example.com", host)`)
	if err != nil {
		t.Fatalf("NewRule: %v", err)
	}
	allowed, err := rule.Allowed(EvalContext{Host: "api.example.com"})
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if !allowed {
		t.Error("expected api.example.com to match *.example.com")
	}
}

func TestCompileRejectsEmptyExpression(t *testing.T) {
	if _, err := NewRule("empty", ""); err == nil {
		t.Fatal("expected an error for an empty expression")
	}
}

func TestEvaluateRejectsNonBooleanExpression(t *testing.T) {
	rule, err := NewRule("non-bool", `tool_name`)
	if err != nil {
		t.Fatalf("NewRule: %v", err)
	}
	if _, err := rule.Allowed(EvalContext{ToolName: "add"}); err == nil {
		t.Fatal("expected an error evaluating a non-boolean expression")
	}
}

func TestParseExtensionDocument(t *testing.T) {
	raw := policy.RawDocument(`
rules:
  - id: tool-prefix
    expression: 'tool_name.startsWith("safe_")'
  - id: host-glob
    expression: 'glob("*.example.com", host)'
`)
	rules, err := ParseExtensionDocument(raw)
	if err != nil {
		t.Fatalf("ParseExtensionDocument: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].ID() != "tool-prefix" || rules[1].ID() != "host-glob" {
		t.Fatalf("unexpected rule IDs: %q, %q", rules[0].ID(), rules[1].ID())
	}
}

func TestParseExtensionDocumentFailsAtomically(t *testing.T) {
	raw := policy.RawDocument(`
rules:
  - id: good
    expression: 'tool_name.startsWith("safe_")'
  - id: bad
    expression: 'tool_name.startsWith('
`)
	if _, err := ParseExtensionDocument(raw); err == nil {
		t.Fatal("expected the whole document to fail when one rule fails to compile")
	}
}
