package decision

import (
	"testing"

	"github.com/mcpkit-go/policyguard/internal/domain/compiledpolicy"
	"github.com/mcpkit-go/policyguard/internal/domain/policy"
)

func compileOrFatal(t *testing.T, p *policy.Policy) *compiledpolicy.Policy {
	t.Helper()
	cp, err := compiledpolicy.Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return cp
}

// TestNilPolicyIsPermissive is the no-policy-transparency contract the
// enforcing middleware (C6) depends on: wrapping a nil compiled policy must
// answer every query with allow.
func TestNilPolicyIsPermissive(t *testing.T) {
	e := New(nil)
	if !e.IsToolAllowed("exec") || !e.IsNetworkAllowed("evil.example.com") ||
		!e.IsStorageAllowed("/etc/passwd", "write") || !e.IsEnvAllowed("SECRET_KEY") {
		t.Fatal("expected every query to allow with no policy installed")
	}
}

// TestEnvAllowDenyThroughEngine is seed scenario 1, exercised through the
// Engine rather than compiledpolicy.Policy directly.
func TestEnvAllowDenyThroughEngine(t *testing.T) {
	p := &policy.Policy{
		Version: "1",
		Core: policy.CorePermissions{
			Environment: &policy.EnvironmentPermissions{
				Allow: []policy.EnvironmentRule{{Key: "HOME"}, {Key: "PATH"}, {Key: "USER"}},
				Deny:  []policy.EnvironmentRule{{Key: "SECRET_KEY"}},
			},
		},
	}
	e := New(compileOrFatal(t, p))

	if !e.IsEnvAllowed("HOME") {
		t.Error("expected HOME to be allowed")
	}
	if e.IsEnvAllowed("SECRET_KEY") {
		t.Error("expected SECRET_KEY to be denied")
	}
	if e.IsEnvAllowed("UNLISTED_VAR") {
		t.Error("expected an unlisted name to default-deny when an allow list is present")
	}
}

// TestStorageDenyWinsThroughEngine is seed scenario 3 and P1, exercised
// through the Engine.
func TestStorageDenyWinsThroughEngine(t *testing.T) {
	p := &policy.Policy{
		Version: "1",
		Core: policy.CorePermissions{
			Storage: &policy.StoragePermissions{
				Allow: []policy.StorageRule{{URI: "fs:///tmp/**", Access: []string{"read", "write"}}},
				Deny:  []policy.StorageRule{{URI: "fs:///tmp/secret/**", Access: []string{"read", "write"}}},
			},
		},
	}
	e := New(compileOrFatal(t, p))

	if !e.IsStorageAllowed("/tmp/foo", "read") {
		t.Error("expected /tmp/foo read to be allowed")
	}
	if e.IsStorageAllowed("/tmp/secret/x", "write") {
		t.Error("expected /tmp/secret/x write to be denied by the more specific deny rule")
	}
}

// TestRepeatedQueriesAgree checks that asking the Engine the same query
// twice returns the same verdict. No cache is involved; the Engine holds
// no state that could change between calls.
func TestRepeatedQueriesAgree(t *testing.T) {
	p := &policy.Policy{
		Version: "1",
		Core: policy.CorePermissions{
			Tools: &policy.ToolPermissions{Allow: []policy.ToolRule{{Name: "add"}, {Name: "sub*"}}, Deny: []policy.ToolRule{{Name: "subprocess"}}},
		},
	}
	e := New(compileOrFatal(t, p))

	queries := []string{"add", "subtract", "subprocess", "exec", ""}
	for _, q := range queries {
		want := e.IsToolAllowed(q)
		got := e.IsToolAllowed(q) // second call must agree: Engine has no state to go stale
		if got != want {
			t.Errorf("IsToolAllowed(%q) inconsistent across calls: %v then %v", q, want, got)
		}
	}
}

// TestQueriesOnZeroValuePolicyNeverPanic checks that queries against a
// zero-value compiled policy return a verdict without panicking. The
// zero-value matchers hold nil maps and slices, which simply never match.
func TestQueriesOnZeroValuePolicyNeverPanic(t *testing.T) {
	e := New(&compiledpolicy.Policy{})
	// None of these must panic. The zero value's per-category defaults are
	// false, so each verdict is deny; only compile() sets the permissive
	// defaults for absent categories.
	_ = e.IsToolAllowed("anything")
	_ = e.IsNetworkAllowed("example.com")
	_ = e.IsStorageAllowed("/data/x", "read")
	_ = e.IsEnvAllowed("HOME")
}
