package compiledpolicy

import (
	"testing"

	"github.com/mcpkit-go/policyguard/internal/domain/policy"
)

func mustCompile(t *testing.T, p *policy.Policy) *Policy {
	t.Helper()
	cp, err := Compile(p)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return cp
}

// TestEnvironmentAllowDeny is seed scenario 1: policy {allow: [HOME, PATH,
// USER], deny: [SECRET_KEY]}. HOME is allowed, SECRET_KEY is denied, and an
// unlisted name defaults to deny because an allow list is present.
func TestEnvironmentAllowDeny(t *testing.T) {
	p := &policy.Policy{
		Version: "1",
		Core: policy.CorePermissions{
			Environment: &policy.EnvironmentPermissions{
				Allow: []policy.EnvironmentRule{{Key: "HOME"}, {Key: "PATH"}, {Key: "USER"}},
				Deny:  []policy.EnvironmentRule{{Key: "SECRET_KEY"}},
			},
		},
	}
	cp := mustCompile(t, p)

	cases := map[string]bool{
		"HOME":       true,
		"SECRET_KEY": false,
		"RANDOM_VAR": false,
	}
	for key, want := range cases {
		if got := cp.IsEnvAllowed(key); got != want {
			t.Errorf("IsEnvAllowed(%q) = %v, want %v", key, got, want)
		}
	}
}

// TestStorageDenyWins is seed scenario 3 and P1: allow fs:///tmp/** for
// read+write, deny fs:///tmp/secret/** for read+write — the deny wins even
// though the path also matches the allow pattern.
func TestStorageDenyWins(t *testing.T) {
	p := &policy.Policy{
		Version: "1",
		Core: policy.CorePermissions{
			Storage: &policy.StoragePermissions{
				Allow: []policy.StorageRule{{URI: "fs:///tmp/**", Access: []string{"read", "write"}}},
				Deny:  []policy.StorageRule{{URI: "fs:///tmp/secret/**", Access: []string{"read", "write"}}},
			},
		},
	}
	cp := mustCompile(t, p)

	if !cp.IsStorageAllowed("/tmp/foo", "read") {
		t.Error("expected /tmp/foo read to be allowed")
	}
	if cp.IsStorageAllowed("/tmp/secret/x", "read") {
		t.Error("expected /tmp/secret/x read to be denied (deny-wins)")
	}
}

// TestDenyWinsAcrossAllCategories is P1, generalized: a name present in
// both an allow and a deny rule must resolve to deny for every query
// surface, not just storage.
func TestDenyWinsAcrossAllCategories(t *testing.T) {
	p := &policy.Policy{
		Version: "1",
		Core: policy.CorePermissions{
			Tools:       &policy.ToolPermissions{Allow: []policy.ToolRule{{Name: "exec*"}}, Deny: []policy.ToolRule{{Name: "exec"}}},
			Network:     &policy.NetworkPermissions{Allow: []policy.NetworkRule{{Kind: policy.NetworkRuleHost, Host: "*.example.com"}}, Deny: []policy.NetworkRule{{Kind: policy.NetworkRuleHost, Host: "evil.example.com"}}},
			Environment: &policy.EnvironmentPermissions{Allow: []policy.EnvironmentRule{{Key: "SECRET_*"}}, Deny: []policy.EnvironmentRule{{Key: "SECRET_KEY"}}},
		},
	}
	cp := mustCompile(t, p)

	if cp.IsToolAllowed("exec") {
		t.Error("exec should be denied despite matching the exec* allow pattern")
	}
	if cp.IsNetworkAllowed("evil.example.com") {
		t.Error("evil.example.com should be denied despite matching *.example.com")
	}
	if cp.IsEnvAllowed("SECRET_KEY") {
		t.Error("SECRET_KEY should be denied despite matching SECRET_*")
	}
}

// TestCompileIdempotent is P2: compiling the same policy twice produces
// compiled policies indistinguishable by their decision surface.
func TestCompileIdempotent(t *testing.T) {
	p := &policy.Policy{
		Version: "1",
		Core: policy.CorePermissions{
			Tools: &policy.ToolPermissions{Allow: []policy.ToolRule{{Name: "add"}, {Name: "sub*"}}},
			Storage: &policy.StoragePermissions{
				Allow: []policy.StorageRule{{URI: "/data/*", Access: []string{"read"}}},
			},
		},
	}
	a := mustCompile(t, p)
	b := mustCompile(t, p)

	queries := []string{"add", "subtract", "exec", ""}
	for _, q := range queries {
		if a.IsToolAllowed(q) != b.IsToolAllowed(q) {
			t.Errorf("IsToolAllowed(%q) diverged between compiles", q)
		}
	}
	paths := []string{"/data/report.csv", "/etc/passwd"}
	for _, path := range paths {
		if a.IsStorageAllowed(path, "read") != b.IsStorageAllowed(path, "read") {
			t.Errorf("IsStorageAllowed(%q) diverged between compiles", path)
		}
	}
}

// TestCIDRMatching exercises CIDR-based network rules and confirms a
// non-IP-literal host skips CIDR matching without error.
func TestCIDRMatching(t *testing.T) {
	p := &policy.Policy{
		Version: "1",
		Core: policy.CorePermissions{
			Network: &policy.NetworkPermissions{
				Allow: []policy.NetworkRule{{Kind: policy.NetworkRuleCIDR, CIDR: "10.0.0.0/8"}},
			},
		},
	}
	cp := mustCompile(t, p)

	if !cp.IsNetworkAllowed("10.1.2.3") {
		t.Error("expected 10.1.2.3 to match 10.0.0.0/8")
	}
	if cp.IsNetworkAllowed("192.168.1.1") {
		t.Error("expected 192.168.1.1 to be outside 10.0.0.0/8 and denied (allow list present)")
	}
	if cp.IsNetworkAllowed("example.com") {
		t.Error("a non-IP host should skip CIDR matching and fall to default (deny, allow list present)")
	}
}

// TestBadGlobPattern confirms a malformed glob fails compilation atomically
// with a BadPatternError, naming the offending pattern.
func TestBadGlobPattern(t *testing.T) {
	p := &policy.Policy{
		Version: "1",
		Core: policy.CorePermissions{
			Tools: &policy.ToolPermissions{Allow: []policy.ToolRule{{Name: "[unterminated"}}},
		},
	}
	_, err := Compile(p)
	if err == nil {
		t.Fatal("expected compile error for malformed glob")
	}
	var badPattern *BadPatternError
	if !asBadPattern(err, &badPattern) {
		t.Fatalf("expected *BadPatternError, got %T: %v", err, err)
	}
	if badPattern.Pattern != "[unterminated" {
		t.Errorf("expected pattern to name the offending glob, got %q", badPattern.Pattern)
	}
}

func asBadPattern(err error, target **BadPatternError) bool {
	if bp, ok := err.(*BadPatternError); ok {
		*target = bp
		return true
	}
	return false
}

// TestBadCIDR confirms a malformed CIDR fails compilation with a
// BadCIDRError.
func TestBadCIDR(t *testing.T) {
	p := &policy.Policy{
		Version: "1",
		Core: policy.CorePermissions{
			Network: &policy.NetworkPermissions{Allow: []policy.NetworkRule{{Kind: policy.NetworkRuleCIDR, CIDR: "not-a-cidr"}}},
		},
	}
	_, err := Compile(p)
	if err == nil {
		t.Fatal("expected compile error for malformed CIDR")
	}
	if _, ok := err.(*BadCIDRError); !ok {
		t.Fatalf("expected *BadCIDRError, got %T: %v", err, err)
	}
}

// TestNoRulesIsPermissive covers the "category entirely absent" default
// policy: every query returns true when no rules exist for that category.
func TestNoRulesIsPermissive(t *testing.T) {
	cp := mustCompile(t, &policy.Policy{Version: "1"})
	if !cp.IsToolAllowed("anything") || !cp.IsNetworkAllowed("example.com") ||
		!cp.IsStorageAllowed("/any/path", "write") || !cp.IsEnvAllowed("ANY_VAR") {
		t.Fatal("expected permissive defaults when no rules are present for any category")
	}
}

// TestEmptyStringAlwaysDenied covers the edge case: empty string input is
// always a deny, regardless of category defaults.
func TestEmptyStringAlwaysDenied(t *testing.T) {
	cp := mustCompile(t, &policy.Policy{Version: "1"})
	if cp.IsToolAllowed("") || cp.IsNetworkAllowed("") || cp.IsStorageAllowed("", "read") || cp.IsEnvAllowed("") {
		t.Fatal("empty string input must always be denied")
	}
}

// TestDenyOnlyDefaultsToAllow covers the deny-only category default: an
// unlisted name is allowed when only a deny list exists.
func TestDenyOnlyDefaultsToAllow(t *testing.T) {
	p := &policy.Policy{
		Version: "1",
		Core:    policy.CorePermissions{Environment: &policy.EnvironmentPermissions{Deny: []policy.EnvironmentRule{{Key: "SECRET_KEY"}}}},
	}
	cp := mustCompile(t, p)
	if !cp.IsEnvAllowed("HOME") {
		t.Error("deny-only category should default to allow for unlisted names")
	}
	if cp.IsEnvAllowed("SECRET_KEY") {
		t.Error("SECRET_KEY should still be denied")
	}
}

// TestCapabilitiesBitflags confirms the bit is set exactly when the
// corresponding allow list is non-empty (environment's default-permit also
// sets CapEnvironment, per Compile's documented behavior).
func TestCapabilitiesBitflags(t *testing.T) {
	p := &policy.Policy{
		Version: "1",
		Core: policy.CorePermissions{
			Network: &policy.NetworkPermissions{Allow: []policy.NetworkRule{{Kind: policy.NetworkRuleHost, Host: "*.example.com"}}},
			Storage: &policy.StoragePermissions{Allow: []policy.StorageRule{{URI: "/data/*", Access: []string{"read"}}}},
			Resources: &policy.ResourceLimits{Limits: policy.ResourceLimitValues{Fuel: 1000}},
		},
	}
	cp := mustCompile(t, p)
	if !cp.Capabilities.Has(CapNetwork) {
		t.Error("expected CapNetwork set")
	}
	if !cp.Capabilities.Has(CapFilesystem) {
		t.Error("expected CapFilesystem set")
	}
	if !cp.Capabilities.Has(CapFuelLimit) {
		t.Error("expected CapFuelLimit set")
	}
	if !cp.Capabilities.Has(CapEnvironment) {
		t.Error("expected CapEnvironment set (no environment rules means default-permit)")
	}
}
