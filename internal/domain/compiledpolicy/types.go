// Package compiledpolicy holds the immutable, O(1)-lookup form a Policy
// document compiles into. A *Policy value here is safe to share across any
// number of goroutines without locking: nothing on it is ever mutated after
// Compile returns.
package compiledpolicy

import (
	"net"

	"github.com/gobwas/glob"
)

// AccessVerb is one of the three storage access modes a rule can grant.
type AccessVerb uint8

const (
	AccessRead AccessVerb = 1 << iota
	AccessWrite
	AccessExecute
)

// ParseAccessVerb maps a policy-document verb string to its bit. Unknown
// verbs map to 0 and are the caller's responsibility to report/ignore.
func ParseAccessVerb(s string) AccessVerb {
	switch s {
	case "read":
		return AccessRead
	case "write":
		return AccessWrite
	case "execute":
		return AccessExecute
	default:
		return 0
	}
}

// Capabilities is a precomputed bitset surfaced to the runtime enforcer so
// it can skip wiring subsystems a policy provably never grants.
type Capabilities uint32

const (
	CapNetwork Capabilities = 1 << iota
	CapFilesystem
	CapEnvironment
	CapFuelLimit
)

// Has reports whether the given bit is set.
func (c Capabilities) Has(bit Capabilities) bool { return c&bit != 0 }

// storageEntry is one compiled wildcard storage rule: its glob matcher and
// the access verbs it grants. Literal URIs are kept in
// storageMatcher.literals instead.
type storageEntry struct {
	matcher glob.Glob
	access  AccessVerb
}

// storageMatcher splits a rule list into an O(1) literal-hit map and a
// residual slice of compiled glob matchers, per the compiler algorithm.
type storageMatcher struct {
	literals  map[string]AccessVerb
	wildcards []storageEntry
}

func (m *storageMatcher) matches(path string, op AccessVerb) bool {
	if m == nil {
		return false
	}
	if access, ok := m.literals[path]; ok && access&op != 0 {
		return true
	}
	for _, e := range m.wildcards {
		if e.access&op != 0 && e.matcher.Match(path) {
			return true
		}
	}
	return false
}

// stringMatcher is the literal+wildcard split used for tool names and
// environment variable keys, which have no access-verb dimension.
type stringMatcher struct {
	literals  map[string]struct{}
	wildcards []glob.Glob
}

func (m *stringMatcher) matches(s string) bool {
	if m == nil {
		return false
	}
	if _, ok := m.literals[s]; ok {
		return true
	}
	for _, g := range m.wildcards {
		if g.Match(s) {
			return true
		}
	}
	return false
}

func (m *stringMatcher) empty() bool {
	return m == nil || (len(m.literals) == 0 && len(m.wildcards) == 0)
}

// networkMatcher adds CIDR matching on top of the host-glob stringMatcher.
type networkMatcher struct {
	hosts stringMatcher
	cidrs []*net.IPNet
}

func (m *networkMatcher) matchesHost(host string) bool {
	if m == nil {
		return false
	}
	if m.hosts.matches(host) {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		for _, cidr := range m.cidrs {
			if cidr.Contains(ip) {
				return true
			}
		}
	}
	return false
}

func (m *networkMatcher) empty() bool {
	return m == nil || (m.hosts.empty() && len(m.cidrs) == 0)
}

// Policy is the immutable compiled form of a policy document. Every field
// is written once, by Compile, and never mutated afterward.
type Policy struct {
	toolAllow        stringMatcher
	toolDeny         stringMatcher
	toolDefaultAllow bool

	networkAllow        networkMatcher
	networkDeny         networkMatcher
	networkDefaultAllow bool

	storageAllow        storageMatcher
	storageDeny         storageMatcher
	storageDefaultAllow bool

	envAllow        stringMatcher
	envDeny         stringMatcher
	envDefaultAllow bool

	// StorageAccessMap maps each normalized allow-rule pattern to the union
	// of access verbs granted to it — the artifact §4.2 step 2 and the
	// sandbox capability mapper (C5) consume directly.
	StorageAccessMap map[string]AccessVerb

	Capabilities Capabilities
}

// defaultAllow implements the per-category default-policy rule shared by
// tool/network/storage/env: absent or empty on both sides is permissive;
// an allow list with entries expresses restrictive intent (default deny)
// regardless of whether a deny list also has entries; a deny-only category
// defaults to allow.
func defaultAllow(hasAllowEntries, hasDenyEntries bool) bool {
	switch {
	case !hasAllowEntries && !hasDenyEntries:
		return true
	case hasAllowEntries:
		return false
	default: // deny-only
		return true
	}
}
