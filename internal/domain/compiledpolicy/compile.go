package compiledpolicy

import (
	"context"
	"net"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mcpkit-go/policyguard/internal/domain/policy"
	"github.com/mcpkit-go/policyguard/internal/telemetry"
)

// isWildcard mirrors the teacher's own RuleIndex split
// (strings.ContainsAny(pattern, "*?[")) used to route a pattern to the
// literal map or the compiled-glob slice.
func isWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

func compileStringList(names []string) (stringMatcher, error) {
	m := stringMatcher{literals: map[string]struct{}{}}
	for _, name := range names {
		if !isWildcard(name) {
			m.literals[name] = struct{}{}
			continue
		}
		g, err := glob.Compile(name)
		if err != nil {
			return stringMatcher{}, &BadPatternError{Pattern: name, Reason: err.Error()}
		}
		m.wildcards = append(m.wildcards, g)
	}
	return m, nil
}

func compileToolRules(rules []policy.ToolRule) (stringMatcher, error) {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return compileStringList(names)
}

func compileEnvRules(rules []policy.EnvironmentRule) (stringMatcher, error) {
	keys := make([]string, len(rules))
	for i, r := range rules {
		keys[i] = r.Key
	}
	return compileStringList(keys)
}

func compileNetworkRules(rules []policy.NetworkRule) (networkMatcher, error) {
	var hosts []string
	var m networkMatcher
	for _, r := range rules {
		switch r.Kind {
		case policy.NetworkRuleHost:
			hosts = append(hosts, r.Host)
		case policy.NetworkRuleCIDR:
			_, ipnet, err := net.ParseCIDR(r.CIDR)
			if err != nil {
				return networkMatcher{}, &BadCIDRError{CIDR: r.CIDR}
			}
			m.cidrs = append(m.cidrs, ipnet)
		}
	}
	hostMatcher, err := compileStringList(hosts)
	if err != nil {
		return networkMatcher{}, err
	}
	m.hosts = hostMatcher
	return m, nil
}

// normalizeStoragePath strips the fs:// scheme and collapses "./" segments
// and a trailing "/", matching the textual-only normalization spec.md §4.3
// calls for (no symlink resolution).
func normalizeStoragePath(path string) string {
	path = strings.TrimPrefix(path, "fs://")
	for strings.Contains(path, "./") {
		path = strings.ReplaceAll(path, "./", "")
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

func compileStorageRules(rules []policy.StorageRule) (storageMatcher, map[string]AccessVerb, error) {
	m := storageMatcher{literals: map[string]AccessVerb{}}
	accessMap := map[string]AccessVerb{}
	for _, r := range rules {
		normalized := normalizeStoragePath(r.URI)
		var access AccessVerb
		for _, v := range r.Access {
			access |= ParseAccessVerb(v)
		}
		accessMap[normalized] |= access

		if !isWildcard(normalized) {
			m.literals[normalized] |= access
			continue
		}
		g, err := glob.Compile(normalized)
		if err != nil {
			return storageMatcher{}, nil, &BadPatternError{Pattern: normalized, Reason: err.Error()}
		}
		m.wildcards = append(m.wildcards, storageEntry{matcher: g, access: access})
	}
	return m, accessMap, nil
}

// Compile validates nothing beyond what policy.Validate already checked; it
// transforms a Policy into its immutable, O(1)-lookup CompiledPolicy form.
// Compilation is atomic: on any sub-failure no partial *Policy is returned.
//
// Compile is the context-free convenience entry point; embedders that want
// the compile span parented under their own request/startup trace should
// use CompileContext instead.
func Compile(p *policy.Policy) (*Policy, error) {
	return CompileContext(context.Background(), p)
}

// CompileContext is Compile with an explicit span parent. Compilation
// happens once per policy load, off the decision-query hot path, so a span
// here carries none of the synchronous-non-suspending constraints the
// decision engine (C3) is held to.
func CompileContext(ctx context.Context, p *policy.Policy) (*Policy, error) {
	_, span := telemetry.Tracer.Start(ctx, "policyguard.compile")
	defer span.End()

	cp, err := compile(p)
	if err != nil {
		span.RecordError(err)
	}
	return cp, err
}

func compile(p *policy.Policy) (*Policy, error) {
	cp := &Policy{}

	if p.Core.Tools != nil {
		allow, err := compileToolRules(p.Core.Tools.Allow)
		if err != nil {
			return nil, err
		}
		deny, err := compileToolRules(p.Core.Tools.Deny)
		if err != nil {
			return nil, err
		}
		cp.toolAllow, cp.toolDeny = allow, deny
		cp.toolDefaultAllow = defaultAllow(len(p.Core.Tools.Allow) > 0, len(p.Core.Tools.Deny) > 0)
	} else {
		cp.toolDefaultAllow = true
	}

	if p.Core.Network != nil {
		allow, err := compileNetworkRules(p.Core.Network.Allow)
		if err != nil {
			return nil, err
		}
		deny, err := compileNetworkRules(p.Core.Network.Deny)
		if err != nil {
			return nil, err
		}
		cp.networkAllow, cp.networkDeny = allow, deny
		cp.networkDefaultAllow = defaultAllow(len(p.Core.Network.Allow) > 0, len(p.Core.Network.Deny) > 0)
		if len(p.Core.Network.Allow) > 0 {
			cp.Capabilities |= CapNetwork
		}
	} else {
		cp.networkDefaultAllow = true
	}

	if p.Core.Storage != nil {
		allow, accessMap, err := compileStorageRules(p.Core.Storage.Allow)
		if err != nil {
			return nil, err
		}
		deny, _, err := compileStorageRules(p.Core.Storage.Deny)
		if err != nil {
			return nil, err
		}
		cp.storageAllow, cp.storageDeny = allow, deny
		cp.StorageAccessMap = accessMap
		cp.storageDefaultAllow = defaultAllow(len(p.Core.Storage.Allow) > 0, len(p.Core.Storage.Deny) > 0)
		if len(p.Core.Storage.Allow) > 0 {
			cp.Capabilities |= CapFilesystem
		}
	} else {
		cp.storageDefaultAllow = true
		cp.StorageAccessMap = map[string]AccessVerb{}
	}

	if p.Core.Environment != nil {
		allow, err := compileEnvRules(p.Core.Environment.Allow)
		if err != nil {
			return nil, err
		}
		deny, err := compileEnvRules(p.Core.Environment.Deny)
		if err != nil {
			return nil, err
		}
		cp.envAllow, cp.envDeny = allow, deny
		cp.envDefaultAllow = defaultAllow(len(p.Core.Environment.Allow) > 0, len(p.Core.Environment.Deny) > 0)
		if len(p.Core.Environment.Allow) > 0 || cp.envDefaultAllow {
			cp.Capabilities |= CapEnvironment
		}
	} else {
		cp.envDefaultAllow = true
		cp.Capabilities |= CapEnvironment
	}

	if p.Core.Resources != nil && p.Core.Resources.Limits.Fuel > 0 {
		cp.Capabilities |= CapFuelLimit
	}

	return cp, nil
}
