package compiledpolicy

// IsToolAllowed answers whether a tool name may be invoked under this
// policy. Deny-wins: a deny match returns false immediately; only then is
// allow consulted; absent a match, the category's precomputed default
// applies.
func (p *Policy) IsToolAllowed(name string) bool {
	if name == "" {
		return false
	}
	if p.toolDeny.matches(name) {
		return false
	}
	if p.toolAllow.matches(name) {
		return true
	}
	return p.toolDefaultAllow
}

// IsNetworkAllowed answers whether an outbound connection to host may
// proceed. host is matched against compiled glob patterns and, when it
// parses as an IP literal, against compiled CIDR ranges.
func (p *Policy) IsNetworkAllowed(host string) bool {
	if host == "" {
		return false
	}
	if p.networkDeny.matchesHost(host) {
		return false
	}
	if p.networkAllow.matchesHost(host) {
		return true
	}
	return p.networkDefaultAllow
}

// IsStorageAllowed answers whether op (one of "read", "write", "execute")
// may be performed on path.
func (p *Policy) IsStorageAllowed(path string, op string) bool {
	if path == "" || op == "" {
		return false
	}
	verb := ParseAccessVerb(op)
	if verb == 0 {
		return false
	}
	normalized := normalizeStoragePath(path)
	if p.storageDeny.matches(normalized, verb) {
		return false
	}
	if p.storageAllow.matches(normalized, verb) {
		return true
	}
	return p.storageDefaultAllow
}

// IsEnvAllowed answers whether an environment variable may be read.
func (p *Policy) IsEnvAllowed(key string) bool {
	if key == "" {
		return false
	}
	if p.envDeny.matches(key) {
		return false
	}
	if p.envAllow.matches(key) {
		return true
	}
	return p.envDefaultAllow
}
