package policy

import "strings"

// majorVersion extracts the leading dot-separated component of a version
// string, e.g. "1.2" -> "1", "1" -> "1".
func majorVersion(v string) string {
	if i := strings.IndexByte(v, '.'); i >= 0 {
		return v[:i]
	}
	return v
}

// Merge folds overlay into base in place: allow/deny lists are extended
// additively, extension documents are merged with overlay winning on key
// collision, and resource limits keep base's value when both are present.
//
// The resource-limit behavior is intentionally base-wins, not an
// element-wise minimum. The original implementation this was distilled
// from documents the intent as "keep the more restrictive limit" but never
// actually compares values — it just keeps whatever base already has. That
// behavior is preserved here rather than "fixed", since callers may already
// depend on base (the more-trusted policy in the merge order) winning
// outright. See DESIGN.md for the full discussion.
//
// Merging policies whose major versions disagree is refused outright: there
// is no sound way to combine rule sets authored against incompatible schema
// versions.
func Merge(base *Policy, overlay *Policy) error {
	if majorVersion(base.Version) != majorVersion(overlay.Version) {
		return &VersionMismatchError{Base: base.Version, Overlay: overlay.Version}
	}

	if overlay.Core.Tools != nil {
		if base.Core.Tools == nil {
			base.Core.Tools = overlay.Core.Tools
		} else {
			base.Core.Tools.Allow = append(base.Core.Tools.Allow, overlay.Core.Tools.Allow...)
			base.Core.Tools.Deny = append(base.Core.Tools.Deny, overlay.Core.Tools.Deny...)
		}
	}

	if overlay.Core.Storage != nil {
		if base.Core.Storage == nil {
			base.Core.Storage = overlay.Core.Storage
		} else {
			base.Core.Storage.Allow = append(base.Core.Storage.Allow, overlay.Core.Storage.Allow...)
			base.Core.Storage.Deny = append(base.Core.Storage.Deny, overlay.Core.Storage.Deny...)
		}
	}

	if overlay.Core.Network != nil {
		if base.Core.Network == nil {
			base.Core.Network = overlay.Core.Network
		} else {
			base.Core.Network.Allow = append(base.Core.Network.Allow, overlay.Core.Network.Allow...)
			base.Core.Network.Deny = append(base.Core.Network.Deny, overlay.Core.Network.Deny...)
		}
	}

	if overlay.Core.Environment != nil {
		if base.Core.Environment == nil {
			base.Core.Environment = overlay.Core.Environment
		} else {
			base.Core.Environment.Allow = append(base.Core.Environment.Allow, overlay.Core.Environment.Allow...)
			base.Core.Environment.Deny = append(base.Core.Environment.Deny, overlay.Core.Environment.Deny...)
		}
	}

	if overlay.Core.Resources != nil && base.Core.Resources == nil {
		base.Core.Resources = overlay.Core.Resources
	}
	// else: base already has resource limits; base wins (see doc comment).

	if overlay.Extensions != nil {
		if base.Extensions == nil {
			base.Extensions = map[string]RawDocument{}
		}
		for k, v := range overlay.Extensions {
			base.Extensions[k] = v
		}
	}

	return nil
}
