package policy

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// knownTopLevelKeys are the keys consumed by CorePermissions/Policy proper;
// everything else in the document is captured into Policy.Extensions.
var knownTopLevelKeys = map[string]struct{}{
	"version":     {},
	"description": {},
	"core":        {},
}

// Parse decodes a policy document in the given format. It performs no
// validation beyond what's needed to produce a well-typed Policy; call
// Validate separately.
func Parse(document []byte, format Format) (*Policy, error) {
	switch format {
	case FormatYAML:
		return parseYAML(document)
	case FormatJSON:
		return parseJSON(document)
	default:
		return nil, &ParseError{Format: string(format), Reason: "unsupported format"}
	}
}

func parseYAML(document []byte) (*Policy, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(document, &raw); err != nil {
		return nil, &ParseError{Format: "yaml", Reason: err.Error()}
	}

	p := &Policy{Extensions: map[string]RawDocument{}}
	if n, ok := raw["version"]; ok {
		if err := n.Decode(&p.Version); err != nil {
			return nil, &ParseError{Format: "yaml", Reason: fmt.Sprintf("version: %v", err)}
		}
	}
	if n, ok := raw["description"]; ok {
		if err := n.Decode(&p.Description); err != nil {
			return nil, &ParseError{Format: "yaml", Reason: fmt.Sprintf("description: %v", err)}
		}
	}
	if n, ok := raw["core"]; ok {
		if err := decodeCore(&n, &p.Core); err != nil {
			return nil, err
		}
	}
	for k, n := range raw {
		if _, known := knownTopLevelKeys[k]; known {
			continue
		}
		encoded, err := yaml.Marshal(&n)
		if err != nil {
			return nil, &ParseError{Format: "yaml", Reason: fmt.Sprintf("extension %q: %v", k, err)}
		}
		p.Extensions[k] = RawDocument(encoded)
	}
	return p, nil
}

func decodeCore(n *yaml.Node, core *CorePermissions) error {
	var raw struct {
		Tools       *ToolPermissions        `yaml:"tools"`
		Storage     *StoragePermissions     `yaml:"storage"`
		Network     *rawNetworkPermissions  `yaml:"network"`
		Environment *EnvironmentPermissions `yaml:"environment"`
		Resources   *ResourceLimits         `yaml:"resources"`
	}
	if err := n.Decode(&raw); err != nil {
		return &ParseError{Format: "yaml", Reason: fmt.Sprintf("core: %v", err)}
	}
	core.Tools = raw.Tools
	core.Storage = raw.Storage
	core.Environment = raw.Environment
	core.Resources = raw.Resources
	if raw.Network != nil {
		core.Network = raw.Network.resolve()
	}
	return nil
}

// rawNetworkPermissions mirrors NetworkPermissions but with raw nodes for
// the untagged host|cidr union.
type rawNetworkPermissions struct {
	Allow []yaml.Node `yaml:"allow"`
	Deny  []yaml.Node `yaml:"deny"`
}

func (r *rawNetworkPermissions) resolve() *NetworkPermissions {
	np := &NetworkPermissions{}
	for _, n := range r.Allow {
		if rule, err := decodeNetworkRuleYAML(&n); err == nil {
			np.Allow = append(np.Allow, rule)
		}
	}
	for _, n := range r.Deny {
		if rule, err := decodeNetworkRuleYAML(&n); err == nil {
			np.Deny = append(np.Deny, rule)
		}
	}
	return np
}

func decodeNetworkRuleYAML(n *yaml.Node) (NetworkRule, error) {
	var fields struct {
		Host *string `yaml:"host"`
		CIDR *string `yaml:"cidr"`
	}
	if err := n.Decode(&fields); err != nil {
		return NetworkRule{}, err
	}
	return resolveNetworkRule(fields.Host, fields.CIDR)
}

func resolveNetworkRule(host, cidr *string) (NetworkRule, error) {
	switch {
	case host != nil:
		return NetworkRule{Kind: NetworkRuleHost, Host: *host}, nil
	case cidr != nil:
		return NetworkRule{Kind: NetworkRuleCIDR, CIDR: *cidr}, nil
	default:
		return NetworkRule{}, fmt.Errorf("network rule must have either 'host' or 'cidr'")
	}
}

func parseJSON(document []byte) (*Policy, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(document, &raw); err != nil {
		return nil, &ParseError{Format: "json", Reason: err.Error()}
	}

	p := &Policy{Extensions: map[string]RawDocument{}}
	if m, ok := raw["version"]; ok {
		if err := json.Unmarshal(m, &p.Version); err != nil {
			return nil, &ParseError{Format: "json", Reason: fmt.Sprintf("version: %v", err)}
		}
	}
	if m, ok := raw["description"]; ok {
		if err := json.Unmarshal(m, &p.Description); err != nil {
			return nil, &ParseError{Format: "json", Reason: fmt.Sprintf("description: %v", err)}
		}
	}
	if m, ok := raw["core"]; ok {
		var rawCore struct {
			Tools       *ToolPermissions        `json:"tools"`
			Storage     *StoragePermissions     `json:"storage"`
			Network     *rawNetworkPermissionsJ `json:"network"`
			Environment *EnvironmentPermissions `json:"environment"`
			Resources   *ResourceLimits         `json:"resources"`
		}
		if err := json.Unmarshal(m, &rawCore); err != nil {
			return nil, &ParseError{Format: "json", Reason: fmt.Sprintf("core: %v", err)}
		}
		p.Core.Tools = rawCore.Tools
		p.Core.Storage = rawCore.Storage
		p.Core.Environment = rawCore.Environment
		p.Core.Resources = rawCore.Resources
		if rawCore.Network != nil {
			np, err := rawCore.Network.resolve()
			if err != nil {
				return nil, &ParseError{Format: "json", Reason: err.Error()}
			}
			p.Core.Network = np
		}
	}
	for k, m := range raw {
		if _, known := knownTopLevelKeys[k]; known {
			continue
		}
		p.Extensions[k] = RawDocument(m)
	}
	return p, nil
}

type rawNetworkPermissionsJ struct {
	Allow []json.RawMessage `json:"allow"`
	Deny  []json.RawMessage `json:"deny"`
}

func (r *rawNetworkPermissionsJ) resolve() (*NetworkPermissions, error) {
	np := &NetworkPermissions{}
	for _, m := range r.Allow {
		rule, err := decodeNetworkRuleJSON(m)
		if err != nil {
			return nil, err
		}
		np.Allow = append(np.Allow, rule)
	}
	for _, m := range r.Deny {
		rule, err := decodeNetworkRuleJSON(m)
		if err != nil {
			return nil, err
		}
		np.Deny = append(np.Deny, rule)
	}
	return np, nil
}

func decodeNetworkRuleJSON(m json.RawMessage) (NetworkRule, error) {
	var fields struct {
		Host *string `json:"host"`
		CIDR *string `json:"cidr"`
	}
	if err := json.Unmarshal(m, &fields); err != nil {
		return NetworkRule{}, err
	}
	return resolveNetworkRule(fields.Host, fields.CIDR)
}
