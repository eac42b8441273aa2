// Package policy defines the declarative permission model: the mutable,
// untrusted-until-validated document an embedder loads before compilation.
package policy

// Format identifies the wire encoding of a policy document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// SupportedMajorVersion is the only major version this build accepts.
const SupportedMajorVersion = "1"

// Policy is the top-level declarative document. It carries no compiled
// state and is safe to mutate (e.g. via Merge) until handed to the compiler.
type Policy struct {
	Version     string                 `yaml:"version" json:"version" validate:"required"`
	Description string                 `yaml:"description,omitempty" json:"description,omitempty"`
	Core        CorePermissions        `yaml:"core" json:"core"`
	// Extensions holds every top-level key other than version/description/
	// core, captured by the custom decoders in parse.go (JSON bytes as
	// written, YAML re-encoded from its parsed node; the Go
	// equivalent of serde's #[serde(flatten)] onto an opaque value map).
	Extensions map[string]RawDocument `yaml:"-" json:"-"`
}

// RawDocument holds an opaque extension sub-document, carried through
// compilation unparsed. Extensions are looked at only by Glue-layer
// components (e.g. the optional CEL evaluator), never by C1-C6 proper.
type RawDocument []byte

// CorePermissions groups the permission categories. Each is a pointer so
// "absent" (nil) is distinguishable from "present but empty", which matters
// for the decision engine's per-category default policy.
//
// Tools is not named in every description of this document (some only list
// storage/network/environment/resources), but the decision surface has
// always exposed is_tool_allowed and the compiled form has always carried
// tool_allow_set/tool_deny_set alongside the other three rule-list
// categories. Treated here as the same kind of allow/deny rule list as
// storage/network/environment, for consistency. See DESIGN.md.
type CorePermissions struct {
	Tools       *ToolPermissions        `yaml:"tools,omitempty" json:"tools,omitempty"`
	Storage     *StoragePermissions     `yaml:"storage,omitempty" json:"storage,omitempty"`
	Network     *NetworkPermissions     `yaml:"network,omitempty" json:"network,omitempty"`
	Environment *EnvironmentPermissions `yaml:"environment,omitempty" json:"environment,omitempty"`
	Resources   *ResourceLimits         `yaml:"resources,omitempty" json:"resources,omitempty"`
}

// ToolPermissions is the allow/deny rule list for tool invocation.
type ToolPermissions struct {
	Allow []ToolRule `yaml:"allow,omitempty" json:"allow,omitempty" validate:"dive"`
	Deny  []ToolRule `yaml:"deny,omitempty" json:"deny,omitempty" validate:"dive"`
}

// ToolRule matches a tool name, which may itself be a glob pattern.
type ToolRule struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

// StoragePermissions is the allow/deny rule list for filesystem access.
type StoragePermissions struct {
	Allow []StorageRule `yaml:"allow,omitempty" json:"allow,omitempty" validate:"dive"`
	Deny  []StorageRule `yaml:"deny,omitempty" json:"deny,omitempty" validate:"dive"`
}

// StorageRule grants access (a subset of read/write/execute) to paths
// matching a glob pattern.
type StorageRule struct {
	URI    string   `yaml:"uri" json:"uri" validate:"required"`
	Access []string `yaml:"access" json:"access"`
}

// NetworkRuleKind distinguishes the two variants of NetworkRule. Go has no
// native tagged union; this sealed-const-plus-two-optional-fields shape
// mirrors the teacher's own internal/domain/action.OutboundTarget pattern.
type NetworkRuleKind int

const (
	NetworkRuleHost NetworkRuleKind = iota
	NetworkRuleCIDR
)

// NetworkPermissions is the allow/deny rule list for outbound network access.
type NetworkPermissions struct {
	Allow []NetworkRule `yaml:"allow,omitempty" json:"allow,omitempty"`
	Deny  []NetworkRule `yaml:"deny,omitempty" json:"deny,omitempty"`
}

// NetworkRule is an untagged union on the wire: {host: <glob>} or
// {cidr: <cidr>}. Parse sets Kind from whichever key is present (host
// first); NetworkRule has no (un)marshal methods of its own.
type NetworkRule struct {
	Kind NetworkRuleKind
	Host string
	CIDR string
}

// EnvironmentPermissions is the allow/deny rule list for environment
// variable reads.
type EnvironmentPermissions struct {
	Allow []EnvironmentRule `yaml:"allow,omitempty" json:"allow,omitempty" validate:"dive"`
	Deny  []EnvironmentRule `yaml:"deny,omitempty" json:"deny,omitempty" validate:"dive"`
}

// EnvironmentRule matches an environment variable name, which may itself
// be a glob pattern.
type EnvironmentRule struct {
	Key string `yaml:"key" json:"key" validate:"required"`
}

// ResourceLimits carries resource ceilings through to the runtime embedder.
// The core never evaluates these; it only merges and passes them along.
type ResourceLimits struct {
	Limits ResourceLimitValues `yaml:"limits" json:"limits"`
}

// ResourceLimitValues are the actual numeric/textual limits. All fields are
// optional strings (or uint64 for fuel) so a partially specified limits
// block round-trips without forcing zero values onto unset fields.
type ResourceLimitValues struct {
	CPU           string `yaml:"cpu,omitempty" json:"cpu,omitempty"`
	Memory        string `yaml:"memory,omitempty" json:"memory,omitempty"`
	ExecutionTime string `yaml:"execution_time,omitempty" json:"execution_time,omitempty"`
	Fuel          uint64 `yaml:"fuel,omitempty" json:"fuel,omitempty"`
	// MemoryLimit is a deprecated alias for Memory, carried for documents
	// written against older policy versions.
	MemoryLimit string `yaml:"memory_limit,omitempty" json:"memory_limit,omitempty"`
}
