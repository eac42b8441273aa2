package compiledpolicy

import "fmt"

// BadPatternError reports a glob pattern that failed to compile.
type BadPatternError struct {
	Pattern string
	Reason  string
}

func (e *BadPatternError) Error() string {
	return fmt.Sprintf("compile policy: bad glob pattern %q: %s", e.Pattern, e.Reason)
}

// BadCIDRError reports a CIDR literal that failed to parse.
type BadCIDRError struct {
	CIDR string
}

func (e *BadCIDRError) Error() string {
	return fmt.Sprintf("compile policy: bad CIDR %q", e.CIDR)
}

// ConflictError reports an internally contradictory rule set. The compiler
// is lenient by default (see Compile) and never actually raises this; it
// exists so an embedder that wants stricter compile-time checking has a
// named error type to produce instead of deferring to runtime deny-wins.
type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("compile policy: conflicting rules: %s", e.Detail)
}
