package policy

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks structural invariants: non-empty version, supported major
// version, and a non-empty name/uri/key on every tool, storage and
// environment rule. Glob/CIDR syntax is checked at compile time, not here.
func Validate(p *Policy) error {
	if err := structValidator.Struct(p); err != nil {
		return formatValidationError(err)
	}
	if !strings.HasPrefix(p.Version, SupportedMajorVersion+".") && p.Version != SupportedMajorVersion {
		return &ValidationError{Field: "version", Reason: "unsupported major version: " + p.Version}
	}
	return nil
}

func formatValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		e := fieldErrs[0]
		return &ValidationError{Field: e.Namespace(), Reason: e.Tag()}
	}
	return &ValidationError{Field: "policy", Reason: err.Error()}
}
