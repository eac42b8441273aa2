// Package extcel is an opt-in, non-hot-path policy extension evaluator.
// Extension documents carried in Policy.Extensions["cel"] may define CEL
// expressions an embedder evaluates explicitly through the Glue registry;
// the four synchronous decision.Engine queries never consult it.
//
// Grounded on the teacher's internal/adapter/outbound/cel package
// (evaluator.go, universal_env.go), scaled down to the variables this
// module's four permission categories actually need.
package extcel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
)

const (
	maxExpressionLength = 1024
	maxCostBudget       = 100_000
	evalTimeout         = 5 * time.Second
)

// EvalContext carries the request-scoped values a CEL expression may
// reference. Only fields an embedder could already see through the four
// core queries are exposed.
type EvalContext struct {
	ToolName    string
	ResourceURI string
	Op          string
	Host        string
}

func (c EvalContext) activation() map[string]any {
	return map[string]any{
		"tool_name":    c.ToolName,
		"resource_uri": c.ResourceURI,
		"op":           c.Op,
		"host":         c.Host,
	}
}

// Evaluator compiles and runs CEL expressions against an EvalContext.
type Evaluator struct {
	env *cel.Env
}

// New builds the CEL environment for policy extension expressions:
// tool_name, resource_uri, op, host string variables plus a glob(pattern,
// value) helper so extension expressions can reuse the same pattern
// language the core compiler does.
func New() (*Evaluator, error) {
	env, err := cel.NewEnv(
		ext.Strings(),
		cel.Variable("tool_name", cel.StringType),
		cel.Variable("resource_uri", cel.StringType),
		cel.Variable("op", cel.StringType),
		cel.Variable("host", cel.StringType),
		cel.Function("glob",
			cel.Overload("glob_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(globFunc),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("extcel: build environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

func globFunc(pattern, value ref.Val) ref.Val {
	p, ok := pattern.Value().(string)
	if !ok {
		return types.Bool(false)
	}
	v, ok := value.Value().(string)
	if !ok {
		return types.Bool(false)
	}
	matched, err := globMatch(p, v)
	if err != nil {
		return types.Bool(false)
	}
	return types.Bool(matched)
}

// Compile parses, type-checks, and binds a cost limit to expr. Expressions
// are rejected outright past maxExpressionLength, matching the teacher's
// own length guard.
func (e *Evaluator) Compile(expr string) (cel.Program, error) {
	if expr == "" {
		return nil, fmt.Errorf("extcel: empty expression")
	}
	if len(expr) > maxExpressionLength {
		return nil, fmt.Errorf("extcel: expression too long: %d chars (max %d)", len(expr), maxExpressionLength)
	}
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("extcel: compile: %w", issues.Err())
	}
	prg, err := e.env.Program(ast, cel.EvalOptions(cel.OptOptimize), cel.CostLimit(maxCostBudget))
	if err != nil {
		return nil, fmt.Errorf("extcel: program: %w", err)
	}
	return prg, nil
}

// Evaluate runs prg against ctx under a bounded timeout — extensions run
// off the decision engine's hot path, but they still must never hang a
// caller that waits on the result synchronously.
func (e *Evaluator) Evaluate(prg cel.Program, ctx EvalContext) (bool, error) {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	out, _, err := prg.ContextEval(timeoutCtx, ctx.activation())
	if err != nil {
		return false, fmt.Errorf("extcel: evaluate: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("extcel: expression did not return bool, got %T", out.Value())
	}
	return result, nil
}
