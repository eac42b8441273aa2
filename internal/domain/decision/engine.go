// Package decision is the Decision Engine (C3): the synchronous,
// non-suspending surface that answers the four is_X_allowed queries. It
// never fails — internal unexpected conditions collapse to deny and bump a
// metric, never propagate as an error or a panic to the caller.
package decision

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcpkit-go/policyguard/internal/domain/compiledpolicy"
)

// DecisionFailures counts internal unexpected conditions absorbed as a deny
// decision, per the error taxonomy's fourth (nonexistent) error kind:
// decisions never fail outwardly, but an observable counter exists so an
// embedder can alert on the condition. Grounded on the teacher's existing
// prometheus/client_golang dependency and its metrics-registration style.
var DecisionFailures = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "policy_decision_failures_total",
	Help: "Count of decision queries that hit an internal unexpected condition and collapsed to deny.",
})

// Engine answers permission queries against a single compiled policy. It
// holds no mutable state and performs no I/O or goroutine scheduling —
// every method returns in bounded time without suspending.
type Engine struct {
	policy *compiledpolicy.Policy
}

// New wraps a compiled policy. A nil policy is valid and behaves as "no
// restrictions installed" — every query returns true, matching the
// no-policy-transparency requirement the enforcing middleware (C6) relies
// on.
func New(p *compiledpolicy.Policy) *Engine {
	return &Engine{policy: p}
}

// Policy returns the wrapped compiled policy, or nil if none is installed.
func (e *Engine) Policy() *compiledpolicy.Policy { return e.policy }

func (e *Engine) IsToolAllowed(name string) (allowed bool) {
	defer recoverToDeny(&allowed)
	if e.policy == nil {
		return true
	}
	return e.policy.IsToolAllowed(name)
}

func (e *Engine) IsNetworkAllowed(host string) (allowed bool) {
	defer recoverToDeny(&allowed)
	if e.policy == nil {
		return true
	}
	return e.policy.IsNetworkAllowed(host)
}

func (e *Engine) IsStorageAllowed(path, op string) (allowed bool) {
	defer recoverToDeny(&allowed)
	if e.policy == nil {
		return true
	}
	return e.policy.IsStorageAllowed(path, op)
}

func (e *Engine) IsEnvAllowed(key string) (allowed bool) {
	defer recoverToDeny(&allowed)
	if e.policy == nil {
		return true
	}
	return e.policy.IsEnvAllowed(key)
}

// recoverToDeny is deferred by every query method. A panic inside a matcher
// (e.g. a future bug in a third-party glob implementation) must never reach
// the caller as a crash — on-path decisions are a hard synchronous
// contract.
func recoverToDeny(allowed *bool) {
	if r := recover(); r != nil {
		*allowed = false
		DecisionFailures.Inc()
	}
}
