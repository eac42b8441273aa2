// Package telemetry provides the ambient tracer and meter shared by the
// policy compiler (C2) and the enforcing middleware (C6). Instrumentation
// lives at the request/compile boundary only — never inside the decision
// engine's synchronous bool queries, which must stay non-suspending.
//
// Grounded on the teacher pack's otel usage convention: a package-level
// tracer/meter obtained via otel.Tracer/otel.Meter rather than a bespoke
// wrapper interface, matching how the sibling pack repo
// therealutkarshpriyadarshi-containr's pkg/observability constructs spans,
// scaled down to this module's narrower instrumentation surface.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/mcpkit-go/policyguard"

// Tracer is the shared tracer for spans around Compile and the middleware's
// deny/allow decision path.
var Tracer trace.Tracer = otel.Tracer(instrumentationName)

// Meter is the shared meter backing the denial counter below.
var Meter metric.Meter = otel.Meter(instrumentationName)

// DenialCounter counts requests the enforcing middleware denied, labeled by
// kind ("tool", "resource") via the "policy.denial.kind" attribute at the
// call site. Built at package init from the global meter, which delegates
// to whatever MeterProvider is installed later, so a test process that
// never configures one still gets a working no-op instrument.
var DenialCounter metric.Int64Counter = mustDenialCounter()

func mustDenialCounter() metric.Int64Counter {
	c, err := Meter.Int64Counter(
		"policyguard.middleware.denials",
		metric.WithDescription("Count of requests denied by the enforcing handler middleware, by kind."),
	)
	if err != nil {
		// otel's no-op meter never errors; a real SDK meter only errors on a
		// malformed instrument name, which this literal is not. Unreachable
		// in practice; panicking here is preferred to silently dropping the
		// instrument.
		panic(err)
	}
	return c
}
