package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mcpkit-go/policyguard/internal/domain/compiledpolicy"
	"github.com/mcpkit-go/policyguard/internal/domain/decision"
	"github.com/mcpkit-go/policyguard/internal/domain/engine"
	"github.com/mcpkit-go/policyguard/internal/domain/mwpolicy"
	"github.com/mcpkit-go/policyguard/internal/domain/permcache"
	"github.com/mcpkit-go/policyguard/internal/domain/policy"
)

var traceFormat string
var traceCacheSize int

var traceCmd = &cobra.Command{
	Use:   "trace [policy-file] [tool-name]",
	Short: "Drive a single tools/call through the enforcing middleware with tracing enabled",
	Long: `Trace wires a compiled policy into the Enforcing Handler Middleware (C6),
the same way a real embedder wraps its MCP server handler, then drives one
tools/call through it. Spans and the denial counter are exported to stdout
via the OpenTelemetry SDK rather than left on the no-op global providers
compile and check use, so this is the one command that shows what an
embedder's traces actually look like.

Every denial is also recorded to a violation log that writes each record
to stdout as a JSON line; the number of recorded violations is printed at
the end of the run.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		shutdown, err := installOTelSDK()
		if err != nil {
			return fmt.Errorf("install otel SDK: %w", err)
		}
		defer shutdown(cmd.Context())

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read policy file: %w", err)
		}
		p, err := policy.Parse(raw, policy.Format(traceFormat))
		if err != nil {
			return err
		}
		if err := policy.Validate(p); err != nil {
			return err
		}
		cp, err := compiledpolicy.Compile(p)
		if err != nil {
			return err
		}

		eng := decision.New(cp)
		cache := permcache.New(traceCacheSize)
		violations := engine.NewStdoutViolationLog()
		handler := mwpolicy.NewEnforcingHandler(mwpolicy.NoopHandler{}, eng, cache, violations, nil)

		toolName := args[1]
		_, callErr := handler.CallTool(cmd.Context(), mwpolicy.CallToolParams{Name: toolName})
		if callErr != nil {
			fmt.Printf("tool(%s) -> deny: %v\n", toolName, callErr)
		} else {
			fmt.Printf("tool(%s) -> allow\n", toolName)
		}

		// The middleware records a denial on a detached goroutine; give it a
		// bounded moment to land before reporting the count.
		if callErr != nil {
			deadline := time.Now().Add(time.Second)
			for violations.Total() == 0 && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
			}
		}

		fmt.Printf("violations recorded: %d\n", violations.Total())
		return nil
	},
}

// installOTelSDK configures the process-global tracer and meter providers
// with stdout exporters and returns a shutdown func that flushes both.
// Grounded on therealutkarshpriyadarshi-containr's
// pkg/observability.ExporterManager: a stdout exporter registered
// alongside whatever backend exporters a real deployment would add, kept
// here as the only exporter since policyctl has no OTLP endpoint to send
// to.
func installOTelSDK() (func(context.Context) error, error) {
	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter))
	otel.SetTracerProvider(tp)

	metricExporter, err := stdoutmetric.New()
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)))
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}, nil
}

func init() {
	traceCmd.Flags().StringVar(&traceFormat, "format", "yaml", "policy document format (yaml|json)")
	traceCmd.Flags().IntVar(&traceCacheSize, "cache-size", 256, "permission cache LRU size (<=0 uses the package default)")
	rootCmd.AddCommand(traceCmd)
}
