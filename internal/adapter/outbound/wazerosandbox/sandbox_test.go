package wazerosandbox

import (
	"context"
	"testing"
	"time"

	"github.com/mcpkit-go/policyguard/internal/domain/decision"
)

// minimalWASM is a hand-assembled module exporting a no-op "_start" function:
// no imports, no memory, a single empty function body (locals=0, end). Built
// by hand rather than pulled from a toolchain output, since this task never
// invokes one.
var minimalWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic, version
	0x01, 0x04, 0x01, 0x60, 0x00, 0x00, // type section: func () -> ()
	0x03, 0x02, 0x01, 0x00, // function section: 1 func of type 0
	0x07, 0x0a, 0x01, 0x06, 0x5f, 0x73, 0x74, 0x61, 0x72, 0x74, 0x00, 0x00, // export "_start" func 0
	0x0a, 0x04, 0x01, 0x02, 0x00, 0x0b, // code section: 1 body, 0 locals, end
}

func TestNewRuntimeNoMountsForNilPolicy(t *testing.T) {
	ctx := context.Background()
	eng := decision.New(nil)

	rt, err := New(ctx, eng, Config{MemoryLimitBytes: 1 << 20, CPUTimeLimit: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = rt.Close(ctx) }()

	out, err := rt.Run(ctx, minimalWASM, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no stdout from a no-op module, got %q", out)
	}
}

func TestRunRespectsCPUTimeLimit(t *testing.T) {
	ctx := context.Background()
	eng := decision.New(nil)

	rt, err := New(ctx, eng, Config{CPUTimeLimit: time.Nanosecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = rt.Close(ctx) }()

	// A deadline this tight may already be exceeded before InstantiateModule
	// runs; either a timeout error or a clean run is an acceptable outcome,
	// but the call must never hang or panic.
	_, _ = rt.Run(ctx, minimalWASM, nil)
}

func TestCloseAfterRun(t *testing.T) {
	ctx := context.Background()
	eng := decision.New(nil)

	rt, err := New(ctx, eng, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := rt.Run(ctx, minimalWASM, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := rt.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
