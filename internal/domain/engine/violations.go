// Package engine is the Glue layer: the registry tying extensions (CEL
// policy evaluators, custom enforcers) and runtime enforcers to a compiled
// policy, plus the bounded violation log the enforcing middleware (C6)
// appends denials to.
//
// Grounded on original_source/crates/mcpkit-rs-policy/src/engine.rs's
// PolicyEngine.
package engine

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

const defaultViolationCap = 1000

// Violation is one recorded access denial.
type Violation struct {
	Kind        string `json:"kind"`     // "tool", "resource", "network", "env"
	Resource    string `json:"resource"` // the tool name, URI, host, or env key denied
	UnixSeconds int64  `json:"unix_seconds"`
	Tool        string `json:"tool,omitempty"` // the tool call this violation was attributed to, if any
}

// ViolationLog is a bounded, append-only ring buffer of recent violations,
// written as JSON to an underlying writer and retained in memory for
// queries. Grounded on the teacher's MemoryAuditStore ring-buffer shape,
// repurposed from persisted audit trail to in-process violation recall.
type ViolationLog struct {
	mu      sync.Mutex
	encoder *json.Encoder
	recent  []Violation
	cap     int

	// total counts every Record call ever made, independent of how many
	// records the ring buffer currently retains. Read via Total.
	total atomic.Int64
}

// NewViolationLog creates a log writing JSON lines to w, retaining the most
// recent capacity records in memory (default 1000 if capacity<=0).
func NewViolationLog(w io.Writer, capacity int) *ViolationLog {
	if capacity <= 0 {
		capacity = defaultViolationCap
	}
	return &ViolationLog{
		encoder: json.NewEncoder(w),
		recent:  make([]Violation, 0, capacity),
		cap:     capacity,
	}
}

// NewStdoutViolationLog is the common-case constructor: JSON lines to
// stdout, default capacity.
func NewStdoutViolationLog() *ViolationLog {
	return NewViolationLog(os.Stdout, defaultViolationCap)
}

// Record appends v, writing it to the underlying writer and the in-memory
// ring buffer. Safe for concurrent use: the enforcing middleware calls this
// from a detached goroutine per denial, so contention is expected.
func (l *ViolationLog) Record(v Violation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.encoder.Encode(v)

	if len(l.recent) >= l.cap {
		copy(l.recent, l.recent[1:])
		l.recent[len(l.recent)-1] = v
	} else {
		l.recent = append(l.recent, v)
	}
	l.total.Add(1)
}

// Total returns the number of violations ever recorded, including ones the
// ring buffer has since evicted.
func (l *ViolationLog) Total() int64 {
	return l.total.Load()
}

// Recent returns a copy of the currently retained violations, oldest first.
func (l *ViolationLog) Recent() []Violation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Violation, len(l.recent))
	copy(out, l.recent)
	return out
}
