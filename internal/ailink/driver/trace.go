package driver

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// TraceEntry is one provider call as written to the --trace file.
type TraceEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	Driver      string          `json:"driver"`
	Endpoint    string          `json:"endpoint"`
	Model       string          `json:"model,omitempty"`
	PromptSlug  string          `json:"prompt_slug,omitempty"`
	RequestBody json.RawMessage `json:"request_body,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

// Tracer appends entries as NDJSON. Trace files hold search subjects and
// provider answers, so they are created owner-only.
type Tracer struct {
	mu sync.Mutex
	w  io.WriteCloser
}

var activeTracer atomic.Pointer[Tracer]

// NewTracer writes entries to w.
func NewTracer(w io.WriteCloser) *Tracer {
	return &Tracer{w: w}
}

// EnableTracing starts tracing to path, replacing any active tracer, and
// returns the func that stops it.
func EnableTracing(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	if previous := activeTracer.Swap(NewTracer(f)); previous != nil {
		_ = previous.Close()
	}
	return DisableTracing, nil
}

// DisableTracing stops tracing and closes the trace file.
func DisableTracing() {
	if previous := activeTracer.Swap(nil); previous != nil {
		_ = previous.Close()
	}
}

// Trace records entry when tracing is enabled.
func Trace(entry TraceEntry) {
	activeTracer.Load().Write(entry)
}

// Write records entry. Non-JSON responses are stored as JSON strings.
func (t *Tracer) Write(entry TraceEntry) {
	if t == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if len(entry.Response) > 0 && !json.Valid(entry.Response) {
		quoted, _ := json.Marshal(string(entry.Response))
		entry.Response = quoted
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.w != nil {
		_, _ = t.w.Write(append(data, '\n'))
	}
}

// Close closes the underlying writer. Later writes are dropped.
func (t *Tracer) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.w == nil {
		return nil
	}
	err := t.w.Close()
	t.w = nil
	return err
}
