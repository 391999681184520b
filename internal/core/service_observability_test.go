package core

import (
	"bytes"
	"context"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"reefcore/pkg/domain"
)

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			return true
		}
	}
	return false
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureTracer struct {
	ended []spanRecord
}

type spanRecord struct {
	op  string
	err error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type captureLogger struct{ calls []string }

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

func TestServiceObservability(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	logger := &captureLogger{}

	svc := NewInMemoryService(NewDefaultRulesEngine(),
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithLogger(logger),
	)

	event, _, err := svc.CreateOutplantingEvent(ctx, testEvent("u1"))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if !audit.has("create_outplanting_event", AuditStatusSuccess) {
		t.Fatalf("expected audit entry for create_outplanting_event")
	}
	if !metrics.has("create_outplanting_event", true) {
		t.Fatalf("expected metrics success entry")
	}
	if !tracer.has("create_outplanting_event", true) {
		t.Fatalf("expected finished span")
	}
	if len(logger.calls) == 0 {
		t.Fatalf("expected logger to record calls")
	}

	if _, err := svc.DeleteOutplantingEvent(ctx, "missing-event"); err == nil {
		t.Fatalf("expected delete of missing event to fail")
	}
	if !audit.has("delete_outplanting_event", AuditStatusError) {
		t.Fatalf("expected audit error entry")
	}
	if !metrics.has("delete_outplanting_event", false) {
		t.Fatalf("expected metrics error entry")
	}
	if !tracer.has("delete_outplanting_event", false) {
		t.Fatalf("expected failed span")
	}

	if _, err := svc.ComputeSurvivalReports(ctx, domain.Scope{Unrestricted: true}); err != nil {
		t.Fatalf("compute reports: %v", err)
	}
	// non-CRUD operations trace and metric but stay out of the audit trail
	if !metrics.has("compute_survival_reports", true) {
		t.Fatalf("expected metrics entry for report computation")
	}
	if audit.has("compute_survival_reports", AuditStatusSuccess) {
		t.Fatalf("report computation must not audit")
	}

	for _, entry := range audit.entries {
		if entry.Operation == "create_outplanting_event" && entry.EntityID != event.ID {
			t.Fatalf("audit entry must carry the created entity id, got %q", entry.EntityID)
		}
	}
}

func TestRecordAuditSuccessUsesMetadata(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	recorder := &captureAuditRecorder{}
	svc := NewInMemoryService(nil,
		WithAuditRecorder(recorder),
		WithClock(ClockFunc(func() time.Time { return fixed })),
	)

	svc.recordAuditSuccess(context.Background(), "create_outplanting_event", "event-123", 42*time.Millisecond)

	if len(recorder.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(recorder.entries))
	}
	entry := recorder.entries[0]
	if entry.Entity != domain.EntityOutplantingEvent || entry.Action != domain.ActionCreate {
		t.Fatalf("unexpected entity metadata: %+v", entry)
	}
	if entry.EntityID != "event-123" || entry.Duration != 42*time.Millisecond {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if !entry.Timestamp.Equal(fixed) {
		t.Fatalf("expected clock timestamp, got %v", entry.Timestamp)
	}
}

func TestRecordAuditIgnoresUnknownOperation(t *testing.T) {
	recorder := &captureAuditRecorder{}
	svc := NewInMemoryService(nil, WithAuditRecorder(recorder))
	svc.recordAuditSuccess(context.Background(), "unknown_operation", "x", time.Second)
	if len(recorder.entries) != 0 {
		t.Fatalf("expected no entries for unknown operation, got %d", len(recorder.entries))
	}
}

func TestClockPropagatesToStore(t *testing.T) {
	fixed := time.Unix(123, 0).UTC()
	svc := NewInMemoryService(nil, WithClock(ClockFunc(func() time.Time { return fixed })))
	event, _, err := svc.CreateOutplantingEvent(context.Background(), testEvent("u1"))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if !event.CreatedAt.Equal(fixed) {
		t.Fatalf("expected store timestamps from injected clock, got %v", event.CreatedAt)
	}
}

func TestDefaultServiceOptions(t *testing.T) {
	opts := defaultServiceOptions()
	if opts.clock == nil || opts.logger == nil || opts.audit == nil || opts.metrics == nil || opts.tracer == nil || opts.reconciler == nil {
		t.Fatalf("expected defaults populated")
	}
	_ = opts.clock.Now()
	opts.audit.Record(context.Background(), AuditEntry{})
	opts.metrics.Observe(context.Background(), "noop", true, 0)
	_, span := opts.tracer.Start(context.Background(), "noop")
	span.End(nil)
}

func TestNoopImplementations(_ *testing.T) {
	var logger noopLogger
	logger.Debug("noop")
	logger.Info("noop")
	logger.Warn("noop")
	logger.Error("noop")

	var audit noopAuditRecorder
	audit.Record(context.Background(), AuditEntry{})

	var metrics noopMetricsRecorder
	metrics.Observe(context.Background(), "noop", true, 0)

	_, span := noopTracer{}.Start(context.Background(), "op")
	span.End(nil)
}

const entryStatusSuccess = "success"
const entryStatusError = "error"

func TestExpvarMetricsRecorderExports(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	if recorder.Name() == "" {
		t.Fatalf("expected recorder to have export name")
	}
	recorder.Observe(context.Background(), "test_op", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "test_op", false, 5*time.Millisecond)

	snapshot := recorder.Snapshot()
	if snapshot.DurationsMS["test_op"] <= 0 {
		t.Fatalf("expected positive duration, snapshot=%+v", snapshot)
	}
	if snapshot.Results["test_op"][entryStatusSuccess] != 1 || snapshot.Results["test_op"][entryStatusError] != 1 {
		t.Fatalf("unexpected results snapshot=%+v", snapshot)
	}

	if v := expvar.Get(recorder.Name()); v == nil {
		t.Fatalf("expected expvar export to be registered")
	} else if !strings.Contains(v.String(), "test_op") {
		t.Fatalf("expected expvar output to contain operation: %s", v.String())
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := NewPrometheusMetricsRecorder(reg)
	recorder.Observe(context.Background(), "create_user", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "create_user", false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Millisecond)

	if got := testutil.ToFloat64(recorder.results.WithLabelValues("create_user", "success")); got != 1 {
		t.Fatalf("success counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(recorder.results.WithLabelValues("create_user", "error")); got != 1 {
		t.Fatalf("error counter = %v, want 1", got)
	}
}

func TestJSONTraceTracerExports(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "trace_op")
	span.End(nil)

	entries := tracer.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected single span entry, got %d", len(entries))
	}
	if entries[0].Operation != "trace_op" || entries[0].Status != entryStatusSuccess {
		t.Fatalf("unexpected span entry: %+v", entries[0])
	}
	if !strings.Contains(buf.String(), "\"operation\":\"trace_op\"") {
		t.Fatalf("expected JSON output to contain operation: %q", buf.String())
	}
}
