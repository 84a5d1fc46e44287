package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   map[string]int64
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = map[string]int64{}
	}
	m.counters[name] += value
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: tagsFor(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu      *sync.Mutex
	records *[]capturedLog
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger { return l }

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := map[string]any{}
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]capturedLog, len(*l.records))
	copy(out, *l.records)
	return out
}

func TestObserverObserveOperation_Failure(t *testing.T) {
	logger := newCaptureLogger()
	metrics := &captureMetricsRecorder{}
	observer := NewObserver(logger, metrics)

	observer.ObserveOperation(context.Background(), time.Now(), "split.processor-native", errors.New("transfer failed"), map[string]any{
		"payment_id": "pi_1",
	})

	records := logger.snapshot()
	if len(records) != 1 {
		t.Fatalf("expected one log record, got %d", len(records))
	}
	if records[0].level != "error" || records[0].msg != "split_processor_native failed" {
		t.Fatalf("unexpected record %+v", records[0])
	}
	if records[0].fields["payment_id"] != "pi_1" || records[0].fields["error"] != "transfer failed" {
		t.Fatalf("expected payment_id and error fields, got %+v", records[0].fields)
	}
	if len(metrics.histograms) != 1 || metrics.histograms[0].tags["status"] != "failure" {
		t.Fatalf("expected failure histogram, got %+v", metrics.histograms)
	}
}

func TestObserverEventFields(t *testing.T) {
	fields := EventFields(ExternalEvent{ID: "evt_1", Kind: EventPayoutPaid, Account: "acct_1"}, map[string]any{"extra": 1})
	if fields["event_id"] != "evt_1" || fields["event_kind"] != "payout.paid" || fields["account_id"] != "acct_1" || fields["extra"] != 1 {
		t.Fatalf("unexpected event fields %+v", fields)
	}
}

func TestNewObserver_DefaultsAreSafe(t *testing.T) {
	observer := NewObserver(nil, nil)
	observer.Info(context.Background(), "noop", nil)
	observer.IncCounter(context.Background(), MetricEventsTotal, nil)
}

type tagKeepingRecorder struct {
	NopMetricsRecorder
	tags map[string]string
}

func (r *tagKeepingRecorder) IncCounter(_ context.Context, _ string, _ int64, tags map[string]string) {
	r.tags = tags
}

func TestObserverCopiesMetricTags(t *testing.T) {
	recorder := &tagKeepingRecorder{}
	observer := NewObserver(nil, recorder)
	tags := map[string]string{"kind": "payout.paid"}
	observer.IncCounter(context.Background(), MetricEventsTotal, tags)
	tags["kind"] = "changed"
	if recorder.tags["kind"] != "payout.paid" {
		t.Fatalf("expected recorder to keep its own copy, got %v", recorder.tags)
	}
}

func TestObserverRedactsLoggedFields(t *testing.T) {
	logger := newCaptureLogger()
	observer := NewObserver(logger, nil)

	observer.Info(context.Background(), "notification", map[string]any{
		"recipient":  "donor@example.org",
		"secret_key": "sk_live_1",
		"payment_id": "pi_1",
	})

	fields := logger.snapshot()[0].fields
	if fields["recipient"] != "d***@example.org" || fields["secret_key"] != RedactedValue {
		t.Fatalf("expected redacted fields, got %+v", fields)
	}
	if fields["payment_id"] != "pi_1" {
		t.Fatalf("expected payment_id visible, got %+v", fields)
	}
}
