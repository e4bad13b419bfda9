package middleware

import (
	"context"
	"testing"
	"time"

	"GridPulse/internal/domain/models"
)

type fakeProc struct {
	raws []*models.RawReading
	err  error
}

func (f *fakeProc) Process(ctx context.Context, raw *models.RawReading, source string) (*models.MeterRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.raws = append(f.raws, raw)
	return &models.MeterRecord{}, nil
}

type fakeMetrics struct {
	errs map[string]int
}

func newFakeMetrics() *fakeMetrics                               { return &fakeMetrics{errs: map[string]int{}} }
func (m *fakeMetrics) RecordReadingStored(backend, source string) {}
func (m *fakeMetrics) RecordError(kind string)                    { m.errs[kind]++ }
func (m *fakeMetrics) RecordAnomaly(source string)                {}
func (m *fakeMetrics) RecordLastKwh(customer string, kwh float64) {}
func (m *fakeMetrics) RecordLatency(op string, seconds float64)   {}

func TestPipelineScreensBrokenFrames(t *testing.T) {
	proc := &fakeProc{}
	m := newFakeMetrics()
	p := NewIngestPipeline(proc, m)

	cases := []*models.RawReading{
		nil,
		{CustomerID: 0, Timestamp: "2025-09-01T00:00:00Z"},
		{CustomerID: 1, Timestamp: ""},
	}
	for i, raw := range cases {
		if err := p.Process(context.Background(), raw); err == nil {
			t.Fatalf("case %d: expected screen error", i)
		}
	}
	if len(proc.raws) != 0 {
		t.Fatalf("screened frames must not reach the processor")
	}
	if m.errs["pipeline_screen"] != 3 {
		t.Fatalf("expected 3 screen errors, got %d", m.errs["pipeline_screen"])
	}
}

func TestPipelineForwards(t *testing.T) {
	proc := &fakeProc{}
	p := NewIngestPipeline(proc, newFakeMetrics())

	raw := &models.RawReading{CustomerID: 1, Timestamp: "2025-09-01T00:00:00Z", Kwh: 1.5}
	if err := p.Process(context.Background(), raw); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(proc.raws) != 1 || proc.raws[0].CustomerID != 1 {
		t.Fatalf("expected forwarded reading, got %+v", proc.raws)
	}
}

func TestPipelineThrottlesPerCustomer(t *testing.T) {
	proc := &fakeProc{}
	m := newFakeMetrics()
	p := NewIngestPipeline(proc, m, WithMaxRPS(1))

	raw := &models.RawReading{CustomerID: 1, Timestamp: "2025-09-01T00:00:00Z", Kwh: 1}
	// Two immediate sends; the second lands inside the throttle window
	if err := p.Process(context.Background(), raw); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Process(context.Background(), raw); err != nil {
		t.Fatalf("throttled send must not error: %v", err)
	}
	if len(proc.raws) != 1 {
		t.Fatalf("expected 1 forwarded reading, got %d", len(proc.raws))
	}
	if m.errs["pipeline_throttle"] != 1 {
		t.Fatalf("expected 1 throttle count, got %d", m.errs["pipeline_throttle"])
	}

	// A different customer is not affected by the first one's window
	other := &models.RawReading{CustomerID: 2, Timestamp: "2025-09-01T00:00:00Z", Kwh: 1}
	if err := p.Process(context.Background(), other); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(proc.raws) != 2 {
		t.Fatalf("expected independent throttle per customer")
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &fakeProc{err: context.DeadlineExceeded}
	m := newFakeMetrics()
	p := NewIngestPipeline(proc, m, WithBufferSize(4))

	raw := &models.RawReading{CustomerID: 1, Timestamp: "2025-09-01T00:00:00Z", Kwh: 1}
	if err := p.Process(context.Background(), raw); err == nil {
		t.Fatalf("expected downstream error surfaced")
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("expected reading buffered, got %d", len(p.bufCh))
	}

	// Downstream recovers; Start drains the buffer
	proc.err = nil
	p.Start(context.Background())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for len(proc.raws) == 0 {
		select {
		case <-deadline:
			t.Fatalf("buffered reading never flushed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPipelineTransformHook(t *testing.T) {
	proc := &fakeProc{}
	p := NewIngestPipeline(proc, newFakeMetrics(), WithTransform(func(raw *models.RawReading) *models.RawReading {
		raw.Kwh = raw.Kwh / 1000 // e.g. watt-hours to kilowatt-hours
		return raw
	}))

	raw := &models.RawReading{CustomerID: 1, Timestamp: "2025-09-01T00:00:00Z", Kwh: 1500}
	if err := p.Process(context.Background(), raw); err != nil {
		t.Fatalf("process: %v", err)
	}
	if proc.raws[0].Kwh != 1.5 {
		t.Fatalf("transform not applied, got %v", proc.raws[0].Kwh)
	}
}
