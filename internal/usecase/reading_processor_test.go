package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"GridPulse/internal/domain/models"
	internalrepo "GridPulse/internal/repository"
	"GridPulse/internal/services/derive"
)

type nopMetrics struct {
	errs      int
	stored    int
	anomalies int
}

func (m *nopMetrics) RecordReadingStored(backend, source string) { m.stored++ }
func (m *nopMetrics) RecordError(kind string)                    { m.errs++ }
func (m *nopMetrics) RecordAnomaly(source string)                { m.anomalies++ }
func (m *nopMetrics) RecordLastKwh(customer string, kwh float64) {}
func (m *nopMetrics) RecordLatency(op string, seconds float64)   {}

type captureNotifier struct {
	recs []*models.MeterRecord
}

func (n *captureNotifier) Enqueue(ctx context.Context, rec *models.MeterRecord) error {
	n.recs = append(n.recs, rec)
	return nil
}

func newTestProcessor(store *internalrepo.MemoryReadingStore, notifier AnomalyNotifier, m *nopMetrics) *ReadingProcessor {
	return NewReadingProcessor(
		derive.NewValidator(),
		derive.NewTariffDeriver(derive.Tariff{FlatRate: 0.18, SpikeThreshold: 5.0}),
		nil,
		store,
		notifier,
		m,
		"memory",
		0,
		0,
	)
}

func TestProcessStoresRecord(t *testing.T) {
	store := internalrepo.NewMemoryReadingStore()
	m := &nopMetrics{}
	p := newTestProcessor(store, nil, m)

	rec, err := p.Process(context.Background(), &models.RawReading{
		CustomerID: 1,
		Timestamp:  "2025-09-01T08:00:00Z",
		Kwh:        3.0,
	}, "api")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if rec.Derived.Cost != 0.54 || rec.Derived.Anomaly {
		t.Fatalf("unexpected derived %+v", rec.Derived)
	}

	got, err := store.Latest(context.Background(), 1)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got == nil || got.Derived.Cost != 0.54 {
		t.Fatalf("record not stored with derived values: %+v", got)
	}
	if m.stored != 1 {
		t.Fatalf("expected 1 stored metric, got %d", m.stored)
	}
}

func TestProcessRejectsBeforeStore(t *testing.T) {
	store := internalrepo.NewMemoryReadingStore()
	m := &nopMetrics{}
	p := newTestProcessor(store, nil, m)

	_, err := p.Process(context.Background(), &models.RawReading{
		CustomerID: 1,
		Timestamp:  "garbage",
		Kwh:        1.0,
	}, "api")
	if !errors.Is(err, models.ErrMalformedTimestamp) {
		t.Fatalf("expected ErrMalformedTimestamp, got %v", err)
	}

	got, err := store.Latest(context.Background(), 1)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got != nil {
		t.Fatalf("rejected reading must not be stored, got %+v", got)
	}
	if m.errs != 1 {
		t.Fatalf("expected 1 error metric, got %d", m.errs)
	}
}

func TestProcessNotifiesOnAnomaly(t *testing.T) {
	store := internalrepo.NewMemoryReadingStore()
	n := &captureNotifier{}
	m := &nopMetrics{}
	p := newTestProcessor(store, n, m)

	rec, err := p.Process(context.Background(), &models.RawReading{
		CustomerID: 2,
		Timestamp:  "2025-09-01T08:00:00Z",
		Kwh:        6.0,
	}, "headend")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !rec.Derived.Anomaly || rec.Derived.AnomalyNote != derive.SpikeNote {
		t.Fatalf("expected anomaly, got %+v", rec.Derived)
	}
	if len(n.recs) != 1 || n.recs[0].Reading.CustomerID != 2 {
		t.Fatalf("expected notifier call, got %+v", n.recs)
	}
	if m.anomalies != 1 {
		t.Fatalf("expected 1 anomaly metric, got %d", m.anomalies)
	}
}

func TestProcessPersistsIngestSource(t *testing.T) {
	store := internalrepo.NewMemoryReadingStore()
	m := &nopMetrics{}
	p := newTestProcessor(store, nil, m)

	_, err := p.Process(context.Background(), &models.RawReading{
		CustomerID: 1,
		Timestamp:  "2025-09-01T08:00:00Z",
		Kwh:        1.0,
	}, "headend")
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	got, err := store.Latest(context.Background(), 1)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.Source != "headend" {
		t.Fatalf("expected stored source headend, got %q", got.Source)
	}
}

func TestProcessBatchDropsInvalid(t *testing.T) {
	store := internalrepo.NewMemoryReadingStore()
	m := &nopMetrics{}
	p := newTestProcessor(store, nil, m)
	base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	raws := []*models.RawReading{
		{CustomerID: 1, Timestamp: base.Format(time.RFC3339), Kwh: 1},
		{CustomerID: 0, Timestamp: base.Format(time.RFC3339), Kwh: 1}, // invalid id
		{CustomerID: 1, Timestamp: base.Add(time.Hour).Format(time.RFC3339), Kwh: 2},
		nil,
	}
	if err := p.ProcessBatch(context.Background(), raws, "headend"); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	it, err := store.Scan(context.Background(), 1, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	defer it.Close()
	n := 0
	for it.Next() {
		n++
	}
	if n != 2 {
		t.Fatalf("expected 2 stored records, got %d", n)
	}
	if m.errs != 1 {
		t.Fatalf("expected 1 validation error metric, got %d", m.errs)
	}
}
