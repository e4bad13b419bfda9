package repository

import (
	"context"
	"testing"
	"time"

	"GridPulse/internal/domain/models"
)

func rec(customer int64, ts time.Time, kwh, cost float64) *models.MeterRecord {
	return &models.MeterRecord{
		Reading: models.Reading{CustomerID: customer, Timestamp: ts, Kwh: kwh},
		Derived: models.DerivedOutput{Cost: cost},
	}
}

func TestMemoryStoreLatestEmpty(t *testing.T) {
	s := NewMemoryReadingStore()
	got, err := s.Latest(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown customer, got %+v", got)
	}
}

func TestMemoryStoreRecordAndLatest(t *testing.T) {
	s := NewMemoryReadingStore()
	ctx := context.Background()
	base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		r := rec(1, base.Add(time.Duration(i)*time.Hour), float64(i), 0)
		if err := s.Record(ctx, &r.Reading, &r.Derived, "api"); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := s.Latest(ctx, 1)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got == nil || got.Reading.Kwh != 2 {
		t.Fatalf("expected newest record, got %+v", got)
	}
}

func TestMemoryStoreScanOrderAndRange(t *testing.T) {
	s := NewMemoryReadingStore()
	ctx := context.Background()
	base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	// Insert out of order; scan must come back ascending
	for _, h := range []int{5, 1, 3, 2, 4} {
		r := rec(1, base.Add(time.Duration(h)*time.Hour), float64(h), 0)
		if err := s.Record(ctx, &r.Reading, &r.Derived, "api"); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	it, err := s.Scan(ctx, 1, base.Add(2*time.Hour), base.Add(5*time.Hour))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	defer it.Close()

	var kwhs []float64
	for it.Next() {
		kwhs = append(kwhs, it.Record().Reading.Kwh)
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iterator: %v", err)
	}
	// from inclusive, to exclusive
	want := []float64{2, 3, 4}
	if len(kwhs) != len(want) {
		t.Fatalf("expected %v, got %v", want, kwhs)
	}
	for i := range want {
		if kwhs[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, kwhs)
		}
	}
}

func TestMemoryStoreScanSnapshot(t *testing.T) {
	s := NewMemoryReadingStore()
	ctx := context.Background()
	base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	r := rec(1, base, 1, 0)
	if err := s.Record(ctx, &r.Reading, &r.Derived, "api"); err != nil {
		t.Fatalf("record: %v", err)
	}

	it, err := s.Scan(ctx, 1, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	defer it.Close()

	// A write after Scan must not surface through the open iterator
	r2 := rec(1, base.Add(time.Hour), 2, 0)
	if err := s.Record(ctx, &r2.Reading, &r2.Derived, "api"); err != nil {
		t.Fatalf("record: %v", err)
	}

	n := 0
	for it.Next() {
		n++
	}
	if n != 1 {
		t.Fatalf("expected snapshot of 1 record, got %d", n)
	}
}

func TestMemoryStoreScanCancel(t *testing.T) {
	s := NewMemoryReadingStore()
	base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		r := rec(1, base.Add(time.Duration(i)*time.Minute), 1, 0)
		_ = s.Record(context.Background(), &r.Reading, &r.Derived, "api")
	}

	ctx, cancel := context.WithCancel(context.Background())
	it, err := s.Scan(ctx, 1, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	defer it.Close()

	if !it.Next() {
		t.Fatalf("expected first record")
	}
	cancel()
	if it.Next() {
		t.Fatalf("expected iteration to stop after cancel")
	}
	if it.Err() == nil {
		t.Fatalf("expected context error")
	}
}

func TestMemoryStoreKeepsSourceAndAttributes(t *testing.T) {
	s := NewMemoryReadingStore()
	ctx := context.Background()
	base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	voltage, current := 229.5, 6.2
	r := rec(1, base, 1.4, 0.252)
	r.Reading.Voltage = &voltage
	r.Reading.Current = &current
	if err := s.Record(ctx, &r.Reading, &r.Derived, "headend"); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := s.Latest(ctx, 1)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.Source != "headend" {
		t.Fatalf("expected source headend, got %q", got.Source)
	}
	if got.Reading.Voltage == nil || *got.Reading.Voltage != 229.5 {
		t.Fatalf("voltage not preserved: %+v", got.Reading.Voltage)
	}
	if got.Reading.Current == nil || *got.Reading.Current != 6.2 {
		t.Fatalf("current not preserved: %+v", got.Reading.Current)
	}

	batch := []*models.MeterRecord{rec(1, base.Add(time.Hour), 2, 0.36)}
	if err := s.RecordBatch(ctx, batch, "kafka"); err != nil {
		t.Fatalf("record batch: %v", err)
	}
	got, err = s.Latest(ctx, 1)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.Source != "kafka" {
		t.Fatalf("expected batch source kafka, got %q", got.Source)
	}
}

func TestMemoryStorePayments(t *testing.T) {
	s := NewMemoryReadingStore()
	ctx := context.Background()
	base := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	for _, d := range []int{3, 1, 10} {
		p := &models.Payment{CustomerID: 1, Amount: float64(d), Timestamp: base.AddDate(0, 0, d)}
		if err := s.RecordPayment(ctx, p); err != nil {
			t.Fatalf("record payment: %v", err)
		}
	}

	got, err := s.PaymentsSince(ctx, 1, base.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("payments since: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(got))
	}
	if got[0].Amount != 3 || got[1].Amount != 10 {
		t.Fatalf("unexpected payments %+v", got)
	}
}
