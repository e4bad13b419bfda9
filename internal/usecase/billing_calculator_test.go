package usecase

import (
	"context"
	"testing"
	"time"

	"GridPulse/internal/domain/models"
)

func TestBillingNoUsage(t *testing.T) {
	store := seedStore(t, nil)
	b := NewBillingCalculator(store, NewUsageAggregator(store), 7)

	stmt, err := b.StatementAt(context.Background(), 1, time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if stmt.AmountDue != 0 || stmt.DueDate != nil || stmt.PeriodLabel != "" {
		t.Fatalf("expected zeroed statement, got %+v", stmt)
	}
}

func TestBillingLastCompletedMonth(t *testing.T) {
	// September usage: 100 kWh at 18.00; one payment of 5.00 in October
	store := seedStore(t, []*models.MeterRecord{
		mkRec(1, time.Date(2025, 9, 10, 8, 0, 0, 0, time.UTC), 60, 10.80),
		mkRec(1, time.Date(2025, 9, 20, 8, 0, 0, 0, time.UTC), 40, 7.20),
	})
	ctx := context.Background()
	if err := store.RecordPayment(ctx, &models.Payment{
		CustomerID: 1,
		Amount:     5.00,
		Timestamp:  time.Date(2025, 10, 2, 12, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	b := NewBillingCalculator(store, NewUsageAggregator(store), 7)
	now := time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC)
	stmt, err := b.StatementAt(ctx, 1, now)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}

	if stmt.PeriodLabel != "2025-09" {
		t.Fatalf("expected period 2025-09, got %s", stmt.PeriodLabel)
	}
	if stmt.UsageKwh != 100 || stmt.UsageCost != 18.00 {
		t.Fatalf("unexpected usage %+v", stmt)
	}
	if stmt.Paid != 5.00 || stmt.AmountDue != 13.00 {
		t.Fatalf("expected due 13.00, got paid=%v due=%v", stmt.Paid, stmt.AmountDue)
	}
	wantDue := time.Date(2025, 10, 8, 0, 0, 0, 0, time.UTC)
	if stmt.DueDate == nil || !stmt.DueDate.Equal(wantDue) {
		t.Fatalf("expected due date %v, got %v", wantDue, stmt.DueDate)
	}
	if stmt.LastPayment == nil || stmt.LastPayment.Amount != 5.00 {
		t.Fatalf("expected last payment echoed, got %+v", stmt.LastPayment)
	}
}

func TestBillingOpenMonthNeverBilled(t *testing.T) {
	// Only the current month has usage, so nothing is billable yet
	store := seedStore(t, []*models.MeterRecord{
		mkRec(1, time.Date(2025, 10, 2, 8, 0, 0, 0, time.UTC), 50, 9.00),
	})
	b := NewBillingCalculator(store, NewUsageAggregator(store), 7)

	stmt, err := b.StatementAt(context.Background(), 1, time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if stmt.PeriodLabel != "" || stmt.AmountDue != 0 || stmt.DueDate != nil {
		t.Fatalf("open month must not be billed, got %+v", stmt)
	}
}

func TestBillingOverpaymentClampsToZero(t *testing.T) {
	store := seedStore(t, []*models.MeterRecord{
		mkRec(1, time.Date(2025, 9, 10, 8, 0, 0, 0, time.UTC), 10, 1.80),
	})
	ctx := context.Background()
	if err := store.RecordPayment(ctx, &models.Payment{
		CustomerID: 1,
		Amount:     50.00,
		Timestamp:  time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	b := NewBillingCalculator(store, NewUsageAggregator(store), 7)
	stmt, err := b.StatementAt(ctx, 1, time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if stmt.AmountDue != 0 {
		t.Fatalf("expected clamped due 0, got %v", stmt.AmountDue)
	}
	if stmt.Paid != 50.00 {
		t.Fatalf("expected paid 50.00, got %v", stmt.Paid)
	}
}

func TestBillingIgnoresFuturePayments(t *testing.T) {
	store := seedStore(t, []*models.MeterRecord{
		mkRec(1, time.Date(2025, 9, 10, 8, 0, 0, 0, time.UTC), 100, 18.00),
	})
	ctx := context.Background()
	// Dated after "now"; must not count yet
	if err := store.RecordPayment(ctx, &models.Payment{
		CustomerID: 1,
		Amount:     18.00,
		Timestamp:  time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	b := NewBillingCalculator(store, NewUsageAggregator(store), 7)
	stmt, err := b.StatementAt(ctx, 1, time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if stmt.Paid != 0 || stmt.AmountDue != 18.00 {
		t.Fatalf("future payment must not count, got %+v", stmt)
	}
}

func TestRecordPaymentDefaultsTimestamp(t *testing.T) {
	store := seedStore(t, nil)
	b := NewBillingCalculator(store, NewUsageAggregator(store), 7)
	fixed := time.Date(2025, 10, 5, 9, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fixed }

	p, err := b.RecordPayment(context.Background(), &models.PaymentRequest{CustomerID: 1, Amount: 12.5})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if !p.Timestamp.Equal(fixed) {
		t.Fatalf("expected default timestamp %v, got %v", fixed, p.Timestamp)
	}

	if _, err := b.RecordPayment(context.Background(), &models.PaymentRequest{CustomerID: 1, Amount: 0}); err == nil {
		t.Fatalf("expected error for non-positive amount")
	}
}
