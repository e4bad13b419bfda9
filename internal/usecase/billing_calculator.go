package usecase

import (
	"context"
	"fmt"
	"time"

	"GridPulse/internal/domain/models"
	domrepo "GridPulse/internal/domain/repository"
	"GridPulse/pkg/util"
)

// BillingCalculator computes the current billing position from aggregated
// usage and recorded payments.
type BillingCalculator struct {
	store     domrepo.ReadingStore
	agg       *UsageAggregator
	graceDays int
	now       func() time.Time
}

func NewBillingCalculator(store domrepo.ReadingStore, agg *UsageAggregator, graceDays int) *BillingCalculator {
	if graceDays <= 0 {
		graceDays = 7
	}
	return &BillingCalculator{store: store, agg: agg, graceDays: graceDays, now: time.Now}
}

// CurrentStatement bills the most recent completed month. The open month
// is never billed; with no billable usage the statement comes back zeroed
// with no due date.
func (b *BillingCalculator) CurrentStatement(ctx context.Context, customerID int64) (*models.BillingStatement, error) {
	return b.StatementAt(ctx, customerID, b.now().UTC())
}

// StatementAt computes the statement as of an explicit clock reading.
func (b *BillingCalculator) StatementAt(ctx context.Context, customerID int64, now time.Time) (*models.BillingStatement, error) {
	now = now.UTC()
	stmt := &models.BillingStatement{CustomerID: customerID}

	// Aggregating up to the start of the open month yields only completed
	// months; sparse output means the last bucket is the newest billable one.
	openStart := domrepo.TruncatePeriod(now, domrepo.Monthly)
	buckets, err := b.agg.Aggregate(ctx, AggregateParams{
		CustomerID:  customerID,
		Granularity: domrepo.Monthly,
		To:          openStart,
	})
	if err != nil {
		return nil, err
	}
	if len(buckets) == 0 {
		return stmt, nil
	}

	bucket := buckets[len(buckets)-1]
	periodEnd := domrepo.NextPeriod(bucket.Period, domrepo.Monthly)

	payments, err := b.store.PaymentsSince(ctx, customerID, bucket.Period)
	if err != nil {
		return nil, err
	}
	paid := 0.0
	var last *models.Payment
	for _, p := range payments {
		if !p.Timestamp.Before(now) {
			continue
		}
		paid += p.Amount
		if last == nil || p.Timestamp.After(last.Timestamp) {
			last = p
		}
	}

	due := roundSum(bucket.Cost - paid)
	if due < 0 {
		due = 0
	}
	dueDate := periodEnd.AddDate(0, 0, b.graceDays)

	stmt.PeriodLabel = bucket.Label
	stmt.UsageKwh = bucket.Kwh
	stmt.UsageCost = bucket.Cost
	stmt.Paid = roundSum(paid)
	stmt.AmountDue = due
	stmt.DueDate = &dueDate
	stmt.LastPayment = last
	return stmt, nil
}

// RecordPayment stores a payment. A missing timestamp means "now".
func (b *BillingCalculator) RecordPayment(ctx context.Context, req *models.PaymentRequest) (*models.Payment, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}
	ts := util.ParseTimeDefault(req.Timestamp, b.now()).UTC()
	p := &models.Payment{
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Timestamp:  ts,
	}
	if err := b.store.RecordPayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
