package usecase

import (
	"context"
	"math"
	"time"

	"GridPulse/internal/domain/models"
	domrepo "GridPulse/internal/domain/repository"
)

// UsageAggregator folds stored records into per-period buckets.
type UsageAggregator struct {
	store domrepo.ReadingStore
}

func NewUsageAggregator(store domrepo.ReadingStore) *UsageAggregator {
	return &UsageAggregator{store: store}
}

type AggregateParams struct {
	CustomerID  int64
	Granularity domrepo.Granularity
	From        time.Time
	To          time.Time
}

// Aggregate makes a single pass over the scan iterator. The scan order is
// ascending, so each bucket closes as soon as a later period appears;
// periods with no readings produce no bucket. Cost is summed from the
// stored derived values, never recomputed from kwh.
func (a *UsageAggregator) Aggregate(ctx context.Context, p AggregateParams) ([]models.UsageBucket, error) {
	it, err := a.store.Scan(ctx, p.CustomerID, p.From, p.To)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	buckets := []models.UsageBucket{}
	for it.Next() {
		rec := it.Record()
		period := domrepo.TruncatePeriod(rec.Reading.Timestamp, p.Granularity)
		if n := len(buckets); n == 0 || !buckets[n-1].Period.Equal(period) {
			buckets = append(buckets, models.UsageBucket{
				Period: period,
				Label:  domrepo.PeriodLabel(period, p.Granularity),
			})
		}
		cur := &buckets[len(buckets)-1]
		cur.Kwh += rec.Reading.Kwh
		cur.Cost += rec.Derived.Cost
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	for i := range buckets {
		buckets[i].Kwh = roundSum(buckets[i].Kwh)
		buckets[i].Cost = roundSum(buckets[i].Cost)
	}
	return buckets, nil
}

// LatestUsage is the most recent stored record for a customer. HasData is
// false when the customer has no readings; the rest stays zeroed.
type LatestUsage struct {
	CustomerID int64      `json:"customer_id"`
	HasData    bool       `json:"has_data"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	Kwh        float64    `json:"kwh"`
	Voltage    *float64   `json:"voltage,omitempty"`
	Current    *float64   `json:"current,omitempty"`
	Cost       float64    `json:"cost"`
	Anomaly    bool       `json:"anomaly"`
	Note       string     `json:"note,omitempty"`
}

func (a *UsageAggregator) Latest(ctx context.Context, customerID int64) (*LatestUsage, error) {
	rec, err := a.store.Latest(ctx, customerID)
	if err != nil {
		return nil, err
	}
	out := &LatestUsage{CustomerID: customerID}
	if rec == nil {
		return out, nil
	}
	ts := rec.Reading.Timestamp
	out.HasData = true
	out.Timestamp = &ts
	out.Kwh = rec.Reading.Kwh
	out.Voltage = rec.Reading.Voltage
	out.Current = rec.Reading.Current
	out.Cost = rec.Derived.Cost
	out.Anomaly = rec.Derived.Anomaly
	out.Note = rec.Derived.AnomalyNote
	return out, nil
}

// roundSum trims float accumulation noise to 4 decimal places.
func roundSum(v float64) float64 {
	return math.Round(v*10000) / 10000
}
