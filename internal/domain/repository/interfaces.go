package repository

import (
	"context"
	"time"

	"GridPulse/internal/domain/models"
)

type MeterStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.RawReading, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Publisher interface {
	Publish(ctx context.Context, rec *models.MeterRecord) error
	PublishBatch(ctx context.Context, recs []*models.MeterRecord) error
	Close() error
}

type ReadingStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Record(ctx context.Context, reading *models.Reading, derived *models.DerivedOutput, source string) error
	RecordBatch(ctx context.Context, recs []*models.MeterRecord, source string) error
	Latest(ctx context.Context, customerID int64) (*models.MeterRecord, error)
	Scan(ctx context.Context, customerID int64, from, to time.Time) (ReadingIterator, error)
	RecordPayment(ctx context.Context, p *models.Payment) error
	PaymentsSince(ctx context.Context, customerID int64, since time.Time) ([]*models.Payment, error)
	Health(ctx context.Context) error // ping
	Close() error
}

type Metrics interface {
	RecordReadingStored(backend, source string)
	RecordError(kind string)
	RecordAnomaly(source string)
	RecordLastKwh(customer string, kwh float64)
	RecordLatency(op string, seconds float64)
}
