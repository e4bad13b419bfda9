package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"
	domsvc "GridPulse/internal/domain/service"
)

// AnomalyNotifier hands anomalous records to an out-of-band channel.
// Implementations must not block ingestion.
type AnomalyNotifier interface {
	Enqueue(ctx context.Context, rec *models.MeterRecord) error
}

// ReadingProcessor validates a raw reading, derives cost and anomaly
// values, and routes the record to the configured backend.
type ReadingProcessor struct {
	validator domsvc.ReadingValidator
	deriver   domsvc.Deriver
	pub       drepo.Publisher
	store     drepo.ReadingStore
	notifier  AnomalyNotifier
	metrics   drepo.Metrics
	backend   string
	batchSz   int
	batchTO   time.Duration
}

// NewReadingProcessor creates a new ReadingProcessor instance.
func NewReadingProcessor(
	validator domsvc.ReadingValidator,
	deriver domsvc.Deriver,
	pub drepo.Publisher,
	store drepo.ReadingStore,
	notifier AnomalyNotifier,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *ReadingProcessor {
	return &ReadingProcessor{
		validator: validator,
		deriver:   deriver,
		pub:       pub,
		store:     store,
		notifier:  notifier,
		metrics:   metrics,
		backend:   backend,
		batchSz:   batchSz,
		batchTO:   batchTO,
	}
}

// BatchSize returns the configured batch size for buffering callers.
func (p *ReadingProcessor) BatchSize() int { return p.batchSz }

// BatchTimeout returns the configured batch flush timeout.
func (p *ReadingProcessor) BatchTimeout() time.Duration { return p.batchTO }

// Process validates, derives and stores a single raw reading. Validation
// failures return before any backend is touched.
func (p *ReadingProcessor) Process(ctx context.Context, raw *models.RawReading, source string) (*models.MeterRecord, error) {
	if raw == nil {
		return nil, fmt.Errorf("reading is nil")
	}

	reading, err := p.validator.Validate(raw)
	if err != nil {
		p.metrics.RecordError("validate")
		return nil, err
	}
	derived := p.deriver.Derive(reading)
	rec := &models.MeterRecord{Reading: reading, Derived: derived}

	start := time.Now()
	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, rec)
	case "clickhouse", "memory":
		err = p.store.Record(ctx, &rec.Reading, &rec.Derived, source)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process")
		return nil, fmt.Errorf("process reading: %w", err)
	}

	customer := strconv.FormatInt(reading.CustomerID, 10)
	p.metrics.RecordReadingStored(p.backend, source)
	p.metrics.RecordLastKwh(customer, reading.Kwh)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	if derived.Anomaly {
		p.metrics.RecordAnomaly(source)
		if p.notifier != nil {
			// best effort; a full queue never fails the ingest
			_ = p.notifier.Enqueue(ctx, rec)
		}
	}

	return rec, nil
}

// ProcessBatch validates and stores multiple raw readings. Invalid entries
// are dropped and counted; the rest go through in one backend call.
func (p *ReadingProcessor) ProcessBatch(ctx context.Context, raws []*models.RawReading, source string) error {
	if len(raws) == 0 {
		return nil
	}

	recs := make([]*models.MeterRecord, 0, len(raws))
	for _, raw := range raws {
		if raw == nil {
			continue
		}
		reading, err := p.validator.Validate(raw)
		if err != nil {
			p.metrics.RecordError("validate")
			continue
		}
		derived := p.deriver.Derive(reading)
		recs = append(recs, &models.MeterRecord{Reading: reading, Derived: derived})
	}
	if len(recs) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, recs)
	case "clickhouse", "memory":
		err = p.store.RecordBatch(ctx, recs, source)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, rec := range recs {
		p.metrics.RecordReadingStored(p.backend, source)
		p.metrics.RecordLastKwh(strconv.FormatInt(rec.Reading.CustomerID, 10), rec.Reading.Kwh)
		if rec.Derived.Anomaly {
			p.metrics.RecordAnomaly(source)
			if p.notifier != nil {
				_ = p.notifier.Enqueue(ctx, rec)
			}
		}
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *ReadingProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
