package repository

import (
	"context"
	"strconv"

	"GridPulse/internal/domain/models"
	"GridPulse/internal/domain/repository"
	pkgkafka "GridPulse/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka. Records are keyed by
// customer id so per-customer order survives partitioning.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func recordPayload(rec *models.MeterRecord) map[string]interface{} {
	m := map[string]interface{}{
		"customer_id": rec.Reading.CustomerID,
		"t":           rec.Reading.Timestamp.Unix(),
		"kwh":         rec.Reading.Kwh,
		"cost":        rec.Derived.Cost,
		"anomaly":     rec.Derived.Anomaly,
		"note":        rec.Derived.AnomalyNote,
	}
	if rec.Reading.Voltage != nil {
		m["voltage"] = *rec.Reading.Voltage
	}
	if rec.Reading.Current != nil {
		m["current"] = *rec.Reading.Current
	}
	return m
}

func customerKey(id int64) []byte {
	return []byte(strconv.FormatInt(id, 10))
}

func (p *KafkaPublisher) Publish(ctx context.Context, rec *models.MeterRecord) error {
	return p.producer.Publish(ctx, p.topic, customerKey(rec.Reading.CustomerID), recordPayload(rec))
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, recs []*models.MeterRecord) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(recs))
	for i, rec := range recs {
		msgs[i] = pkgkafka.Message{
			Key:   customerKey(rec.Reading.CustomerID),
			Value: recordPayload(rec),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
