package usecase

import (
	"context"
	"encoding/json"
	"time"

	"GridPulse/internal/domain/models"
	domrepo "GridPulse/internal/domain/repository"
	pkgkafka "GridPulse/pkg/kafka"
)

// KafkaReadingsHandler consumes reading records from Kafka and writes them
// to storage. Records arrive already validated and derived; this side only
// persists them.
type KafkaReadingsHandler struct {
	topic   string
	store   domrepo.ReadingStore
	metrics domrepo.Metrics
}

func NewKafkaReadingsHandler(topic string, store domrepo.ReadingStore, metrics domrepo.Metrics) *KafkaReadingsHandler {
	return &KafkaReadingsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaReadingsHandler) Topic() string { return h.topic }

// incoming message schema: {customer_id, t, kwh, voltage?, current?, cost, anomaly, note}
func (h *KafkaReadingsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		CustomerID int64    `json:"customer_id"`
		T          int64    `json:"t"`
		Kwh        float64  `json:"kwh"`
		Voltage    *float64 `json:"voltage"`
		Current    *float64 `json:"current"`
		Cost       float64  `json:"cost"`
		Anomaly    bool     `json:"anomaly"`
		Note       string   `json:"note"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	reading := models.Reading{
		CustomerID: m.CustomerID,
		Timestamp:  time.Unix(m.T, 0).UTC(),
		Kwh:        m.Kwh,
		Voltage:    m.Voltage,
		Current:    m.Current,
	}
	derived := models.DerivedOutput{
		Cost:        m.Cost,
		Anomaly:     m.Anomaly,
		AnomalyNote: m.Note,
	}

	start := time.Now()
	err := h.store.Record(ctx, &reading, &derived, "kafka")
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordReadingStored("clickhouse", "kafka")
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaReadingsHandler)(nil)
