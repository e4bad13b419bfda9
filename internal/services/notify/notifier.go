package notify

import (
    "context"
    "time"

    "GridPulse/internal/domain/models"
    "GridPulse/pkg/queue"
)

// MessageTypeAnomaly is the queue message type for anomaly events.
const MessageTypeAnomaly = "anomaly.detected"

// AnomalyEvent is the payload enqueued for anomalous readings.
type AnomalyEvent struct {
    CustomerID int64     `json:"customer_id"`
    Timestamp  time.Time `json:"timestamp"`
    Kwh        float64   `json:"kwh"`
    Cost       float64   `json:"cost"`
    Note       string    `json:"note"`
}

// QueueNotifier hands anomaly events to the queue. Ingestion never waits
// on webhook delivery; the queue worker owns retries and the DLQ.
type QueueNotifier struct {
    q queue.QueueService
}

func NewQueueNotifier(q queue.QueueService) *QueueNotifier {
    return &QueueNotifier{q: q}
}

func (n *QueueNotifier) Enqueue(ctx context.Context, rec *models.MeterRecord) error {
    return n.q.PublishMessage(ctx, MessageTypeAnomaly, AnomalyEvent{
        CustomerID: rec.Reading.CustomerID,
        Timestamp:  rec.Reading.Timestamp,
        Kwh:        rec.Reading.Kwh,
        Cost:       rec.Derived.Cost,
        Note:       rec.Derived.AnomalyNote,
    })
}
