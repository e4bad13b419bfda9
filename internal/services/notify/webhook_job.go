package notify

import (
    "context"
    "fmt"
    "time"

    xhttp "GridPulse/pkg/http"
    applogger "GridPulse/pkg/logger"
    "GridPulse/pkg/queue"
)

// WebhookJob posts anomaly events to the configured webhook URL.
type WebhookJob struct {
    url    string
    client *xhttp.Client
    l      *applogger.Logger
}

func NewWebhookJob(url string, timeout time.Duration, l *applogger.Logger) *WebhookJob {
    if timeout <= 0 {
        timeout = 10 * time.Second
    }
    return &WebhookJob{
        url:    url,
        client: xhttp.NewClient(xhttp.WithTimeout(timeout)),
        l:      l,
    }
}

func (j *WebhookJob) Name() string { return "anomaly_webhook" }

func (j *WebhookJob) Type() string { return MessageTypeAnomaly }

func (j *WebhookJob) Handle(ctx context.Context, payload interface{}) error {
    ev, err := queue.ParsePayload[AnomalyEvent](payload)
    if err != nil {
        return fmt.Errorf("parse anomaly payload: %w", err)
    }

    err = j.client.SendAndParse(ctx, &xhttp.RequestOptions{
        Method:  xhttp.MethodPost,
        URL:     j.url,
        Headers: map[string]string{"Content-Type": "application/json"},
        Body:    ev,
    }, nil)
    if err != nil {
        return fmt.Errorf("post webhook: %w", err)
    }

    j.l.Info("anomaly webhook delivered",
        applogger.Int64("customer_id", ev.CustomerID),
        applogger.String("note", ev.Note),
    )
    return nil
}

var _ queue.Job = (*WebhookJob)(nil)
