package headend

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a MeterStream backed by the head-end WebSocket feed.
type Client struct {
	apiKey         string
	websocketURL   string
	meters         []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new head-end MeterStream.
func New(apiKey, websocketURL string, meters []string, reconnectDelay, pingInterval time.Duration) drepo.MeterStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		meters:         meters,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("headend connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("headend: connected")
	return nil
}

// Subscribe subscribes to configured meters.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("headend not connected")
	}
	for _, m := range c.meters {
		msg := map[string]string{"type": "subscribe", "meter": m}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", m, err)
		}
		log.Printf("headend: subscribed %s", m)
	}
	return nil
}

type heSample struct {
	C int64    `json:"c"`
	K float64  `json:"k"`
	T int64    `json:"t"` // ms
	V *float64 `json:"v"` // volts, optional
	A *float64 `json:"a"` // amps, optional
}

type heMessage struct {
	Type string     `json:"type"`
	Data []heSample `json:"data"`
}

// Read streams raw readings and errors. Timestamps stay unparsed until the
// validator sees them; the feed sends unix milliseconds.
func (c *Client) Read(ctx context.Context) (<-chan *models.RawReading, <-chan error) {
	readings := make(chan *models.RawReading, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(readings)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("headend conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("headend read: %w", err)
					return
				}
				var m heMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-sample frames
					continue
				}
				if m.Type != "reading" {
					continue
				}
				for _, d := range m.Data {
					sec := d.T / 1000
					raw := &models.RawReading{
						CustomerID: d.C,
						Timestamp:  strconv.FormatInt(sec, 10),
						Kwh:        d.K,
						Voltage:    d.V,
						Current:    d.A,
					}
					select {
					case readings <- raw:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return readings, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
