package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"GridPulse/internal/domain/models"
	domrepo "GridPulse/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, raw *models.RawReading, source string) (*models.MeterRecord, error)
}

// IngestPipeline sits between the head-end stream and the processor.
// It screens obviously broken samples, throttles per customer, optionally
// transforms, and buffers when downstream is unavailable.
type IngestPipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.RawReading
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[int64]time.Time // per-customer last accepted time
	// simple format transform hook (optional)
	transform func(*models.RawReading) *models.RawReading
	// metrics
	bufDepthGauge func(int)
	throttleWarn  func(string)
}

type PipelineOption func(*IngestPipeline)

// WithMaxRPS sets the max readings per second per customer.
func WithMaxRPS(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook to adjust reading format.
func WithTransform(fn func(*models.RawReading) *models.RawReading) PipelineOption {
	return func(p *IngestPipeline) { p.transform = fn }
}

// NewIngestPipeline creates a new pipeline.
func NewIngestPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,   // default throttle per customer
		bufSize:  1000, // default buffer
		bufCh:    make(chan *models.RawReading, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[int64]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.RawReading, p.bufSize)
	}
	// metrics hooks using domain metrics if available
	p.bufDepthGauge = func(n int) { p.metrics.RecordLatency("pipeline_buffer_depth", float64(n)) }
	p.throttleWarn = func(customer string) { p.metrics.RecordError("pipeline_throttle_" + customer) }
	return p
}

// Start launches background flushing of buffered readings.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case raw := <-p.bufCh:
				if raw == nil {
					continue
				}
				if _, err := p.proc.Process(ctx, raw, "headend"); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- raw:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process screens, throttles, and forwards a reading downstream, buffering on errors.
// Full validation stays with the processor; the screen here only rejects
// frames that cannot identify a customer.
func (p *IngestPipeline) Process(ctx context.Context, raw *models.RawReading) error {
	start := time.Now()
	if err := screenReading(raw); err != nil {
		p.metrics.RecordError("pipeline_screen")
		return err
	}
	if p.transform != nil {
		raw = p.transform(raw)
		if err := screenReading(raw); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.allow(raw.CustomerID, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		if p.throttleWarn != nil {
			p.throttleWarn(strconv.FormatInt(raw.CustomerID, 10))
		}
		return nil
	}

	if _, err := p.proc.Process(ctx, raw, "headend"); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- raw:
			if p.bufDepthGauge != nil {
				p.bufDepthGauge(len(p.bufCh))
			}
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func screenReading(raw *models.RawReading) error {
	if raw == nil {
		return fmt.Errorf("reading nil")
	}
	if raw.CustomerID <= 0 {
		return fmt.Errorf("customer id invalid")
	}
	if raw.Timestamp == "" {
		return fmt.Errorf("timestamp empty")
	}
	return nil
}

func (p *IngestPipeline) allow(customerID int64, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	// simple throttle: ensure at most maxRPS per second
	last := p.lastSeen[customerID]
	if last.IsZero() {
		p.lastSeen[customerID] = now
		return true
	}
	// compute elapsed readings per second window
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[customerID] = now
	return true
}
