package usecase

import (
	"context"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"
	mid "GridPulse/internal/middleware"
)

// MeterCollector collects readings from the head-end stream and processes them.
type MeterCollector struct {
	stream  drepo.MeterStream
	proc    *ReadingProcessor
	metrics drepo.Metrics
	pipe    *mid.IngestPipeline
}

// NewMeterCollector creates a new MeterCollector instance.
func NewMeterCollector(stream drepo.MeterStream, proc *ReadingProcessor, metrics drepo.Metrics, pipe *mid.IngestPipeline) *MeterCollector {
	return &MeterCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the head-end stream is connected.
func (c *MeterCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *MeterCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	rdCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, rdCh, errCh)
	return nil
}

func (c *MeterCollector) consume(ctx context.Context, rdCh <-chan *models.RawReading, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case raw := <-rdCh:
			if raw == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, raw)
			} else {
				_, _ = c.proc.Process(ctx, raw, "headend")
			}
		}
	}
}

func (c *MeterCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying ReadingProcessor for lifecycle management.
func (c *MeterCollector) Processor() *ReadingProcessor { return c.proc }

// Shutdown stops pipeline and closes stream.
func (c *MeterCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
