package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventProbeCompleted  EventType = "probe_completed"
	EventNodeSelected    EventType = "node_selected"
	EventRequestProxied  EventType = "request_proxied"
	EventTopologyChanged EventType = "topology_changed"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Node       string
	Mode       string
	Duration   time.Duration
	StatusCode int
	Healthy    bool
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// TryEmit sends the event without blocking. Events are dropped when the
// buffer is full or no collector is wired in.
func (c *Collector) TryEmit(event MetricEvent) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventProbeCompleted:
		c.metrics.RecordProbe(event.Node, event.Healthy)
		c.metrics.UpdateHealthStatus(event.Node, event.Healthy)

	case EventNodeSelected:
		c.metrics.RecordNodeSelection(event.Node)

	case EventRequestProxied:
		c.metrics.RecordResponse(event.Node, event.Duration, event.StatusCode)

	case EventTopologyChanged:
		c.metrics.RecordTopologyChange(event.Mode)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot(strategy string) Snapshot {
	return c.metrics.Snapshot(strategy)
}
