package analytics

import (
	"context"
	"log/slog"

	"github.com/joshianirudh/context-engine/pkg/kafka"
)

// event pairs a partition key with its payload so same-typed events land
// on the same partition and the aggregator sees them in order.
type event struct {
	key     string
	payload any
}

// Sink is the transport the collector flushes events to. *kafka.Producer
// satisfies it directly; collector.BatchCollector satisfies it for
// deployments that prefer bulk writes.
type Sink interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector buffers analytics events and publishes them to Kafka from a
// background goroutine. Track never blocks the request path; events are
// dropped with a warning when the buffer is full.
type Collector struct {
	sink    Sink
	eventCh chan event
	logger  *slog.Logger
	done    chan struct{}
}

func NewCollector(sink Sink, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		sink:    sink,
		eventCh: make(chan event, bufferSize),
		logger:  slog.Default().With("component", "analytics-collector"),
		done:    make(chan struct{}),
	}
}

// Start launches the publishing goroutine. It drains buffered events on
// context cancellation before returning.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case ev, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, ev)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// TrackSearch enqueues a search event.
func (c *Collector) TrackSearch(ev SearchEvent) {
	c.track(string(ev.Type), ev)
}

// TrackIngest enqueues an ingest event.
func (c *Collector) TrackIngest(ev IngestEvent) {
	c.track(string(ev.Type), ev)
}

// TrackRebuild enqueues a rebuild event.
func (c *Collector) TrackRebuild(ev RebuildEvent) {
	c.track(string(ev.Type), ev)
}

func (c *Collector) track(key string, payload any) {
	select {
	case c.eventCh <- event{key: key, payload: payload}:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "key", key)
	}
}

// Close stops accepting events and waits for the goroutine to finish.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) publish(ctx context.Context, ev event) {
	err := c.sink.Publish(ctx, kafka.Event{
		Key:   ev.key,
		Value: ev.payload,
	})
	if err != nil {
		c.logger.Error("failed to publish analytics event", "key", ev.key, "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case ev, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), ev)
		default:
			return
		}
	}
}
