// Package events publishes job lifecycle events to Kafka so downstream
// consumers (billing, audit, analytics) can follow resolution activity
// without polling the job store.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Event is one job lifecycle transition.
type Event struct {
	Type      string    `json:"type"`
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher writes lifecycle events to a single topic. A nil Publisher is
// valid and drops all events, so callers do not need to branch on whether
// Kafka is configured.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the given brokers. Returns (nil, nil) when no
// brokers are configured.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Publish sends one event asynchronously. Delivery failures are logged, never
// surfaced to the pipeline: losing an event must not fail a job.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.WarnContext(ctx, "marshal lifecycle event", "error", err.Error())
		return
	}
	record := &kgo.Record{Topic: p.topic, Key: []byte(event.JobID), Value: value}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.WarnContext(ctx, "publish lifecycle event failed",
				"job_id", event.JobID,
				"type", event.Type,
				"error", err.Error(),
			)
		}
	})
}

// Close flushes outstanding records and releases the client.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}
