package publisher

import (
	"context"
	"time"

	"github.com/carlamarinaap/go-shop/internal/ticket"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const topic = "ticket-events"

// EventSource is the slice of the ticket store the poller needs.
type EventSource interface {
	GetUnpublishedEvents(ctx context.Context, limit int) ([]*ticket.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id int64) error
}

// MessageWriter matches kafka.Writer; injected so tests run without a broker.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPoller struct {
	tick   time.Duration
	batch  int
	source EventSource
	writer MessageWriter
}

func NewOutboxPoller(source EventSource, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		tick:   time.Second,
		batch:  100,
		source: source,
		writer: w,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.drain(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// drain publishes pending events oldest-first. A failed publish leaves the
// event unmarked so the next tick retries it.
func (p *OutboxPoller) drain(ctx context.Context) {
	events, err := p.source.GetUnpublishedEvents(ctx, p.batch)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch outbox events")
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to publish outbox event")
			continue
		}
		if err := p.source.MarkEventPublished(ctx, event.ID); err != nil {
			log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to mark outbox event published")
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *ticket.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // ticket id, keeps per-ticket ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *OutboxPoller) Close() {
	if err := p.writer.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close kafka writer")
	}
}
