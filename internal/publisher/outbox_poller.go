package publisher

import (
	"context"
	"time"

	"github.com/fjod/checkout-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const batchSize = 100

// backlogWarnAge is how old an unprocessed event must be before the recovery
// tick starts complaining about it.
const backlogWarnAge = time.Minute

// EventStore is the outbox slice of the repository.
type EventStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]repository.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id uuid.UUID) error
}

// OutboxPoller ships order-created events from the outbox table to Kafka.
// Events are only marked processed after the broker acknowledges the write,
// so delivery is at-least-once and consumers must dedupe on order_id.
type OutboxPoller struct {
	eventTick    time.Duration
	recoveryTick time.Duration
	repo         EventStore
	writer       *kafka.Writer
	logger       zerolog.Logger
}

func NewOutboxPoller(repo EventStore, eventTick, recoveryTick time.Duration, topic string, logger zerolog.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		eventTick:    eventTick,
		recoveryTick: recoveryTick,
		repo:         repo,
		writer:       w,
		logger:       logger.With().Str("component", "outbox").Logger(),
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.reportBacklog(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() {
	if err := p.writer.Close(); err != nil {
		p.logger.Error().Err(err).Msg("error closing kafka writer")
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to fetch outbox events")
		return
	}

	for _, event := range events {
		if errPublish := p.publish(ctx, event); errPublish != nil {
			p.logger.Error().Err(errPublish).Stringer("event_id", event.ID).Msg("failed to publish event")
			continue
		}

		if errMark := p.repo.MarkEventAsProcessed(ctx, event.ID); errMark != nil {
			p.logger.Error().Err(errMark).Stringer("event_id", event.ID).Msg("failed to mark event as processed")
			continue
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event repository.OutboxEvent) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ID.String()),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	})
}

// reportBacklog surfaces events the event tick keeps failing to ship, which
// usually means the broker is down rather than a transient blip.
func (p *OutboxPoller) reportBacklog(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, 1)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to check outbox backlog")
		return
	}
	if len(events) == 0 {
		return
	}
	if age := time.Since(events[0].CreatedAt); age > backlogWarnAge {
		p.logger.Warn().
			Stringer("oldest_event_id", events[0].ID).
			Dur("age", age).
			Msg("outbox backlog is not draining")
	}
}
