package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type correlationKey struct{}

// WithCorrelationID attaches a request id that will be copied onto published events
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFrom returns the request id attached by WithCorrelationID
func CorrelationIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// WatermillPublisher sends events through any watermill publisher, one topic per event type
type WatermillPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewWatermillPublisher(publisher message.Publisher, logger *slog.Logger) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		logger:    logger,
	}
}

// NewEventPublisher uses Kafka when brokers are configured and an in-process channel otherwise
func NewEventPublisher(brokers []string, logger *slog.Logger) (EventPublisher, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if len(brokers) == 0 {
		logger.Warn("No Kafka brokers configured, events stay in process")
		return NewWatermillPublisher(NewGoChannel(logger), logger), nil
	}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return NewWatermillPublisher(publisher, logger), nil
}

// NewGoChannel returns the in-process pub/sub used in development and tests
func NewGoChannel(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))
}

func (p *WatermillPublisher) Publish(ctx context.Context, event *Event) error {
	if event.CorrelationID == "" {
		event.CorrelationID = CorrelationIDFrom(ctx)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("source", event.Source)
	if event.CorrelationID != "" {
		msg.Metadata.Set("correlation_id", event.CorrelationID)
	}
	msg.SetContext(ctx)

	if err := p.publisher.Publish(event.Type, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.Debug("Event published", "event_id", event.ID, "event_type", event.Type)
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}
