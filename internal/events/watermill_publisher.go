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

// WatermillEventPublisher adapts any watermill publisher to EventPublisher.
type WatermillEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

// NewKafkaEventPublisher publishes to Kafka brokers.
func NewKafkaEventPublisher(brokers []string, logger *slog.Logger) (*WatermillEventPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &WatermillEventPublisher{publisher: publisher, logger: logger}, nil
}

// NewInProcessEventPublisher publishes onto an in-memory channel, used when no
// broker is configured. It returns the channel so subscribers can attach.
func NewInProcessEventPublisher(logger *slog.Logger) (*WatermillEventPublisher, *gochannel.GoChannel) {
	channel := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))

	return &WatermillEventPublisher{publisher: channel, logger: logger}, channel
}

func (p *WatermillEventPublisher) Publish(ctx context.Context, topic string, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("source", event.Source)
	msg.SetContext(ctx)

	// watermill publishers take no context, so the deadline is enforced here
	done := make(chan error, 1)
	go func() {
		done <- p.publisher.Publish(topic, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to publish %s to %s: %w", event.Type, topic, err)
		}
	case <-ctx.Done():
		p.logger.Warn("Event publish abandoned", "topic", topic, "event_type", event.Type, "event_id", event.ID, "error", ctx.Err())
		return fmt.Errorf("failed to publish %s to %s: %w", event.Type, topic, ctx.Err())
	}

	p.logger.Debug("Event published", "topic", topic, "event_type", event.Type, "event_id", event.ID)
	return nil
}

func (p *WatermillEventPublisher) Close() error {
	return p.publisher.Close()
}
