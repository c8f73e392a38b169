package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/swapgate/core"
	"go.uber.org/zap"
)

// ProgressSink receives decoded progress events.
type ProgressSink interface {
	PublishProgress(ctx context.Context, log *zap.Logger, event core.ProgressEvent) error
}

// ProgressSubscriber feeds progress events from the message bus into a sink.
type ProgressSubscriber struct {
	subscriber message.Subscriber
	sink       ProgressSink
	logger     *zap.Logger
	topic      string
}

// NewProgressSubscriber creates a subscriber on ProgressTopic
func NewProgressSubscriber(subscriber message.Subscriber, sink ProgressSink, logger *zap.Logger) *ProgressSubscriber {
	return &ProgressSubscriber{
		subscriber: subscriber,
		sink:       sink,
		logger:     logger.Named("progress"),
		topic:      ProgressTopic,
	}
}

// Run consumes until ctx is done or the subscription closes.
func (s *ProgressSubscriber) Run(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.handle(ctx, msg)
		}
	}
}

func (s *ProgressSubscriber) handle(ctx context.Context, msg *message.Message) {
	log := s.logger.With(zap.String("message_uuid", msg.UUID))

	var event core.ProgressEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// Redelivery cannot fix a malformed payload.
		log.Warn("dropping undecodable progress event", zap.Error(err))
		msg.Ack()
		return
	}

	log = log.With(zap.String("swap_id", event.SwapID), zap.Bool("terminal", core.Terminal(event.Status)))
	if err := s.sink.PublishProgress(ctx, log, event); err != nil {
		if core.KindOf(err) == core.KindInvalidRequest {
			log.Warn("dropping invalid progress event", zap.Error(err))
			msg.Ack()
			return
		}
		log.Error("failed to fan out progress event", zap.Error(err))
		msg.Nack()
		return
	}
	msg.Ack()
}
