package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/swapgate/core"
	"github.com/layer-3/swapgate/ports"
)

const (
	LogoutTopic   = "swapgate.logout"
	ProgressTopic = "swapgate.progress"
)

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Address string    `json:"address"`
	At      time.Time `json:"at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher     message.Publisher
	logoutTopic   string
	progressTopic string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{
		publisher:     publisher,
		logoutTopic:   LogoutTopic,
		progressTopic: ProgressTopic,
	}
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string) error {
	return p.publish(ctx, p.logoutTopic, LogoutEvent{Address: address, At: time.Now().UTC()})
}

// PublishProgress publishes a swap progress event for the gateway to fan out
func (p *WatermillPublisher) PublishProgress(ctx context.Context, event core.ProgressEvent) error {
	return p.publish(ctx, p.progressTopic, event)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
