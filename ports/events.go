package ports

import (
	"context"

	"github.com/layer-3/swapgate/core"
)

// EventPublisher publishes events to other instances and to the worker pipeline.
type EventPublisher interface {
	PublishLogout(ctx context.Context, address string) error
	PublishProgress(ctx context.Context, event core.ProgressEvent) error
}
