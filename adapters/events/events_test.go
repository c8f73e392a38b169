package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/layer-3/swapgate/core"
)

const wallet = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	ps := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

type sinkFunc func(ctx context.Context, log *zap.Logger, event core.ProgressEvent) error

func (f sinkFunc) PublishProgress(ctx context.Context, log *zap.Logger, event core.ProgressEvent) error {
	return f(ctx, log, event)
}

func TestPublishLogout(t *testing.T) {
	ps := newPubSub(t)
	pub := NewWatermillPublisher(ps)

	require.NoError(t, pub.PublishLogout(context.Background(), wallet))

	messages, err := ps.Subscribe(context.Background(), LogoutTopic)
	require.NoError(t, err)

	select {
	case msg := <-messages:
		var event LogoutEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, wallet, event.Address)
		assert.False(t, event.At.IsZero())
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("logout event not delivered")
	}
}

func TestProgressSubscriberDeliversToSink(t *testing.T) {
	ps := newPubSub(t)
	pub := NewWatermillPublisher(ps)

	var (
		mu  sync.Mutex
		got []core.ProgressEvent
	)
	done := make(chan struct{})
	sink := sinkFunc(func(_ context.Context, _ *zap.Logger, event core.ProgressEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, event)
		if len(got) == 2 {
			close(done)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := NewProgressSubscriber(ps, sink, zap.NewNop())
	go func() { _ = sub.Run(ctx) }()

	// Malformed payloads are dropped without stalling the stream.
	require.NoError(t, ps.Publish(ProgressTopic, messageWith([]byte(`{"status":"mined"}`))))

	for step, status := range []core.TxStatus{core.TxQueued{}, core.TxFailed{Reason: "reverted"}} {
		require.NoError(t, pub.PublishProgress(ctx, core.ProgressEvent{
			SwapID:  "swap-1",
			Address: wallet,
			Step:    step,
			Status:  status,
			Amount:  decimal.NewFromInt(5),
		}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("progress events not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, core.TxQueued{}, got[0].Status)
	assert.Equal(t, core.TxFailed{Reason: "reverted"}, got[1].Status)
}

func TestProgressSubscriberDropsInvalidEvents(t *testing.T) {
	ps := newPubSub(t)
	pub := NewWatermillPublisher(ps)

	calls := make(chan string, 4)
	sink := sinkFunc(func(_ context.Context, _ *zap.Logger, event core.ProgressEvent) error {
		calls <- event.SwapID
		if event.SwapID == "bad" {
			return core.ErrInvalidAddress
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewProgressSubscriber(ps, sink, zap.NewNop()).Run(ctx) }()

	for _, id := range []string{"bad", "good"} {
		require.NoError(t, pub.PublishProgress(ctx, core.ProgressEvent{SwapID: id, Address: "nope", Status: core.TxQueued{}}))
	}

	var seen []string
	for len(seen) < 2 {
		select {
		case id := <-calls:
			seen = append(seen, id)
		case <-time.After(2 * time.Second):
			t.Fatalf("only saw %v", seen)
		}
	}
	assert.Equal(t, []string{"bad", "good"}, seen)
}

func messageWith(payload []byte) *message.Message {
	return message.NewMessage(watermill.NewUUID(), payload)
}
