// Package fanout pushes committed aggregate states to subscribed clients.
// One topic per post; delivery is per-topic ordered but carries no causal
// guarantee relative to a subscriber's own in-flight transaction - an update
// may arrive before or after that transaction settles, and clients must
// treat both as valid.
package fanout

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/kalamitra/backend/internal/models"
)

type Hub struct {
	ps *gochannel.GoChannel
}

func New() *Hub {
	return &Hub{
		ps: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 16},
			watermill.NewStdLogger(false, false),
		),
	}
}

func topicFor(ref models.Ref) string {
	return "aggregate." + ref.String()
}

// Publish fans the committed aggregate out to everyone subscribed to its post.
func (h *Hub) Publish(ref models.Ref, agg models.Aggregate) error {
	payload, err := json.Marshal(agg)
	if err != nil {
		return err
	}
	return h.ps.Publish(topicFor(ref), message.NewMessage(watermill.NewUUID(), payload))
}

// Subscribe returns a channel of aggregate states for one post. The channel
// closes when ctx is cancelled or the hub is closed.
func (h *Hub) Subscribe(ctx context.Context, ref models.Ref) (<-chan models.Aggregate, error) {
	msgs, err := h.ps.Subscribe(ctx, topicFor(ref))
	if err != nil {
		return nil, err
	}
	out := make(chan models.Aggregate, 16)
	go func() {
		defer close(out)
		for msg := range msgs {
			var agg models.Aggregate
			if err := json.Unmarshal(msg.Payload, &agg); err == nil {
				select {
				case out <- agg:
				case <-ctx.Done():
					msg.Ack()
					return
				}
			}
			msg.Ack()
		}
	}()
	return out, nil
}

func (h *Hub) Close() error { return h.ps.Close() }
