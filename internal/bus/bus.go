// Package bus is the process-wide channel for authorization failures.
// Components performing store mutations publish here instead of deciding
// policy at the call site; exactly one subscriber, registered at startup,
// owns the global reaction (log, banner, re-login). In-memory pub/sub,
// at-least-once within the process, nothing survives a restart.
package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const topicPermissionDenied = "interaction.permission-denied"

// PermissionDenied is the event published when a store mutation is rejected
// for authorization reasons.
type PermissionDenied struct {
	Path       string    `json:"path"`
	Operation  string    `json:"operation"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Bus struct {
	ps *gochannel.GoChannel
}

func New() *Bus {
	return &Bus{
		ps: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NewStdLogger(false, false),
		),
	}
}

func (b *Bus) PublishPermissionDenied(ev PermissionDenied) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.ps.Publish(topicPermissionDenied, message.NewMessage(watermill.NewUUID(), payload))
}

// SubscribePermissionDenied returns a channel of decoded events. The channel
// closes when ctx is cancelled or the bus is closed.
func (b *Bus) SubscribePermissionDenied(ctx context.Context) (<-chan PermissionDenied, error) {
	msgs, err := b.ps.Subscribe(ctx, topicPermissionDenied)
	if err != nil {
		return nil, err
	}
	out := make(chan PermissionDenied, 16)
	go func() {
		defer close(out)
		for msg := range msgs {
			var ev PermissionDenied
			if err := json.Unmarshal(msg.Payload, &ev); err == nil {
				select {
				case out <- ev:
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

func (b *Bus) Close() error { return b.ps.Close() }
