package infra

import (
	"context"
	"encoding/json"
	"fmt"

	"cajaflow/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const eventsChannelPrefix = "caja:events:"

// EventsChannel is the pub/sub channel carrying till changes of one business.
func EventsChannel(businessID string) string { return eventsChannelPrefix + businessID }

// EventBus fans out till change notifications over Redis pub/sub. Delivery is
// at-most-once; clients that miss an event catch up on their next poll.
type EventBus struct {
	rdb *redis.Client
}

func NewEventBus(rdb *redis.Client) *EventBus { return &EventBus{rdb: rdb} }

func (b *EventBus) Publish(ctx context.Context, evt dto.CajaEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, EventsChannel(evt.BusinessID), data).Err(); err != nil {
		return fmt.Errorf("events: publish %s: %w", evt.Type, err)
	}
	return nil
}

// Subscribe streams the events of one business until ctx is cancelled. The
// returned channel is closed when the subscription ends.
func (b *EventBus) Subscribe(ctx context.Context, businessID string) (<-chan dto.CajaEvent, error) {
	sub := b.rdb.Subscribe(ctx, EventsChannel(businessID))
	// Receive blocks until the subscription is confirmed, so a failure to
	// subscribe surfaces here and not as a silent empty stream.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("events: subscribe: %w", err)
	}

	out := make(chan dto.CajaEvent, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt dto.CajaEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					log.Warn().Err(err).Str("channel", msg.Channel).Msg("events: dropping malformed message")
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
