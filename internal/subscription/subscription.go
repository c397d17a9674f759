// Package subscription relays board events between server processes over
// Redis pub/sub.
package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/HankJediAssistant/hank-board/internal/hub"
)

const reconnectDelay = time.Second

// SubscribeUpdates listens on channel and passes every event it receives to
// broadcast. It resubscribes when the channel closes and returns once ctx is
// done.
func SubscribeUpdates(
	ctx context.Context,
	logger log.FieldLogger,
	rc *redis.Client,
	channel string,
	broadcast func(hub.Event),
) {
	for {
		sub := rc.Subscribe(ctx, channel)
		consume(ctx, logger, sub.Channel(), channel, broadcast)
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.WithField("channel", channel).Error("pubsub channel closed, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func consume(ctx context.Context, logger log.FieldLogger, ch <-chan *redis.Message, channel string, broadcast func(hub.Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev hub.Event
			if err := sonic.UnmarshalString(msg.Payload, &ev); err != nil || ev.Type == "" {
				logger.WithField("channel", channel).WithField("payload", msg.Payload).Warn("ignoring malformed board event")
				continue
			}
			broadcast(ev)
		}
	}
}

// Notifier publishes board events to Redis so every process subscribed with
// SubscribeUpdates forwards them to its own browser clients.
type Notifier struct {
	rc      *redis.Client
	channel string
	local   *hub.Hub
	now     func() time.Time
}

// NewNotifier publishes on channel. local is the hub of this process and is
// only used to report how many clients are attached here.
func NewNotifier(rc *redis.Client, channel string, local *hub.Hub) *Notifier {
	return &Notifier{rc: rc, channel: channel, local: local, now: time.Now}
}

// Notify publishes an event of eventType.
func (n *Notifier) Notify(ctx context.Context, eventType string) error {
	data, err := sonic.Marshal(hub.NewEvent(eventType, n.now()))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.rc.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	return nil
}

// Clients returns the number of subscribers attached to this process.
func (n *Notifier) Clients() int {
	return n.local.Count()
}
