package stream

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"activity-events/domain"
)

const reconnectDelay = time.Second

// Listen relays notifications published on channel into b until ctx is done.
// A closed subscription is reopened after a short delay.
func Listen(ctx context.Context, rc *redis.Client, channel string, b *Broker) {
	for {
		relay(ctx, rc, channel, b)
		if ctx.Err() != nil {
			return
		}
		log.Errorf("pubsub channel %s closed, reconnecting", channel)
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func relay(ctx context.Context, rc *redis.Client, channel string, b *Broker) {
	sub := rc.Subscribe(ctx, channel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			n, err := domain.DecodeNotification([]byte(msg.Payload))
			if err != nil {
				log.WithError(err).Warnf("unable to parse notification on %s", channel)
				continue
			}
			b.Publish(n)
		}
	}
}
