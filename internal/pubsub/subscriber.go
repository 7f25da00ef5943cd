package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Subscribe delivers every event published on channel to handle until ctx
// is cancelled. Malformed messages are logged and skipped.
func Subscribe(ctx context.Context, client *redis.Client, channel string, log logrus.FieldLogger, handle func(LedgerEvent)) error {
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			dispatch(msg.Payload, log, handle)
		}
	}
}

func dispatch(payload string, log logrus.FieldLogger, handle func(LedgerEvent)) {
	var event LedgerEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		log.WithError(err).Warn("dropping malformed ledger event")
		return
	}
	if event.UserID == 0 {
		log.WithField("type", event.Type).Warn("dropping ledger event without user")
		return
	}
	handle(event)
}
