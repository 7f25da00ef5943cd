package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Event types emitted after a ledger transaction commits.
const (
	EventInvestmentCreated = "investment.created"
	EventCommissionPaid    = "commission.paid"
	EventRoiCredited       = "roi.credited"
	EventInvestmentMatured = "investment.matured"
	EventWithdrawalCreated = "withdrawal.requested"
	EventWithdrawalSettled = "withdrawal.settled"
	// EventUserRegistered goes to the referrer of a new user.
	EventUserRegistered = "user.registered"
)

// LedgerEvent is the message broadcast to the owning user's sockets.
type LedgerEvent struct {
	Type    string      `json:"type"`
	UserID  uint64      `json:"user_id"`
	Payload interface{} `json:"payload,omitempty"`
}

// Publisher fans ledger events out to connected clients. Publishing is
// best effort; callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
}

type redisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher publishes events on channel.
func NewRedisPublisher(client *redis.Client, channel string) Publisher {
	return &redisPublisher{client: client, channel: channel}
}

func (p *redisPublisher) Publish(ctx context.Context, event LedgerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}
	return nil
}

// LocalPublisher hands events straight to a sink in the same process. It
// is used when Redis is not configured.
type LocalPublisher struct {
	sink func(LedgerEvent)
}

func NewLocalPublisher(sink func(LedgerEvent)) *LocalPublisher {
	return &LocalPublisher{sink: sink}
}

func (p *LocalPublisher) Publish(_ context.Context, event LedgerEvent) error {
	if p.sink != nil {
		p.sink(event)
	}
	return nil
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, LedgerEvent) error { return nil }
