package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davesep77/evolentra/internal/config"
	"github.com/davesep77/evolentra/internal/pubsub"
	"github.com/davesep77/evolentra/pkg/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []pubsub.LedgerEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e pubsub.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// testClock is a settable Now.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func newDeps(st *memStore, clock *testClock) (Deps, *recordingPublisher) {
	pub := &recordingPublisher{}
	return Deps{Store: st, Log: logger.Discard(), Publisher: pub, Now: clock.now}, pub
}

func testRules() config.Rules {
	return config.DefaultRules()
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
