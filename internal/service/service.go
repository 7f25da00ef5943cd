package service

import (
	"context"
	"errors"
	"time"

	"github.com/davesep77/evolentra/internal/errs"
	"github.com/davesep77/evolentra/internal/pubsub"
	"github.com/davesep77/evolentra/internal/repository"
	"github.com/davesep77/evolentra/pkg/logger"
)

// Deps are the collaborators shared by every engine.
type Deps struct {
	Store     repository.Store
	Log       *logger.Logger
	Publisher pubsub.Publisher
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// publish sends events after their transaction committed. Delivery is best
// effort and never fails the operation.
func (d Deps) publish(ctx context.Context, events ...pubsub.LedgerEvent) {
	if d.Publisher == nil {
		return
	}
	for _, e := range events {
		if err := d.Publisher.Publish(ctx, e); err != nil {
			d.Log.WithError(err).WithField("type", e.Type).Warn("failed to publish ledger event")
		}
	}
}

// walletError maps wallet repository sentinels to caller-facing errors.
func walletError(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrWalletNotFound):
		return errs.NotFound("Wallet not found")
	case errors.Is(err, repository.ErrInsufficientFunds):
		return errs.InsufficientBalance("Insufficient balance")
	default:
		return errs.Persistence(err, msg)
	}
}

func uint64Ptr(v uint64) *uint64 { return &v }

func stringPtr(s string) *string { return &s }
