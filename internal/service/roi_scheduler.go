package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/davesep77/evolentra/internal/config"
	"github.com/davesep77/evolentra/internal/errs"
	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/internal/pubsub"
	"github.com/davesep77/evolentra/internal/repository"
	"github.com/davesep77/evolentra/pkg/metrics"
)

const dateLayout = "2006-01-02"

// Per-investment outcomes of a run.
const (
	outcomePaid    = "paid"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

var errNothingToAccrue = errors.New("nothing to accrue")

// RunReport summarises one day's accrual run.
type RunReport struct {
	Date             string          `json:"date"`
	Processed        int             `json:"processed"`
	Completed        int             `json:"completed"`
	Skipped          int             `json:"skipped"`
	Failed           int             `json:"failed"`
	FailedIDs        []uint64        `json:"failed_ids,omitempty"`
	TotalDistributed decimal.Decimal `json:"total_distributed"`
}

type RoiScheduler interface {
	// ProcessDay accrues one day of ROI for day, a calendar date at UTC
	// midnight. Safe to re-run: investments already paid for day are skipped.
	ProcessDay(ctx context.Context, day time.Time) (*RunReport, error)
	// Today is the current business date.
	Today() time.Time
}

type roiScheduler struct {
	Deps
	rules   config.Rules
	locks   repository.RunLockRepository
	lockTTL time.Duration
	metrics *metrics.Metrics
}

func NewRoiScheduler(deps Deps, rules config.Rules, locks repository.RunLockRepository, lockTTL time.Duration, m *metrics.Metrics) RoiScheduler {
	return &roiScheduler{Deps: deps, rules: rules, locks: locks, lockTTL: lockTTL, metrics: m}
}

func (s *roiScheduler) Today() time.Time {
	return s.rules.Today(s.now())
}

// accrual is what one investment's unit of work produced.
type accrual struct {
	investment *models.Investment
	amount     decimal.Decimal
	dayNumber  int
	completed  bool
	capital    bool
}

func (s *roiScheduler) ProcessDay(ctx context.Context, day time.Time) (*RunReport, error) {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	date := day.Format(dateLayout)
	if day.After(s.Today()) {
		return nil, errs.Validation("Cannot run ROI for a future date (%s)", date)
	}

	release, err := s.locks.Acquire(ctx, "roi:"+date, s.lockTTL)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to acquire ROI run lock")
	}
	if release == nil {
		return nil, errs.StateConflict("ROI run for %s is already in progress", date)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.Log.WithError(err).Warn("failed to release ROI run lock")
		}
	}()

	started := s.now()
	candidates, err := s.Store.Investments().ListAccruable(ctx, day)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load active investments")
	}

	log := s.Log.WithField("date", date)
	log.WithField("candidates", len(candidates)).Info("starting daily ROI run")

	report := &RunReport{Date: date, TotalDistributed: decimal.Zero}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		entry := log.WithField("investment_id", c.InvestmentID)
		res, err := s.accrue(ctx, c, day)
		switch {
		case errors.Is(err, errNothingToAccrue):
			report.Skipped++
			s.countPayout(outcomeSkipped)
			entry.Debug("investment already processed for day")
		case err != nil:
			report.Failed++
			report.FailedIDs = append(report.FailedIDs, c.InvestmentID)
			s.countPayout(outcomeFailed)
			entry.WithError(err).Error("failed to accrue ROI")
		default:
			report.Processed++
			report.TotalDistributed = report.TotalDistributed.Add(res.amount)
			if res.completed {
				report.Completed++
			}
			s.countPayout(outcomePaid)
			s.publish(ctx, accrualEvents(res)...)
			entry.WithFields(logrus.Fields{"amount": res.amount.String(), "day_number": res.dayNumber}).Info("ROI credited")
		}
	}

	if s.metrics != nil {
		s.metrics.RoiRunDuration.Observe(s.now().Sub(started).Seconds())
	}
	log.WithFields(logrus.Fields{
		"processed":         report.Processed,
		"skipped":           report.Skipped,
		"failed":            report.Failed,
		"total_distributed": report.TotalDistributed.String(),
	}).Info("daily ROI run complete")

	return report, nil
}

// accrue is one investment's atomic unit. It returns errNothingToAccrue
// when the investment is no longer active or was already paid for day.
func (s *roiScheduler) accrue(ctx context.Context, c models.AccrualCandidate, day time.Time) (*accrual, error) {
	var res *accrual
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		res = nil

		inv, err := tx.Investments().LockByID(ctx, c.InvestmentID)
		if err != nil {
			return errs.Persistence(err, "Failed to lock investment")
		}
		if inv == nil || inv.Status != models.InvestmentStatusActive {
			return errNothingToAccrue
		}

		paid, err := tx.Payouts().Exists(ctx, inv.ID, day)
		if err != nil {
			return errs.Persistence(err, "Failed to check ROI payout")
		}
		if paid {
			return errNothingToAccrue
		}

		dayNumber := int(day.Sub(inv.StartDate).Hours()/24) + 1
		amount := inv.DailyRoi()

		_, err = tx.Payouts().Create(ctx, &models.RoiPayout{
			InvestmentID: inv.ID,
			UserID:       inv.UserID,
			Amount:       amount,
			PayoutDate:   day,
			DayNumber:    dayNumber,
		})
		if err != nil {
			return errs.Persistence(err, "Failed to record ROI payout")
		}
		if err := tx.Investments().RecordAccrual(ctx, inv.ID, amount, dayNumber); err != nil {
			return errs.Persistence(err, "Failed to record ROI payout")
		}
		if err := tx.Wallets().Credit(ctx, inv.UserID, s.rules.BaseCurrency, models.CreditRoi, amount); err != nil {
			return walletError(err, "Failed to credit ROI")
		}
		if err := s.record(ctx, tx, inv, models.TxRoi, amount); err != nil {
			return err
		}

		res = &accrual{investment: inv, amount: amount, dayNumber: dayNumber}
		if dayNumber < c.DurationDays {
			return nil
		}

		res.completed = true
		if c.CapitalReturn {
			if err := tx.Wallets().Credit(ctx, inv.UserID, s.rules.BaseCurrency, models.CreditRefund, inv.Amount); err != nil {
				return walletError(err, "Failed to return capital")
			}
			if err := s.record(ctx, tx, inv, models.TxCapitalReturn, inv.Amount); err != nil {
				return err
			}
			res.capital = true
		}
		if err := tx.Investments().Complete(ctx, inv.ID, res.capital); err != nil {
			return errs.Persistence(err, "Failed to complete investment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *roiScheduler) record(ctx context.Context, tx repository.Store, inv *models.Investment, typ models.TransactionType, amount decimal.Decimal) error {
	_, err := tx.Transactions().Create(ctx, &models.Transaction{
		UserID:      inv.UserID,
		Type:        typ,
		Currency:    s.rules.BaseCurrency,
		Amount:      amount,
		NetAmount:   amount,
		Status:      models.TxStatusCompleted,
		ReferenceID: uint64Ptr(inv.ID),
	})
	if err != nil {
		return errs.Persistence(err, "Failed to record transaction")
	}
	return nil
}

func (s *roiScheduler) countPayout(outcome string) {
	if s.metrics != nil {
		s.metrics.RoiPayouts.WithLabelValues(outcome).Inc()
	}
}

func accrualEvents(res *accrual) []pubsub.LedgerEvent {
	inv := res.investment
	events := []pubsub.LedgerEvent{{
		Type:   pubsub.EventRoiCredited,
		UserID: inv.UserID,
		Payload: map[string]interface{}{
			"investment_id": inv.ID,
			"amount":        res.amount,
			"day_number":    res.dayNumber,
		},
	}}
	if res.completed {
		events = append(events, pubsub.LedgerEvent{
			Type:   pubsub.EventInvestmentMatured,
			UserID: inv.UserID,
			Payload: map[string]interface{}{
				"investment_id":    inv.ID,
				"capital_returned": res.capital,
			},
		})
	}
	return events
}
