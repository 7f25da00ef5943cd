package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Rules holds the business constants shared by every engine. It is built
// once at startup and passed by value; accessors hand out copies.
type Rules struct {
	BaseCurrency         string
	DepositCurrencies    []string
	WithdrawalCurrencies []string
	MinWithdrawal        decimal.Decimal
	WithdrawalFeePercent decimal.Decimal
	RoiWithdrawalDay     time.Weekday
	BinaryCommissionRate decimal.Decimal
	PlacementAttempts    int
	Location             *time.Location
	// Rates are static units-per-USD used for display conversion only.
	Rates map[string]decimal.Decimal
}

// DefaultRules returns the production constants.
func DefaultRules() Rules {
	return Rules{
		BaseCurrency:         "USDT",
		DepositCurrencies:    []string{"BTC", "ETH", "USDT", "TRX", "XRP"},
		WithdrawalCurrencies: []string{"USDT", "TRX"},
		MinWithdrawal:        decimal.NewFromInt(15),
		WithdrawalFeePercent: decimal.NewFromInt(7),
		RoiWithdrawalDay:     time.Saturday,
		BinaryCommissionRate: decimal.NewFromInt(10),
		PlacementAttempts:    3,
		Location:             time.UTC,
		Rates: map[string]decimal.Decimal{
			"BTC":  decimal.NewFromInt(166),
			"ETH":  decimal.NewFromInt(156),
			"USDT": decimal.NewFromInt(1),
			"TRX":  decimal.RequireFromString("8.33"),
			"XRP":  decimal.RequireFromString("1.72"),
		},
	}
}

// Validate checks internal consistency.
func (r Rules) Validate() error {
	if len(r.DepositCurrencies) == 0 {
		return errors.New("at least one deposit currency is required")
	}
	if !r.IsDepositCurrency(r.BaseCurrency) {
		return fmt.Errorf("base currency %s must be a deposit currency", r.BaseCurrency)
	}
	for _, c := range r.WithdrawalCurrencies {
		if !r.IsDepositCurrency(c) {
			return fmt.Errorf("withdrawal currency %s must be a deposit currency", c)
		}
	}
	if r.MinWithdrawal.IsNegative() {
		return errors.New("minimum withdrawal must not be negative")
	}
	hundred := decimal.NewFromInt(100)
	if r.WithdrawalFeePercent.IsNegative() || r.WithdrawalFeePercent.GreaterThanOrEqual(hundred) {
		return errors.New("withdrawal fee percent must be in [0, 100)")
	}
	if r.BinaryCommissionRate.IsNegative() || r.BinaryCommissionRate.GreaterThan(hundred) {
		return errors.New("binary commission rate must be in [0, 100]")
	}
	if r.PlacementAttempts < 1 {
		return errors.New("placement attempts must be at least 1")
	}
	if r.Location == nil {
		return errors.New("business timezone is required")
	}
	return nil
}

// IsDepositCurrency reports whether wallets exist for currency.
func (r Rules) IsDepositCurrency(currency string) bool {
	return contains(r.DepositCurrencies, currency)
}

// IsWithdrawalCurrency reports whether currency can be withdrawn.
func (r Rules) IsWithdrawalCurrency(currency string) bool {
	return contains(r.WithdrawalCurrencies, currency)
}

// Deposits returns a copy of the deposit currency list.
func (r Rules) Deposits() []string {
	return append([]string(nil), r.DepositCurrencies...)
}

// Withdrawables returns a copy of the withdrawal currency list.
func (r Rules) Withdrawables() []string {
	return append([]string(nil), r.WithdrawalCurrencies...)
}

// RateTable returns a copy of the static rates.
func (r Rules) RateTable() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.Rates))
	for k, v := range r.Rates {
		out[k] = v
	}
	return out
}

// Today returns the calendar date of t in the business timezone, as a UTC
// midnight so that day arithmetic is free of DST shifts.
func (r Rules) Today(t time.Time) time.Time {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
