package service

import (
	"context"

	"github.com/shopspring/decimal"
)

const (
	projectionStep    = 10
	maxProjectionDays = 250
)

var (
	daysPerWeek  = decimal.NewFromInt(7)
	daysPerMonth = decimal.NewFromInt(30)
)

// CalculatorInput describes a hypothetical investment.
type CalculatorInput struct {
	PlanID       uint64          `json:"plan_id" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	Referrals    int             `json:"referrals" validate:"min=0"`
	BinaryVolume decimal.Decimal `json:"binary_volume"`
}

// Range is a figure at the plan's minimum, maximum and average rate.
type Range struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
	Avg decimal.Decimal `json:"avg"`
}

func (r Range) scale(f decimal.Decimal) Range {
	return Range{Min: r.Min.Mul(f), Max: r.Max.Mul(f), Avg: r.Avg.Mul(f)}
}

func (r Range) percentOf(base decimal.Decimal) Range {
	return Range{
		Min: r.Min.Mul(hundred).Div(base),
		Max: r.Max.Mul(hundred).Div(base),
		Avg: r.Avg.Mul(hundred).Div(base),
	}
}

func (r Range) plus(v decimal.Decimal) Range {
	return Range{Min: r.Min.Add(v), Max: r.Max.Add(v), Avg: r.Avg.Add(v)}
}

func (r Range) rounded() Range {
	return Range{Min: r.Min.Round(2), Max: r.Max.Round(2), Avg: r.Avg.Round(2)}
}

type Projection struct {
	Day           int             `json:"day"`
	DailyRoi      decimal.Decimal `json:"daily_roi"`
	CumulativeRoi decimal.Decimal `json:"cumulative_roi"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

type CalculatedPlan struct {
	ID           uint64          `json:"id"`
	Name         string          `json:"name"`
	RoiRateMin   decimal.Decimal `json:"roi_rate_min"`
	RoiRateMax   decimal.Decimal `json:"roi_rate_max"`
	DurationDays int             `json:"duration_days"`
}

// Calculation is display-only output; nothing here feeds the ledger.
type Calculation struct {
	Plan              CalculatedPlan  `json:"plan"`
	InvestmentAmount  decimal.Decimal `json:"investment_amount"`
	DailyRoi          Range           `json:"daily_roi"`
	WeeklyRoi         Range           `json:"weekly_roi"`
	MonthlyRoi        Range           `json:"monthly_roi"`
	TotalRoi          Range           `json:"total_roi"`
	CapitalReturn     decimal.Decimal `json:"capital_return"`
	TotalReturn       Range           `json:"total_return"`
	RoiPercentage     Range           `json:"roi_percentage"`
	ReferralPotential decimal.Decimal `json:"referral_potential"`
	BinaryPotential   decimal.Decimal `json:"binary_potential"`
	Projections       []Projection    `json:"projections"`
}

func (s *investmentService) Calculate(ctx context.Context, in CalculatorInput) (*Calculation, error) {
	plan, err := s.activePlan(ctx, in.PlanID, in.Amount)
	if err != nil {
		return nil, err
	}

	amount := in.Amount
	avgRate := plan.AverageRoiRate()
	daily := Range{
		Min: amount.Mul(plan.RoiRateMin).Div(hundred),
		Max: amount.Mul(plan.RoiRateMax).Div(hundred),
		Avg: amount.Mul(avgRate).Div(hundred),
	}
	total := daily.scale(decimal.NewFromInt(int64(plan.DurationDays)))

	capital := decimal.Zero
	if plan.CapitalReturn {
		capital = amount
	}

	// The plan's binary rate is shown here for illustration only; the
	// matching engine pays the system-wide rate.
	binaryPotential := in.BinaryVolume.Mul(plan.BinaryCommission).Div(hundred)
	referralPotential := amount.Mul(plan.ReferralCommission).Div(hundred).Mul(decimal.NewFromInt(int64(in.Referrals)))

	return &Calculation{
		Plan: CalculatedPlan{
			ID:           plan.ID,
			Name:         plan.Name,
			RoiRateMin:   plan.RoiRateMin,
			RoiRateMax:   plan.RoiRateMax,
			DurationDays: plan.DurationDays,
		},
		InvestmentAmount:  amount.Round(2),
		DailyRoi:          daily.rounded(),
		WeeklyRoi:         daily.scale(daysPerWeek).rounded(),
		MonthlyRoi:        daily.scale(daysPerMonth).rounded(),
		TotalRoi:          total.rounded(),
		CapitalReturn:     capital.Round(2),
		TotalReturn:       total.plus(capital).rounded(),
		RoiPercentage:     total.percentOf(amount).rounded(),
		ReferralPotential: referralPotential.Round(2),
		BinaryPotential:   binaryPotential.Round(2),
		Projections:       project(amount, daily.Avg, plan.DurationDays),
	}, nil
}

// project samples cumulative ROI on day 1, every tenth day and the last day.
func project(amount, daily decimal.Decimal, duration int) []Projection {
	days := min(duration, maxProjectionDays)
	var out []Projection
	cumulative := decimal.Zero
	for day := 1; day <= days; day++ {
		cumulative = cumulative.Add(daily)
		if day == 1 || day%projectionStep == 0 || day == duration {
			out = append(out, Projection{
				Day:           day,
				DailyRoi:      daily.Round(2),
				CumulativeRoi: cumulative.Round(2),
				TotalValue:    amount.Add(cumulative).Round(2),
			})
		}
	}
	return out
}
