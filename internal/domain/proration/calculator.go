package proration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
)

// Calculator computes the credit and charge for a mid-period plan change
type Calculator interface {
	Calculate(ctx context.Context, params Params) (*Result, error)
}

// Params describes a plan change inside one billing period
type Params struct {
	// Prices are period prices in the smallest currency unit
	OldPlanPrice int64
	NewPlanPrice int64

	PeriodStart time.Time
	PeriodEnd   time.Time
	// ChangeAt is the instant the plan change takes effect
	ChangeAt time.Time
}

// Result holds the prorated amounts for a plan change.
// Credit and Charge are both non-negative, NetAmount = Charge - Credit.
type Result struct {
	// Coefficient is the remaining fraction of the period at ChangeAt
	Coefficient decimal.Decimal `json:"coefficient"`
	Credit      decimal.Decimal `json:"credit"`
	Charge      decimal.Decimal `json:"charge"`
	NetAmount   decimal.Decimal `json:"net_amount"`
}

// NewCalculator returns the second-based linear calculator
func NewCalculator() Calculator {
	return &secondBasedCalculator{}
}

// secondBasedCalculator weights the unused period by elapsed seconds.
// Seconds avoid the day-boundary rounding disputes for short periods.
type secondBasedCalculator struct{}

func (c *secondBasedCalculator) Calculate(_ context.Context, params Params) (*Result, error) {
	if params.OldPlanPrice < 0 || params.NewPlanPrice < 0 {
		return nil, ierr.NewError("plan prices must not be negative").
			WithHint("Proration requires non-negative plan prices").
			Mark(ierr.ErrValidation)
	}

	result := &Result{
		Coefficient: decimal.Zero,
		Credit:      decimal.Zero,
		Charge:      decimal.Zero,
		NetAmount:   decimal.Zero,
	}

	// A degenerate or already-finished period prorates to zero
	totalSeconds := params.PeriodEnd.Sub(params.PeriodStart).Seconds()
	if totalSeconds <= 0 {
		return result, nil
	}

	remainingSeconds := params.PeriodEnd.Sub(params.ChangeAt).Seconds()
	if remainingSeconds <= 0 {
		return result, nil
	}
	if remainingSeconds > totalSeconds {
		remainingSeconds = totalSeconds
	}

	coefficient := decimal.NewFromFloat(remainingSeconds).
		Div(decimal.NewFromFloat(totalSeconds))

	credit := decimal.NewFromInt(params.OldPlanPrice).Mul(coefficient)
	charge := decimal.NewFromInt(params.NewPlanPrice).Mul(coefficient)

	result.Coefficient = coefficient
	result.Credit = credit.Round(0)
	result.Charge = charge.Round(0)
	result.NetAmount = result.Charge.Sub(result.Credit)

	return result, nil
}
