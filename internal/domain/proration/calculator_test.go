package proration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
)

func TestCalculateFullPeriodRemaining(t *testing.T) {
	calc := NewCalculator()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	result, err := calc.Calculate(context.Background(), Params{
		OldPlanPrice: 29900,
		NewPlanPrice: 99900,
		PeriodStart:  start,
		PeriodEnd:    end,
		ChangeAt:     start,
	})
	require.NoError(t, err)

	assert.True(t, result.Coefficient.Equal(decimal.NewFromInt(1)))
	assert.True(t, result.Credit.Equal(decimal.NewFromInt(29900)))
	assert.True(t, result.Charge.Equal(decimal.NewFromInt(99900)))
	assert.True(t, result.NetAmount.Equal(decimal.NewFromInt(70000)))
}

func TestCalculateHalfPeriodRemaining(t *testing.T) {
	calc := NewCalculator()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(30 * 24 * time.Hour)
	changeAt := start.Add(15 * 24 * time.Hour)

	result, err := calc.Calculate(context.Background(), Params{
		OldPlanPrice: 29900,
		NewPlanPrice: 99900,
		PeriodStart:  start,
		PeriodEnd:    end,
		ChangeAt:     changeAt,
	})
	require.NoError(t, err)

	assert.True(t, result.Coefficient.Equal(decimal.NewFromFloat(0.5)))
	assert.True(t, result.Credit.Equal(decimal.NewFromInt(14950)))
	assert.True(t, result.Charge.Equal(decimal.NewFromInt(49950)))
	assert.True(t, result.NetAmount.Equal(decimal.NewFromInt(35000)))
}

func TestCalculateAmountsAreRounded(t *testing.T) {
	calc := NewCalculator()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)
	changeAt := start.Add(1 * time.Hour)

	result, err := calc.Calculate(context.Background(), Params{
		OldPlanPrice: 100,
		NewPlanPrice: 200,
		PeriodStart:  start,
		PeriodEnd:    end,
		ChangeAt:     changeAt,
	})
	require.NoError(t, err)

	// 2/3 of the period remains, 100*2/3 rounds to 67, 200*2/3 to 133
	assert.True(t, result.Credit.Equal(decimal.NewFromInt(67)), "credit = %s", result.Credit)
	assert.True(t, result.Charge.Equal(decimal.NewFromInt(133)), "charge = %s", result.Charge)
	assert.True(t, result.NetAmount.Equal(decimal.NewFromInt(66)))
}

func TestCalculateChangeAtPeriodEnd(t *testing.T) {
	calc := NewCalculator()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	result, err := calc.Calculate(context.Background(), Params{
		OldPlanPrice: 29900,
		NewPlanPrice: 99900,
		PeriodStart:  start,
		PeriodEnd:    end,
		ChangeAt:     end,
	})
	require.NoError(t, err)

	assert.True(t, result.Coefficient.IsZero())
	assert.True(t, result.Credit.IsZero())
	assert.True(t, result.Charge.IsZero())
	assert.True(t, result.NetAmount.IsZero())
}

func TestCalculateChangeAfterPeriodEnd(t *testing.T) {
	calc := NewCalculator()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	result, err := calc.Calculate(context.Background(), Params{
		OldPlanPrice: 29900,
		NewPlanPrice: 99900,
		PeriodStart:  start,
		PeriodEnd:    end,
		ChangeAt:     end.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, result.NetAmount.IsZero())
}

func TestCalculateChangeBeforePeriodStartClamps(t *testing.T) {
	calc := NewCalculator()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	result, err := calc.Calculate(context.Background(), Params{
		OldPlanPrice: 29900,
		NewPlanPrice: 99900,
		PeriodStart:  start,
		PeriodEnd:    end,
		ChangeAt:     start.Add(-24 * time.Hour),
	})
	require.NoError(t, err)

	// The remaining fraction never exceeds the whole period
	assert.True(t, result.Coefficient.Equal(decimal.NewFromInt(1)))
	assert.True(t, result.NetAmount.Equal(decimal.NewFromInt(70000)))
}

func TestCalculateDegeneratePeriod(t *testing.T) {
	calc := NewCalculator()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	result, err := calc.Calculate(context.Background(), Params{
		OldPlanPrice: 29900,
		NewPlanPrice: 99900,
		PeriodStart:  at,
		PeriodEnd:    at,
		ChangeAt:     at,
	})
	require.NoError(t, err)
	assert.True(t, result.NetAmount.IsZero())
}

func TestCalculateNegativePriceRejected(t *testing.T) {
	calc := NewCalculator()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := calc.Calculate(context.Background(), Params{
		OldPlanPrice: -1,
		NewPlanPrice: 99900,
		PeriodStart:  start,
		PeriodEnd:    start.AddDate(0, 1, 0),
		ChangeAt:     start,
	})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestCalculateDowngradeNetIsNegative(t *testing.T) {
	calc := NewCalculator()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(30 * 24 * time.Hour)

	result, err := calc.Calculate(context.Background(), Params{
		OldPlanPrice: 99900,
		NewPlanPrice: 29900,
		PeriodStart:  start,
		PeriodEnd:    end,
		ChangeAt:     start.Add(15 * 24 * time.Hour),
	})
	require.NoError(t, err)

	assert.True(t, result.NetAmount.IsNegative())
	assert.True(t, result.NetAmount.Equal(decimal.NewFromInt(-35000)))
}
