package position

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/swisstax/reconcile/date"
	"github.com/swisstax/reconcile/model"
)

func TestCompletePeriodBalancesFromMutationsOnly(t *testing.T) {
	rq := require.New(t)

	stocks := []model.SecurityStock{
		mkStock("2024-03-01", "10", true, "USD", "Buy"),
		mkStock("2024-06-01", "-4", true, "USD", "Sell"),
	}
	from, to := date.MustParse("2024-01-01"), date.MustParse("2024-12-31")
	out, err := CompletePeriodBalances(stocks, "MUT_ONLY", from, to)
	rq.Nil(err)
	rq.Len(out, 4)

	rq.Equal(from, out[0].ReferenceDate)
	rq.False(out[0].Mutation)
	rq.Equal(OpeningBalanceName, out[0].Name)
	rq.Equal("USD", out[0].BalanceCurrency)
	rq.Equal(model.PIECE, out[0].QuotationType)
	// No anchor: closing is zero, opening is floored at zero.
	rq.True(out[0].Quantity.IsZero())

	last := out[3]
	rq.Equal(date.MustParse("2025-01-01"), last.ReferenceDate)
	rq.Equal(ClosingBalanceName, last.Name)
	rq.True(last.Quantity.IsZero())
}

func TestCompletePeriodBalancesFromClosing(t *testing.T) {
	rq := require.New(t)

	stocks := []model.SecurityStock{
		mkStock("2024-03-01", "10", true, "USD", "Buy"),
		mkStock("2024-12-31", "-4", true, "USD", "Sell"),
		mkStock("2025-01-01", "56", false, "USD", "Statement"),
	}
	out, err := CompletePeriodBalances(stocks, "CLOSING", date.MustParse("2024-01-01"), date.MustParse("2024-12-31"))
	rq.Nil(err)
	rq.Len(out, 4)
	rq.Equal(OpeningBalanceName, out[0].Name)
	rq.True(out[0].Quantity.Equal(decimal.NewFromInt(50)))
	rq.Equal("Statement", out[3].Name)

	rq.True(NewReconciler(out, "CLOSING").CheckConsistency().Consistent())
}

func TestCompletePeriodBalancesFromOpening(t *testing.T) {
	rq := require.New(t)

	stocks := []model.SecurityStock{
		mkStock("2024-01-01", "5", false, "CHF", "Start"),
		mkStock("2024-12-31", "3", true, "CHF", "Buy"),
		mkStock("2025-01-01", "1", true, "CHF", "Buy next year"),
	}
	out, err := CompletePeriodBalances(stocks, "OPENING", date.MustParse("2024-01-01"), date.MustParse("2024-12-31"))
	rq.Nil(err)
	rq.Len(out, 4)
	rq.Equal("Start", out[0].Name)
	closing := out[2]
	rq.Equal(ClosingBalanceName, closing.Name)
	rq.Equal(date.MustParse("2025-01-01"), closing.ReferenceDate)
	// Start of 2025-01-01 excludes that day's mutation.
	rq.True(closing.Quantity.Equal(decimal.NewFromInt(8)))
	rq.True(out[3].Mutation)

	// Input untouched
	rq.Len(stocks, 3)
}

func TestCompletePeriodBalancesNegative(t *testing.T) {
	rq := require.New(t)

	stocks := []model.SecurityStock{
		mkStock("2024-01-01", "5", false, "CHF", "Start"),
		mkStock("2024-02-01", "-8", true, "CHF", "Sell"),
	}
	_, err := CompletePeriodBalances(stocks, "NEG", date.MustParse("2024-01-01"), date.MustParse("2024-12-31"))
	rq.NotNil(err)
	rq.Contains(err.Error(), "negative balance")

	_, err = CompletePeriodBalances(nil, "BAD", date.MustParse("2024-12-31"), date.MustParse("2024-01-01"))
	rq.NotNil(err)
}
