package fx

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/swisstax/reconcile/date"
)

// HomeCurrency is the currency rates convert into.
const HomeCurrency = "CHF"

var ErrRateNotFound = errors.New("exchange rate not found")

// DailyRate converts one unit of Currency into the home currency.
type DailyRate struct {
	Currency           string
	Date               date.Date
	ForeignToLocalRate decimal.Decimal
}

func (r DailyRate) Equal(other DailyRate) bool {
	return r.Currency == other.Currency && r.Date.Equal(other.Date) &&
		r.ForeignToLocalRate.Equal(other.ForeignToLocalRate)
}

func (r DailyRate) String() string {
	return fmt.Sprintf("%s %s : %s", r.Currency, r.Date.String(), r.ForeignToLocalRate)
}

// RateSource is a read-only view of the reference exchange rates.
// Implementations return an error wrapping ErrRateNotFound when no rate is
// published for the currency on that date.
type RateSource interface {
	GetRate(currency string, on date.Date) (DailyRate, error)
}
