package position

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/swisstax/reconcile/date"
	"github.com/swisstax/reconcile/log"
	"github.com/swisstax/reconcile/model"
)

const (
	OpeningBalanceName = "Opening balance"
	ClosingBalanceName = "Closing balance"
)

// CompletePeriodBalances returns a sorted copy of stocks which holds a
// balance at the start of from and at the start of the day after to.
// Missing balances are synthesized. If no opening can be synthesized it is
// derived from the closing balance less all mutations, floored at zero.
// A missing closing balance that cannot be synthesized is zero.
func CompletePeriodBalances(
	stocks []model.SecurityStock, identifier string, from, to date.Date) ([]model.SecurityStock, error) {

	if to.Before(from) {
		return nil, fmt.Errorf("[%s] period end %s is before period start %s", identifier, to, from)
	}
	r := NewReconciler(stocks, identifier)
	endPlusOne := to.AddDays(1)

	currency, quotation := primaryUnits(r.sorted)

	closing := decimal.Zero
	if pos, ok := r.startOfDayPosition(endPlusOne); ok {
		closing = pos.Quantity
		currency = pos.Currency
	}

	var opening decimal.Decimal
	if pos, ok := r.startOfDayPosition(from); ok {
		opening = pos.Quantity
	} else {
		mutTotal := decimal.Zero
		for _, s := range r.sorted {
			if s.Mutation {
				mutTotal = mutTotal.Add(s.Quantity)
			}
		}
		opening = decimal.Max(closing.Sub(mutTotal), decimal.Zero)
	}

	if opening.IsNegative() || closing.IsNegative() {
		return nil, fmt.Errorf("[%s] negative balance computed (start %s, end %s)", identifier, opening, closing)
	}

	out := r.SortedStocks()
	if r.balanceAt(from) < 0 {
		log.Tracef(traceTag, "[%s] adding opening balance %s on %s", identifier, opening, from)
		out = append(out, model.SecurityStock{
			ReferenceDate: from, Mutation: false, QuotationType: quotation,
			Quantity: opening, BalanceCurrency: currency, Name: OpeningBalanceName,
		})
	}
	if r.balanceAt(endPlusOne) < 0 {
		log.Tracef(traceTag, "[%s] adding closing balance %s on %s", identifier, closing, endPlusOne)
		out = append(out, model.SecurityStock{
			ReferenceDate: endPlusOne, Mutation: false, QuotationType: quotation,
			Quantity: closing, BalanceCurrency: currency, Name: ClosingBalanceName,
		})
	}
	model.SortSecurityStocks(out)
	return out, nil
}

// Currency and quotation type of the first entry that names them.
func primaryUnits(stocks []model.SecurityStock) (string, model.QuotationType) {
	currency := ""
	quotation := model.QuotationType("")
	for _, s := range stocks {
		if currency == "" {
			currency = s.BalanceCurrency
		}
		if quotation == "" {
			quotation = s.QuotationType
		}
	}
	if quotation == "" {
		quotation = model.PIECE
	}
	return currency, quotation
}
