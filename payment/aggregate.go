package payment

import (
	"github.com/shopspring/decimal"

	"github.com/swisstax/reconcile/date"
	decimal_opt "github.com/swisstax/reconcile/decimal_value"
	"github.com/swisstax/reconcile/model"
	"github.com/swisstax/reconcile/util"
)

// Totals of the reference entries of one payment date, in the home currency.
type referenceAgg struct {
	dividend     decimal.Decimal
	withholding  decimal.Decimal
	exchangeRate decimal_opt.DecimalOpt
	currency     string
	noncash      bool
	signs        []string
}

func (a *referenceAgg) add(p *model.SecurityPayment, noncash NoncashClassifier) {
	a.dividend = a.dividend.Add(p.GrossRevenueA.OrZero()).Add(p.GrossRevenueB.OrZero())
	a.withholding = a.withholding.Add(p.WithHoldingTaxClaim.OrZero()).Add(p.NonRecoverableTaxAmount.OrZero())
	if a.exchangeRate.IsNull() && !p.ExchangeRate.IsNull() {
		a.exchangeRate = p.ExchangeRate
		a.currency = p.AmountCurrency
	}
	if noncash.IsNoncash(p) {
		a.noncash = true
	}
	if p.Sign != "" {
		a.signs = append(a.signs, p.Sign)
	}
}

// A single-currency running total. Mixing currencies poisons the total.
type brokerAmount struct {
	total    decimal.Decimal
	currency string
	mixed    bool
}

func (b *brokerAmount) add(amount decimal.Decimal, currency string) {
	if b.currency != "" && b.currency != currency {
		b.mixed = true
	}
	if b.currency == "" {
		b.currency = currency
	}
	b.total = b.total.Add(amount)
}

func (b *brokerAmount) present() bool {
	return b.currency != ""
}

func (b *brokerAmount) value() decimal_opt.DecimalOpt {
	if !b.present() {
		return decimal_opt.Null
	}
	return decimal_opt.New(b.total)
}

// Totals of the broker entries of one payment date, in broker currencies.
type brokerAgg struct {
	dividend         brokerAmount
	withholding      brokerAmount
	withholdingLabel string
	labels           []string
}

func (a *brokerAgg) add(p *model.SecurityPayment) {
	if label := p.Label(); label != "" {
		a.labels = append(a.labels, label)
	}
	if p.WithHoldingTaxClaim.IsNonZero() {
		// The claim is always stated in the home currency.
		a.withholding.add(p.WithHoldingTaxClaim.Decimal, model.HomeCurrency)
		a.withholdingLabel = p.Label()
		return
	}
	if p.NonRecoverableTaxAmountOriginal.IsNonZero() {
		a.withholding.add(p.NonRecoverableTaxAmountOriginal.Decimal, p.AmountCurrency)
		a.withholdingLabel = p.Label()
		return
	}
	a.dividend.add(p.Amount.OrZero(), p.AmountCurrency)
}

type securityAggs struct {
	reference *util.DefaultMap[date.Date, *referenceAgg]
	broker    *util.DefaultMap[date.Date, *brokerAgg]
}

// aggregateSecurity groups the payments of sec by date for each origin.
// A non-empty BrokerPayments list replaces the broker entries of Payments.
func aggregateSecurity(sec *model.Security, noncash NoncashClassifier) securityAggs {
	aggs := securityAggs{
		reference: util.NewDefaultMap(func(date.Date) *referenceAgg { return &referenceAgg{} }),
		broker:    util.NewDefaultMap(func(date.Date) *brokerAgg { return &brokerAgg{} }),
	}
	for i := range sec.Payments {
		p := &sec.Payments[i]
		if p.FromReference() {
			aggs.reference.Get(p.PaymentDate).add(p, noncash)
		} else if len(sec.BrokerPayments) == 0 {
			aggs.broker.Get(p.PaymentDate).add(p)
		}
	}
	for i := range sec.BrokerPayments {
		p := &sec.BrokerPayments[i]
		aggs.broker.Get(p.PaymentDate).add(p)
	}
	return aggs
}

// dates is the sorted union of dates with entries from either origin.
func (s securityAggs) dates() []date.Date {
	all := make(map[date.Date]bool, s.reference.Len()+s.broker.Len())
	for _, d := range s.reference.Keys() {
		all[d] = true
	}
	for _, d := range s.broker.Keys() {
		all[d] = true
	}
	return util.SortedMapKeys(all, func(a, b date.Date) bool { return a.Before(b) })
}
