package payment

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/swisstax/reconcile/date"
	decimal_opt "github.com/swisstax/reconcile/decimal_value"
	"github.com/swisstax/reconcile/log"
	"github.com/swisstax/reconcile/model"
)

const traceTag = "payment"

// DefaultTolerance is in the home currency.
var DefaultTolerance = decimal.RequireFromString("0.05")

// Amounts below this are treated as absent.
var negligible = decimal.RequireFromString("0.01")

const (
	NoteNoncashExpected     = "Non-cash distribution expected to be absent from broker cash flow."
	NoteNegligibleReference = "Reference amounts are negligible; missing broker entry accepted."
	NoteNoBrokerEvidence    = "Reference payment has no broker evidence."
	NoteNoReferenceEntry    = "Broker payment has no reference entry."
	NoteDividendBelow       = "Broker dividend is below reference value beyond tolerance."
	NoteWithholdingBelow    = "Broker withholding is below reference value beyond tolerance."
	NoteZeroReference       = "Reference lists no taxable payment but broker reports cash."
	NoteAllowlisted         = "Broker cash without taxable reference amount accepted by allowlist."
	NoteMixedCurrencies     = "Broker entries use mixed currencies and were not converted."
	NoteNoRate              = "No exchange rate available to convert broker amounts."
)

// Calculator cross-checks the reference payments of each security against
// the broker's payments.
type Calculator struct {
	tolerance decimal.Decimal
	options   Options
}

func NewCalculator(tolerance decimal.Decimal, options Options) *Calculator {
	defaults := NewOptions()
	if options.Noncash == nil {
		options.Noncash = defaults.Noncash
	}
	return &Calculator{tolerance: tolerance, options: options}
}

func (c *Calculator) Tolerance() decimal.Decimal {
	return c.tolerance
}

// Calculate attaches a fresh reconciliation report to statement and returns
// it. Disagreements become mismatch rows, never errors.
func (c *Calculator) Calculate(statement *model.TaxStatement) *model.TaxStatement {
	report := &model.PaymentReconciliationReport{}
	statement.ForEachSecurity(func(depot *model.Depot, sec *model.Security) {
		for _, row := range c.reconcileSecurity(depot, sec) {
			report.Add(row)
		}
	})
	log.Tracef(traceTag, "%d rows: %d match, %d mismatch, %d expected",
		len(report.Rows), report.MatchCount, report.MismatchCount, report.ExpectedMissingCount)
	statement.PaymentReconciliation = report
	return statement
}

func securityLabel(sec *model.Security) string {
	if sec.SecurityName != "" {
		return sec.SecurityName
	}
	return sec.Identifier()
}

func (c *Calculator) reconcileSecurity(depot *model.Depot, sec *model.Security) []model.PaymentReconciliationRow {
	aggs := aggregateSecurity(sec, c.options.Noncash)
	dates := aggs.dates()
	rows := make([]model.PaymentReconciliationRow, 0, len(dates))

	for _, d := range dates {
		ref, hasRef := aggs.reference.Lookup(d)
		broker, hasBroker := aggs.broker.Lookup(d)
		if !hasRef {
			ref = &referenceAgg{}
		}
		if !hasBroker {
			broker = &brokerAgg{}
		}

		row := model.PaymentReconciliationRow{
			Country:                   sec.Country,
			Depot:                     depot.DepotNumber,
			Security:                  securityLabel(sec),
			PaymentDate:               d,
			ReferenceDividend:         ref.dividend,
			ReferenceWithholding:      ref.withholding,
			BrokerDividend:            broker.dividend.value(),
			BrokerDividendCurrency:    broker.dividend.currency,
			BrokerWithholding:         broker.withholding.value(),
			BrokerWithholdingCurrency: broker.withholding.currency,
			BrokerWithholdingLabel:    broker.withholdingLabel,
			ExchangeRate:              ref.exchangeRate,
			Noncash:                   ref.noncash,
		}

		var convNotes []string
		row.BrokerDividendConverted = c.convert(&broker.dividend, ref, d, &convNotes)
		row.BrokerWithholdingConverted = c.convert(&broker.withholding, ref, d, &convNotes)

		c.classify(&row, ref, hasRef, broker, hasBroker)
		if hasRef && hasBroker && row.Status == model.StatusMismatch && len(convNotes) > 0 {
			row.Note = strings.Join(append([]string{row.Note}, convNotes...), " ")
		}
		log.Tracef(traceTag, "[%s] %s: %s %s", row.Security, d, row.Status, row.Note)
		rows = append(rows, row)
	}
	return rows
}

func (c *Calculator) classify(
	row *model.PaymentReconciliationRow,
	ref *referenceAgg, hasRef bool,
	broker *brokerAgg, hasBroker bool) {

	setStatus := func(status model.ReconciliationStatus, note string) {
		row.Status = status
		row.Matched = status != model.StatusMismatch
		row.Note = note
	}
	refNegligible := isNegligible(ref.dividend) && isNegligible(ref.withholding)

	switch {
	case hasRef && !hasBroker && ref.noncash:
		setStatus(model.StatusExpected, NoteNoncashExpected)
	case hasRef && !hasBroker && refNegligible:
		setStatus(model.StatusMatch, NoteNegligibleReference)
	case hasRef && !hasBroker:
		setStatus(model.StatusMismatch, NoteNoBrokerEvidence)
	case !hasRef && hasBroker:
		setStatus(model.StatusMismatch, NoteNoReferenceEntry)
	case refNegligible && !ref.noncash && broker.dividend.present() && !isNegligible(broker.dividend.total):
		if c.options.Allowlist != nil && c.options.Allowlist.Excuses(ref.signs, broker.labels) {
			setStatus(model.StatusMatch, NoteAllowlisted)
		} else {
			setStatus(model.StatusMismatch, NoteZeroReference)
		}
	default:
		divOK := c.componentMatches(ref.dividend, row.BrokerDividendConverted, ref.noncash)
		whOK := c.componentMatches(ref.withholding, row.BrokerWithholdingConverted.Abs(), ref.noncash)
		switch {
		case !divOK:
			setStatus(model.StatusMismatch, NoteDividendBelow)
		case !whOK:
			setStatus(model.StatusMismatch, NoteWithholdingBelow)
		default:
			setStatus(model.StatusMatch, "")
		}
	}
}

// componentMatches flags only broker under-reporting beyond the tolerance.
// Over-reporting is accepted.
func (c *Calculator) componentMatches(reference decimal.Decimal, broker decimal_opt.DecimalOpt, noncash bool) bool {
	if broker.IsNull() {
		return isNegligible(reference)
	}
	if noncash {
		return true
	}
	return broker.Decimal.Add(c.tolerance).GreaterThanOrEqual(reference)
}

// convert expresses a broker total in the home currency. A rate is required:
// the reference rate of the date, else the configured rate source. With a
// reference rate, home currency totals are taken as is.
func (c *Calculator) convert(
	amount *brokerAmount, ref *referenceAgg, d date.Date, notes *[]string) decimal_opt.DecimalOpt {

	if !amount.present() {
		return decimal_opt.Null
	}
	if amount.mixed {
		*notes = appendOnce(*notes, NoteMixedCurrencies)
		return decimal_opt.Null
	}
	if !ref.exchangeRate.IsNull() {
		if amount.currency == model.HomeCurrency {
			return decimal_opt.New(amount.total)
		}
		return decimal_opt.New(amount.total).Mul(ref.exchangeRate)
	}
	if c.options.Rates != nil {
		rate, err := c.options.Rates.GetRate(amount.currency, d)
		if err == nil {
			return decimal_opt.New(amount.total.Mul(rate.ForeignToLocalRate))
		}
		log.Tracef(traceTag, "no fallback rate for %s on %s: %v", amount.currency, d, err)
	}
	*notes = appendOnce(*notes, NoteNoRate)
	return decimal_opt.Null
}

func isNegligible(v decimal.Decimal) bool {
	return v.Abs().LessThan(negligible)
}

func appendOnce(notes []string, note string) []string {
	for _, n := range notes {
		if n == note {
			return notes
		}
	}
	return append(notes, note)
}
